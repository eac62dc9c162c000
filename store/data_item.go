package store

// DataItem is one unit of indexable content produced by the ingest pipeline.
// It is consumed exactly once by the Datastore during upsert; after that the
// vector table is the source of truth.
type DataItem struct {
	// Content is the chunk text, optionally prefixed with a rendered
	// heading trail ("## h1, h2").
	Content string

	// Source is the stable identity key, unique per (document, position).
	// It is the sole merge key for upserts.
	Source string

	// Metadata carries provenance. It is not required for search
	// correctness and is not persisted in the vector table.
	Metadata *ItemMetadata
}

// ItemMetadata is the provenance attached to a DataItem.
type ItemMetadata struct {
	Filename   string
	PageNo     int // 0 when the converter reported no page
	Headings   []string
	BBox       *BoundingBox
	ChunkIndex int
}

// BoundingBox is the location of a chunk's first source element on its page,
// in the page's native coordinate space.
type BoundingBox struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
}

// VectorRecord is the persisted row shape of the vector table.
type VectorRecord struct {
	Vector  []float32
	Content string
	Source  string
}

// SearchHit is a nearest-neighbor match projected to content and source.
// Richer result construction happens in the retriever layer.
type SearchHit struct {
	Content string
	Source  string
}
