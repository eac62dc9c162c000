package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/ragtable/ai/embedding"
	"github.com/hrygo/ragtable/ai/llm"
	"github.com/hrygo/ragtable/ai/metrics"
	"github.com/hrygo/ragtable/ai/reranker"
	"github.com/hrygo/ragtable/generator"
	"github.com/hrygo/ragtable/ingest"
	"github.com/hrygo/ragtable/internal/profile"
	"github.com/hrygo/ragtable/internal/version"
	"github.com/hrygo/ragtable/retriever"
	"github.com/hrygo/ragtable/store"
	"github.com/hrygo/ragtable/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "ragtable",
	Short: "Index documents into a vector table and answer questions grounded in them.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Load .env from the current directory if present.
		_ = godotenv.Load()
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Chunk, embed, and upsert documents into the vector table",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}

		pipeline, err := newPipeline(p)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		ctx := cmd.Context()
		chunker := ingest.NewChunker(ingest.NewSplitter(p.ChunkMaxTokens, p.ContextMaxTokens))
		items, err := chunker.Index(ctx, args)
		if err != nil {
			return err
		}
		if err := pipeline.datastore.AddItems(ctx, items); err != nil {
			return err
		}

		fmt.Printf("Indexed %d chunks from %d documents.\n", len(items), len(args))
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question grounded in the indexed documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}

		pipeline, err := newPipeline(p)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		ctx := cmd.Context()
		topK := viper.GetInt("top-k")

		results, err := pipeline.retriever.Search(ctx, args[0], topK)
		if err != nil {
			return err
		}
		answer, err := pipeline.generator.GenerateResponse(ctx, args[0], results)
		if err != nil {
			return err
		}

		fmt.Println(answer)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the vector table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}

		pipeline, err := newPipeline(p)
		if err != nil {
			return err
		}
		defer pipeline.Close()

		if err := pipeline.datastore.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Vector table reset.")
		return nil
	},
}

// pipeline holds the wired components for one command invocation.
type pipeline struct {
	driver    store.Driver
	datastore *store.Datastore
	retriever *retriever.Retriever
	generator *generator.Generator
}

func (p *pipeline) Close() {
	if err := p.driver.Close(); err != nil {
		slog.Warn("failed to close db driver", "error", err)
	}
}

func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version.Version,
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	return p, nil
}

func newPipeline(p *profile.Profile) (*pipeline, error) {
	driver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}

	// A missing table is not an error; it is created on the spot.
	if err := driver.Migrate(context.Background()); err != nil {
		_ = driver.Close()
		return nil, err
	}

	embedder, err := embedding.NewService(&embedding.Config{
		Provider:   p.EmbeddingProvider,
		Model:      p.EmbeddingModel,
		APIKey:     p.EmbeddingAPIKey,
		BaseURL:    p.EmbeddingBaseURL,
		Dimensions: p.EmbeddingDimensions,
	})
	if err != nil {
		_ = driver.Close()
		return nil, err
	}

	llmService, err := llm.NewService(&llm.Config{
		Provider:    p.LLMProvider,
		Model:       p.LLMModel,
		APIKey:      p.LLMAPIKey,
		BaseURL:     p.LLMBaseURL,
		MaxTokens:   p.LLMMaxTokens,
		Temperature: float32(p.LLMTemperature),
		Timeout:     p.LLMTimeout,
	})
	if err != nil {
		_ = driver.Close()
		return nil, err
	}

	rerankService := reranker.NewService(&reranker.Config{
		Model:   p.RerankModel,
		APIKey:  p.RerankAPIKey,
		BaseURL: p.RerankBaseURL,
	})

	collector := metrics.NewPipeline()
	if addr := viper.GetString("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				slog.Warn("metrics endpoint stopped", "addr", addr, "error", err)
			}
		}()
	}

	datastore := store.NewDatastore(driver, embedder, collector)

	return &pipeline{
		driver:    driver,
		datastore: datastore,
		retriever: retriever.New(datastore, rerankService, collector),
		generator: generator.New(llmService, collector),
	}, nil
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("data", ".")
	viper.SetDefault("top-k", 3)
	viper.SetDefault("metrics-addr", "")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the process, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("data", ".", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "address to expose prometheus metrics on (empty disables)")
	queryCmd.Flags().Int("top-k", 3, "number of passages to ground the answer in")

	for _, flag := range []string{"mode", "data", "driver", "dsn", "metrics-addr"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	if err := viper.BindPFlag("top-k", queryCmd.Flags().Lookup("top-k")); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(ingestCmd, queryCmd, resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
