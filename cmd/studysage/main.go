// Package main provides the studysage CLI for document ingestion,
// retrieval-grounded Q&A, and study-material generation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/iamnandhu/studysage/internal/answer"
	"github.com/iamnandhu/studysage/internal/chunker"
	"github.com/iamnandhu/studysage/internal/config"
	"github.com/iamnandhu/studysage/internal/embedding"
	"github.com/iamnandhu/studysage/internal/extract"
	"github.com/iamnandhu/studysage/internal/ingest"
	"github.com/iamnandhu/studysage/internal/retriever"
	"github.com/iamnandhu/studysage/internal/storage"
	"github.com/iamnandhu/studysage/internal/storage/memory"
	mongostore "github.com/iamnandhu/studysage/internal/storage/mongo"
	qdrantstore "github.com/iamnandhu/studysage/internal/storage/qdrant"
	"github.com/iamnandhu/studysage/internal/studygen"
)

var (
	configPath string
	userID     string
)

var rootCmd = &cobra.Command{
	Use:   "studysage",
	Short: "Study-assistant RAG toolbox",
	Long:  "CLI for ingesting study documents, asking grounded questions, and generating study materials",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Extract, chunk, embed, and store a document",
	Long: `Ingests one document into the chunk store.

Prior chunks of the same document ID are purged first, so re-running
the command re-ingests cleanly.

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings (required)
  MONGODB_URI    MongoDB connection string (mongo store only)`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question grounded in ingested documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var purgeCmd = &cobra.Command{
	Use:   "purge <document-id>",
	Short: "Delete all stored chunks of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runPurge,
}

var generateCmd = &cobra.Command{
	Use:   "generate <summary|flashcards|mindmap> <file>",
	Short: "Generate study materials from a document",
	Args:  cobra.ExactArgs(2),
	RunE:  runGenerate,
}

var (
	documentID string
	mimeType   string
	docIDs     []string
	ageHint    int
	topK       int
	cardCount  int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "user ID owning the documents")

	ingestCmd.Flags().StringVar(&documentID, "document", "", "document ID (default: new UUID)")
	ingestCmd.Flags().StringVar(&mimeType, "mime", "", "MIME type (default: inferred from extension)")

	askCmd.Flags().StringSliceVar(&docIDs, "docs", nil, "document IDs to search (default: all of the user's)")
	askCmd.Flags().IntVar(&ageHint, "age", 0, "student age to pitch the explanation at")
	askCmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to retrieve")

	generateCmd.Flags().StringVar(&mimeType, "mime", "", "MIME type (default: inferred from extension)")
	generateCmd.Flags().IntVar(&cardCount, "count", 10, "number of flashcards")

	rootCmd.AddCommand(ingestCmd, askCmd, purgeCmd, generateCmd)
}

func main() {
	// Load .env if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	path := args[0]
	if documentID == "" {
		documentID = uuid.New().String()
	}
	if mimeType == "" {
		mimeType = inferMIME(path)
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client := embedding.NewClient("")
	embedder := embedding.NewEmbedder(client, cfg.Embedding.Model, cfg.Embedding.Dimension,
		time.Duration(cfg.Embedding.TimeoutSecs)*time.Second)
	ch, err := chunker.New(cfg.Chunking.WindowSize, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}

	pipeline := ingest.NewPipeline(nil, ch, embedder, store, slog.Default(), cfg.Embedding.Concurrency)

	result, err := pipeline.IngestDocument(cmd.Context(), userID, documentID, path, mimeType)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	fmt.Println("Ingest complete")
	fmt.Printf("  Document: %s\n", result.DocumentID)
	fmt.Printf("  Pages:    %d\n", result.Pages)
	fmt.Printf("  Chunks:   %d (%d embedded, %d failed)\n",
		result.TotalChunks, result.EmbeddedChunks, result.FailedChunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	question := strings.Join(args, " ")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	client := embedding.NewClient("")
	embedder := embedding.NewEmbedder(client, cfg.Embedding.Model, cfg.Embedding.Dimension,
		time.Duration(cfg.Embedding.TimeoutSecs)*time.Second)

	r := retriever.New(embedder, store, slog.Default())
	k := topK
	if k == 0 {
		k = cfg.Retrieval.TopK
	}

	result, err := r.Retrieve(cmd.Context(), question, storage.Filter{UserID: userID, DocumentIDs: docIDs}, k)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}
	if result.Mode == retriever.ModeLexical {
		fmt.Println("Note: similarity search unavailable, using lexical results")
	}
	if len(result.Chunks) == 0 {
		fmt.Println("No relevant content found in your documents.")
		return nil
	}

	generator := answer.NewOpenAIGenerator(client, cfg.Answer.Model,
		time.Duration(cfg.Answer.TimeoutSecs)*time.Second)
	assembled, err := answer.New(generator).Assemble(cmd.Context(), question, result.Chunks, ageHint)
	if err != nil {
		return fmt.Errorf("answer generation failed: %w", err)
	}

	fmt.Println(assembled.Answer)
	fmt.Println()
	fmt.Printf("Sources (%d chunks used):\n", assembled.ContextUsed)
	for _, s := range assembled.Sources {
		page := "N/A"
		if s.Page > 0 {
			page = fmt.Sprintf("%d", s.Page)
		}
		fmt.Printf("  - document %s, page %s (score %.3f)\n", s.DocumentID, page, s.Score)
	}
	return nil
}

func runPurge(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if userID == "" {
		return fmt.Errorf("--user is required")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Purge(cmd.Context(), userID, args[0]); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	fmt.Printf("Purged document %s\n", args[0])
	return nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	kind, path := args[0], args[1]
	if mimeType == "" {
		mimeType = inferMIME(path)
	}

	pages, err := extract.Extract(path, mimeType)
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	var sb strings.Builder
	for _, p := range pages {
		sb.WriteString(p.Text)
		sb.WriteString("\n")
	}

	client := embedding.NewClient("")
	gen := studygen.NewGenerator(client, cfg.Answer.Model, 0,
		time.Duration(cfg.Answer.TimeoutSecs)*time.Second)

	ctx := cmd.Context()
	switch kind {
	case "summary":
		summary, err := gen.Summarize(ctx, sb.String())
		if err != nil {
			return err
		}
		fmt.Println(summary)
	case "flashcards":
		cards, err := gen.Flashcards(ctx, sb.String(), cardCount)
		if err != nil {
			return err
		}
		return printJSON(cards)
	case "mindmap":
		node, err := gen.Mindmap(ctx, sb.String())
		if err != nil {
			return err
		}
		return printJSON(node)
	default:
		return fmt.Errorf("unknown material type %q (want summary, flashcards, or mindmap)", kind)
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// openStore builds the configured chunk store backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Store.Type {
	case "mongo":
		uri := os.Getenv("MONGODB_URI")
		if uri == "" && cfg.Store.Mongo != nil {
			uri = cfg.Store.Mongo.URI
		}
		if uri == "" {
			return nil, fmt.Errorf("MONGODB_URI not set and no store.mongo.uri configured")
		}
		database := "studysage"
		if cfg.Store.Mongo != nil && cfg.Store.Mongo.Database != "" {
			database = cfg.Store.Mongo.Database
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return mongostore.New(ctx, uri, database, cfg.Embedding.Dimension)
	case "qdrant":
		qc := cfg.Store.Qdrant
		if qc == nil {
			qc = &config.QdrantConfig{Host: "localhost", Port: 6334}
		}
		store, err := qdrantstore.New(qc.Host, qc.Port, cfg.Embedding.Dimension)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureCollection(context.Background()); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case "memory", "":
		return memory.New(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
	}
}

func inferMIME(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return "application/pdf"
	case ".md":
		return "text/markdown"
	default:
		return "text/plain"
	}
}
