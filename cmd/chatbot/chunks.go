package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/chunk"
	logpkg "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/logger"
)

// embedBatchSize bounds the texts sent per embedding call.
const embedBatchSize = 64

var (
	chunkTenant   string
	chunkDocument string
)

var chunksCmd = &cobra.Command{
	Use:   "chunks",
	Short: "Maintain the document chunk index (upsert, visibility, delete)",
}

var chunksUpsertCmd = &cobra.Command{
	Use:   "upsert <chunks.json>",
	Short: "Embed and store chunks read from a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(filepath.Clean(args[0]))
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()

		records, err := decodeChunks(f)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := embedRecords(ctx, a.docEmbed, records); err != nil {
				return err
			}
			if err := a.chunks.Upsert(ctx, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "upserted %d chunks\n", len(records))
			return nil
		})
	},
}

var chunksShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Make a document's chunks searchable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return setVisibility(cmd, true)
	},
}

var chunksHideCmd = &cobra.Command{
	Use:   "hide",
	Short: "Exclude a document's chunks from search",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return setVisibility(cmd, false)
	},
}

var chunksDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete every chunk of a document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			n, err := a.chunks.Delete(ctx, chunkTenant, chunkDocument)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d chunks\n", n)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{chunksShowCmd, chunksHideCmd, chunksDeleteCmd} {
		c.Flags().StringVar(&chunkTenant, "tenant", "", "tenant (company) id")
		c.Flags().StringVar(&chunkDocument, "doc", "", "document id")
		_ = c.MarkFlagRequired("tenant")
		_ = c.MarkFlagRequired("doc")
	}
	chunksCmd.AddCommand(chunksUpsertCmd, chunksShowCmd, chunksHideCmd, chunksDeleteCmd)
}

func setVisibility(cmd *cobra.Command, visible bool) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		n, err := a.chunks.SetVisibility(ctx, chunkTenant, chunkDocument, visible)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "updated %d chunks (visible=%t)\n", n, visible)
		return nil
	})
}

// withApp wires the application for a one-shot command and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	ctx = logpkg.ContextWithLogger(ctx, logger)

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil {
		logger.Error("Command failed", zap.String("command", cmd.CommandPath()), zap.Error(err))
		return err
	}
	return nil
}

// chunkFile is one entry of the upsert input.
type chunkFile struct {
	TenantID     string `json:"tenantId"`
	DocumentID   string `json:"documentId"`
	DocumentName string `json:"documentName"`
	ChunkIndex   int    `json:"chunkIndex"`
	Content      string `json:"content"`
	Visible      *bool  `json:"visible"`
}

// decodeChunks reads a JSON array of chunks. Visibility defaults to true.
func decodeChunks(r io.Reader) ([]chunk.Record, error) {
	var in []chunkFile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode chunks: %w", err)
	}
	out := make([]chunk.Record, 0, len(in))
	for i, c := range in {
		if c.TenantID == "" || c.DocumentID == "" {
			return nil, fmt.Errorf("chunk %d: tenantId and documentId are required", i)
		}
		visible := true
		if c.Visible != nil {
			visible = *c.Visible
		}
		out = append(out, chunk.Record{
			TenantID:     c.TenantID,
			DocumentID:   c.DocumentID,
			DocumentName: c.DocumentName,
			ChunkIndex:   c.ChunkIndex,
			Content:      c.Content,
			Visible:      visible,
		})
	}
	return out, nil
}

// embedRecords fills each record's vector, batching provider calls.
func embedRecords(ctx context.Context, e domain.Embedder, records []chunk.Record) error {
	for start := 0; start < len(records); start += embedBatchSize {
		end := min(start+embedBatchSize, len(records))
		texts := make([]string, 0, end-start)
		for _, r := range records[start:end] {
			texts = append(texts, r.Content)
		}

		var (
			res domain.BatchEmbeddingResult
			err error
		)
		if be, ok := e.(domain.BatchEmbedder); ok {
			res, err = be.BatchEmbed(ctx, texts)
		} else {
			res, err = domain.BatchFallback(ctx, e, texts)
		}
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(res.Embeddings) != len(texts) {
			return fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts",
				start, end-1, len(res.Embeddings), len(texts))
		}
		for i, vec := range res.Embeddings {
			records[start+i].Vector = vec
		}
	}
	return nil
}
