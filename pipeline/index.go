package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"tikdex/record"
	"tikdex/vecindex"
)

// IndexResult summarizes one index build.
type IndexResult struct {
	Documents int
	Dim       int
	Dir       string
}

// BuildIndex embeds every record with text in the unified dataset and writes
// the vector index under rag/index/. The index is always rebuilt wholesale.
func BuildIndex(ctx context.Context, store *record.Store, builder *vecindex.Builder, logger *zap.Logger) (*IndexResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	uni, err := store.LoadUnified()
	if err != nil {
		return nil, err
	}

	docs := vecindex.DocumentsFromRecords(uni.Records)
	if len(docs) == 0 {
		return nil, fmt.Errorf("no records with text to index in %s", store.UnifiedPath())
	}

	idx, err := builder.Build(ctx, docs)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(store.Dir(), "rag", "index")
	if err := idx.Save(dir); err != nil {
		return nil, err
	}

	logger.Info("index built",
		zap.Int("documents", idx.Matrix.Rows),
		zap.Int("dim", idx.Matrix.Dim),
		zap.String("dir", dir))

	return &IndexResult{Documents: idx.Matrix.Rows, Dim: idx.Matrix.Dim, Dir: dir}, nil
}
