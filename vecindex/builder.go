package vecindex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tikdex/embedding"
	"tikdex/record"
)

// DefaultBatchSize bounds the size of one embedding request.
const DefaultBatchSize = 25

// DefaultBatchPause is cooperative pacing between batches, not a correctness
// requirement.
const DefaultBatchPause = 200 * time.Millisecond

// Document is one embeddable item: the id it will be retrievable under plus
// the text sent to the embedding provider.
type Document struct {
	ID        string
	URL       string
	Timestamp *int64
	Text      string
}

// DocumentsFromRecords extracts an embeddable document per record: transcript
// text prefixed with the title or description. Records with no usable text
// are skipped.
func DocumentsFromRecords(records []record.VideoRecord) []Document {
	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		text := strings.TrimSpace(rec.BestTitle() + "\n\n" + rec.TranscriptText())
		if text == "" {
			continue
		}
		docs = append(docs, Document{
			ID:        rec.ID,
			URL:       rec.URL,
			Timestamp: rec.Timestamp,
			Text:      text,
		})
	}
	return docs
}

// Builder turns documents into a persisted index by batching requests to the
// embedding provider.
type Builder struct {
	embedder  embedding.Client
	model     string
	batchSize int
	pause     time.Duration
	logger    *zap.Logger
}

func NewBuilder(embedder embedding.Client, model string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		embedder:  embedder,
		model:     model,
		batchSize: DefaultBatchSize,
		pause:     DefaultBatchPause,
		logger:    logger,
	}
}

// WithBatchSize overrides the embedding request batch size.
func (b *Builder) WithBatchSize(n int) *Builder {
	if n > 0 {
		b.batchSize = n
	}
	return b
}

// WithPause overrides the inter-batch pause.
func (b *Builder) WithPause(d time.Duration) *Builder {
	b.pause = d
	return b
}

// Build embeds every document and assembles the index. Vectors are appended
// strictly in document order, so ids and matrix rows stay aligned. Any batch
// failure aborts the whole build: the index is a re-derivable cache and a
// partial one must never be persisted.
func (b *Builder) Build(ctx context.Context, docs []Document) (*Index, error) {
	man := Manifest{
		Model:     b.model,
		CreatedAt: record.ISONow(),
		Count:     len(docs),
		IDs:       make([]string, 0, len(docs)),
		Meta:      make([]Meta, 0, len(docs)),
	}
	for _, d := range docs {
		man.IDs = append(man.IDs, d.ID)
		man.Meta = append(man.Meta, Meta{
			ID:        d.ID,
			URL:       d.URL,
			Timestamp: d.Timestamp,
			TextLen:   len(d.Text),
		})
	}

	var data []float32
	dim := 0

	for start := 0; start < len(docs); start += b.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + b.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		texts := make([]string, 0, end-start)
		for _, d := range docs[start:end] {
			texts = append(texts, d.Text)
		}

		vectors, err := b.embedder.GetEmbeddings(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embed batch %d-%d: got %d vectors for %d texts", start, end, len(vectors), len(texts))
		}

		for _, vec := range vectors {
			if dim == 0 {
				dim = len(vec)
			}
			if len(vec) != dim {
				return nil, fmt.Errorf("inconsistent embedding dimensions: %d vs %d", len(vec), dim)
			}
			data = append(data, vec...)
		}

		b.logger.Info("embedded batch",
			zap.Int("done", end),
			zap.Int("total", len(docs)))

		if b.pause > 0 && end < len(docs) {
			time.Sleep(b.pause)
		}
	}

	man.Dim = dim
	return &Index{
		Manifest: man,
		Matrix:   Matrix{Rows: len(docs), Dim: dim, Data: data},
	}, nil
}
