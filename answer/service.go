// Package answer turns questions into grounded answers over a creator's
// transcript catalog, either with the full corpus in context or with
// embedding retrieval over the vector index.
package answer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"tikdex/embedding"
	"tikdex/record"
	"tikdex/vecindex"
)

const (
	ModeFull = "full"
	ModeRAG  = "rag"

	DefaultModel = "gpt-4.1"
	DefaultTopK  = 30
)

// ErrNoIndex means RAG mode was requested before the vector index was built.
var ErrNoIndex = errors.New("vector index missing; build it first")

const systemPrompt = `You are the creator's knowledge assistant, answering from their video transcript catalog.

RULES:
1. Answer ONLY from the provided context. If the context does not cover the question, say so plainly.
2. Cite the relevant video IDs as sources.
3. Structure answers with short bullet points.
4. Close with a one-line takeaway.`

// Request is one answering call. TopK distinguishes omitted (nil, use the
// service default) from an explicit 0, which retrieves the whole index.
type Request struct {
	Question        string `json:"question"`
	Mode            string `json:"mode"`
	Model           string `json:"model"`
	TopK            *int   `json:"top_k,omitempty"`
	IncludeCaptions bool   `json:"include_captions"`
}

// Source is one retrieved video with its similarity score.
type Source struct {
	ID    string  `json:"id"`
	URL   string  `json:"url"`
	Score float64 `json:"score"`
}

// Response carries the answer plus how it was produced.
type Response struct {
	Mode        string   `json:"mode"`
	Answer      string   `json:"answer"`
	Sources     []Source `json:"sources,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	Model       string   `json:"model"`
	Provider    string   `json:"provider"`
	TotalVideos int      `json:"total_videos,omitempty"`
}

// Service answers questions over one account's dataset. The unified dataset
// and index are loaded per request so a rebuild is picked up without a
// restart.
type Service struct {
	store        *record.Store
	embedder     embedding.Client
	llm          Generator
	defaultModel string
	defaultTopK  int
	logger       *zap.Logger
}

func NewService(store *record.Store, embedder embedding.Client, llm Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:        store,
		embedder:     embedder,
		llm:          llm,
		defaultModel: DefaultModel,
		defaultTopK:  DefaultTopK,
		logger:       logger,
	}
}

// WithDefaults overrides the model and retrieval size used when a request
// leaves them unset.
func (s *Service) WithDefaults(model string, topK int) *Service {
	if model != "" {
		s.defaultModel = model
	}
	if topK > 0 {
		s.defaultTopK = topK
	}
	return s
}

func (s *Service) indexDir() string {
	return filepath.Join(s.store.Dir(), "rag", "index")
}

func (s *Service) allTranscriptsPath() string {
	return filepath.Join(s.store.Dir(), "rag", "all_transcripts.md")
}

// Answer handles one question. Mode defaults to full; unknown modes are an
// error rather than a silent fallback.
func (s *Service) Answer(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("question is empty")
	}
	if req.Mode == "" {
		req.Mode = ModeFull
	}
	if req.Model == "" {
		req.Model = s.defaultModel
	}

	switch req.Mode {
	case ModeFull:
		return s.answerFull(ctx, req)
	case ModeRAG:
		return s.answerRAG(ctx, req)
	default:
		return nil, fmt.Errorf("unknown mode %q", req.Mode)
	}
}

func (s *Service) answerFull(ctx context.Context, req Request) (*Response, error) {
	uni, err := s.store.LoadUnified()
	if err != nil {
		return nil, err
	}
	contextMD, err := os.ReadFile(s.allTranscriptsPath())
	if err != nil {
		return nil, fmt.Errorf("read transcript corpus: %w", err)
	}

	user := fmt.Sprintf("QUESTION: %s\n\nCONTEXT (all %d transcripts):\n%s",
		req.Question, len(uni.Records), contextMD)
	text, provider, err := s.llm.Generate(ctx, req.Model, systemPrompt, user)
	if err != nil {
		return nil, err
	}

	return &Response{
		Mode:        ModeFull,
		Answer:      text,
		Model:       req.Model,
		Provider:    provider,
		TotalVideos: len(uni.Records),
	}, nil
}

func (s *Service) answerRAG(ctx context.Context, req Request) (*Response, error) {
	uni, err := s.store.LoadUnified()
	if err != nil {
		return nil, err
	}

	idx, err := vecindex.Load(s.indexDir())
	if errors.Is(err, vecindex.ErrMissing) {
		return nil, ErrNoIndex
	}
	if err != nil {
		return nil, err
	}

	vecs, err := s.embedder.GetEmbeddings(ctx, []string{req.Question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one question", len(vecs))
	}

	// Explicit top_k 0 retrieves every indexed video; Search treats
	// non-positive k as "all".
	topK := s.defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	hits, err := idx.Search(vecs[0], topK)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]record.VideoRecord, len(uni.Records))
	for _, r := range uni.Records {
		byID[r.ID] = r
	}

	var parts []string
	var sources []Source
	for _, hit := range hits {
		rec, ok := byID[hit.ID]
		if !ok {
			s.logger.Warn("indexed video missing from dataset", zap.String("id", hit.ID))
			continue
		}
		parts = append(parts, videoContext(rec, req.IncludeCaptions))
		sources = append(sources, Source{ID: rec.ID, URL: rec.URL, Score: float64(hit.Score)})
	}

	user := fmt.Sprintf("QUESTION: %s\n\nCONTEXT (top %d relevant videos):\n%s",
		req.Question, len(hits), strings.Join(parts, "\n\n"))
	text, provider, err := s.llm.Generate(ctx, req.Model, systemPrompt, user)
	if err != nil {
		return nil, err
	}

	return &Response{
		Mode:     ModeRAG,
		Answer:   text,
		Sources:  sources,
		TopK:     len(hits),
		Model:    req.Model,
		Provider: provider,
	}, nil
}

func videoContext(rec record.VideoRecord, includeCaptions bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Video %s\n%s", rec.ID, rec.TranscriptText())
	if includeCaptions {
		for _, c := range rec.Captions {
			if c.Text != "" {
				b.WriteString("\n")
				b.WriteString(c.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
