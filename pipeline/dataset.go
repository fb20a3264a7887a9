package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"tikdex/record"
	"tikdex/transcribe"
)

// DatasetOptions are the knobs for the dataset build stage.
type DatasetOptions struct {
	// NoTranscribe skips new transcriptions; cached transcripts are only
	// attached when SkipExisting is also set.
	NoTranscribe bool
	// SkipExisting attaches cached transcripts without re-transcribing.
	SkipExisting bool
	// MaxTranscriptions caps how many new transcriptions one run performs;
	// 0 means no cap.
	MaxTranscriptions int
	// Sleep is the pause between transcription requests.
	Sleep time.Duration
}

// DatasetResult summarizes one dataset build.
type DatasetResult struct {
	Records     int
	Transcribed int
	Counts      record.Counts
}

// DatasetBuilder turns the crawled index into the unified dataset: records
// deduplicated and merged by id, audio transcribed, per-item files written.
type DatasetBuilder struct {
	transcriber transcribe.Transcriber
	logger      *zap.Logger
}

func NewDatasetBuilder(transcriber transcribe.Transcriber, logger *zap.Logger) *DatasetBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetBuilder{transcriber: transcriber, logger: logger}
}

// Run builds unified.json from index.json. Transcripts are cached per item
// under transcripts/, so re-runs only pay for audio not yet transcribed.
func (b *DatasetBuilder) Run(ctx context.Context, store *record.Store, opts DatasetOptions) (*DatasetResult, error) {
	idx, err := store.LoadIndex()
	if err != nil {
		return nil, err
	}
	if len(idx.Records) == 0 {
		return nil, fmt.Errorf("index at %s is empty; crawl first", store.IndexPath())
	}

	corpus := record.NewCorpus()
	corpus.AddAll(idx.Records)
	records := corpus.Records()

	transcribed := 0
	for i := range records {
		rec := &records[i]
		if rec.ID == "" || rec.AudioPath == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		audioPath := filepath.Join(store.Dir(), rec.AudioPath)
		if _, err := os.Stat(audioPath); err != nil {
			rec.Error = "audio_missing"
			continue
		}

		cached, ok, err := store.LoadTranscript(rec.ID)
		if err != nil {
			return nil, err
		}
		if ok && opts.SkipExisting {
			t := cached
			rec.Transcript = &t
			continue
		}

		if opts.NoTranscribe {
			continue
		}
		if opts.MaxTranscriptions > 0 && transcribed >= opts.MaxTranscriptions {
			break
		}

		b.logger.Info("transcribing", zap.String("id", rec.ID))
		t, err := b.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			rec.Error = err.Error()
			continue
		}
		if err := store.SaveTranscript(rec.ID, *t); err != nil {
			return nil, err
		}
		rec.Transcript = t
		transcribed++

		if opts.Sleep > 0 {
			time.Sleep(opts.Sleep)
		}
	}

	if err := store.SaveUnified(idx.Profile, idx.Username, records); err != nil {
		return nil, err
	}

	return &DatasetResult{
		Records:     len(records),
		Transcribed: transcribed,
		Counts:      record.CountRecords(records),
	}, nil
}
