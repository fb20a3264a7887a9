package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"tikdex/record"
)

type fakeTranscriber struct {
	calls int
	fail  bool
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) (*record.Transcript, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("transcription unavailable")
	}
	return &record.Transcript{
		Text:     "spoken words of " + filepath.Base(audioPath),
		Model:    "test-model",
		Provider: "fake",
	}, nil
}

func seedIndex(t *testing.T, withAudio ...string) *record.Store {
	t.Helper()
	store := record.NewStore(t.TempDir(), "cookwithme")

	var records []record.VideoRecord
	ts := int64(100)
	for _, id := range withAudio {
		rel := filepath.Join("audio", id+".mp3")
		if err := record.WriteBytes(filepath.Join(store.Dir(), rel), []byte("mp3")); err != nil {
			t.Fatal(err)
		}
		v := ts
		records = append(records, record.VideoRecord{ID: id, AudioPath: rel, AudioExt: "mp3", Timestamp: &v})
		ts--
	}
	records = append(records, record.VideoRecord{ID: "no-audio"})

	if err := store.SaveIndex("https://www.tiktok.com/@cookwithme", "cookwithme", records); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestDatasetBuildTranscribes(t *testing.T) {
	store := seedIndex(t, "7001", "7002")
	tr := &fakeTranscriber{}
	b := NewDatasetBuilder(tr, nil)

	res, err := b.Run(context.Background(), store, DatasetOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Records != 3 || res.Transcribed != 2 {
		t.Fatalf("result = %+v", res)
	}
	if res.Counts.Transcripts != 2 || res.Counts.Audio != 2 {
		t.Errorf("counts = %+v", res.Counts)
	}

	uni, err := store.LoadUnified()
	if err != nil {
		t.Fatal(err)
	}
	if uni.Records[0].TranscriptText() == "" {
		t.Error("transcript not attached to unified record")
	}

	if _, ok, err := store.LoadTranscript("7001"); err != nil || !ok {
		t.Errorf("transcript not cached: ok=%v err=%v", ok, err)
	}
}

func TestDatasetBuildSkipExistingUsesCache(t *testing.T) {
	store := seedIndex(t, "7001")
	cached := record.Transcript{Text: "cached words", Provider: "fake"}
	if err := store.SaveTranscript("7001", cached); err != nil {
		t.Fatal(err)
	}

	tr := &fakeTranscriber{}
	b := NewDatasetBuilder(tr, nil)
	if _, err := b.Run(context.Background(), store, DatasetOptions{SkipExisting: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if tr.calls != 0 {
		t.Errorf("transcriber called %d times despite cache", tr.calls)
	}

	uni, err := store.LoadUnified()
	if err != nil {
		t.Fatal(err)
	}
	if uni.Records[0].TranscriptText() != "cached words" {
		t.Errorf("cached transcript not attached: %+v", uni.Records[0])
	}
}

func TestDatasetBuildMaxCap(t *testing.T) {
	store := seedIndex(t, "7001", "7002", "7003")
	tr := &fakeTranscriber{}
	b := NewDatasetBuilder(tr, nil)

	res, err := b.Run(context.Background(), store, DatasetOptions{MaxTranscriptions: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Transcribed != 1 || tr.calls != 1 {
		t.Errorf("transcribed = %d, calls = %d", res.Transcribed, tr.calls)
	}
}

func TestDatasetBuildNoTranscribe(t *testing.T) {
	store := seedIndex(t, "7001")
	tr := &fakeTranscriber{}
	b := NewDatasetBuilder(tr, nil)

	res, err := b.Run(context.Background(), store, DatasetOptions{NoTranscribe: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Transcribed != 0 || tr.calls != 0 {
		t.Errorf("transcription ran with NoTranscribe: %+v", res)
	}
}

func TestDatasetBuildMarksMissingAudio(t *testing.T) {
	store := record.NewStore(t.TempDir(), "cookwithme")
	records := []record.VideoRecord{{ID: "7001", AudioPath: "audio/7001.mp3"}}
	if err := store.SaveIndex("https://www.tiktok.com/@cookwithme", "cookwithme", records); err != nil {
		t.Fatal(err)
	}

	b := NewDatasetBuilder(&fakeTranscriber{}, nil)
	if _, err := b.Run(context.Background(), store, DatasetOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	uni, err := store.LoadUnified()
	if err != nil {
		t.Fatal(err)
	}
	if uni.Records[0].Error != "audio_missing" {
		t.Errorf("error = %q", uni.Records[0].Error)
	}
}

func TestDatasetBuildRecordsTranscriptionFailure(t *testing.T) {
	store := seedIndex(t, "7001")
	b := NewDatasetBuilder(&fakeTranscriber{fail: true}, nil)

	if _, err := b.Run(context.Background(), store, DatasetOptions{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	uni, err := store.LoadUnified()
	if err != nil {
		t.Fatal(err)
	}
	if uni.Records[0].Error == "" || uni.Records[0].Transcript != nil {
		t.Errorf("failure not recorded: %+v", uni.Records[0])
	}
}

func TestDatasetBuildEmptyIndex(t *testing.T) {
	store := record.NewStore(t.TempDir(), "cookwithme")
	b := NewDatasetBuilder(&fakeTranscriber{}, nil)
	if _, err := b.Run(context.Background(), store, DatasetOptions{}); err == nil {
		t.Fatal("expected error for empty index")
	}
}
