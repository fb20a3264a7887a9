package pipeline

import (
	"context"
	"testing"

	"tikdex/record"
	"tikdex/vecindex"
)

type unitEmbedder struct{}

func (unitEmbedder) GetEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func TestBuildIndex(t *testing.T) {
	store := record.NewStore(t.TempDir(), "cookwithme")
	records := []record.VideoRecord{
		{ID: "7001", Title: "garlic", Transcript: &record.Transcript{Text: "peel it fast"}},
		{ID: "7002", Title: "knife", Transcript: &record.Transcript{Text: "sharpen on a mug"}},
		{ID: "7003"},
	}
	if err := store.SaveUnified("https://www.tiktok.com/@cookwithme", "cookwithme", records); err != nil {
		t.Fatal(err)
	}

	builder := vecindex.NewBuilder(unitEmbedder{}, "test-model", nil)
	res, err := BuildIndex(context.Background(), store, builder, nil)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	if res.Documents != 2 || res.Dim != 2 {
		t.Fatalf("result = %+v", res)
	}

	idx, err := vecindex.Load(res.Dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Manifest.Model != "test-model" {
		t.Errorf("model = %q", idx.Manifest.Model)
	}
	if len(idx.Manifest.IDs) != 2 || idx.Manifest.IDs[0] != "7001" {
		t.Errorf("ids = %v", idx.Manifest.IDs)
	}
}

func TestBuildIndexRequiresText(t *testing.T) {
	store := record.NewStore(t.TempDir(), "cookwithme")
	if err := store.SaveUnified("p", "cookwithme", []record.VideoRecord{{ID: "7001"}}); err != nil {
		t.Fatal(err)
	}

	builder := vecindex.NewBuilder(unitEmbedder{}, "test-model", nil)
	if _, err := BuildIndex(context.Background(), store, builder, nil); err == nil {
		t.Fatal("expected error when no record has text")
	}
}
