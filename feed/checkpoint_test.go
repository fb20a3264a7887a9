package feed

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestJournal(t *testing.T, account string) *BoltJournal {
	t.Helper()
	j, err := OpenBoltJournal(filepath.Join(t.TempDir(), "crawl.db"), account)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalRoundTrip(t *testing.T) {
	j := openTestJournal(t, "creator")

	if _, _, ok, err := j.Load(); err != nil || ok {
		t.Fatalf("fresh journal: ok=%v err=%v", ok, err)
	}

	if err := j.Save(1700000000000, []string{"a", "b"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := j.Save(1690000000000, []string{"c"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	cursor, seen, ok, err := j.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if cursor != 1690000000000 {
		t.Errorf("cursor = %d", cursor)
	}
	if len(seen) != 3 {
		t.Errorf("seen = %v, want 3 ids", seen)
	}
}

func TestJournalClear(t *testing.T) {
	j := openTestJournal(t, "creator")

	if err := j.Save(42, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if err := j.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, _, ok, err := j.Load(); err != nil || ok {
		t.Errorf("checkpoint survived clear: ok=%v err=%v", ok, err)
	}
}

func TestWalkerResumesFromJournal(t *testing.T) {
	j := openTestJournal(t, "creator")
	if err := j.Save(500_000_000, []string{"already-seen"}); err != nil {
		t.Fatal(err)
	}

	src := &cursorCapture{}
	cfg := testConfig()
	cfg.MaxPages = 1
	cfg.FloorCursor = -1 << 60

	w := NewWalker(src, cfg, nil).WithJournal(j)
	got, err := w.Walk(context.Background(), 0)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	if src.first != 500_000_000 {
		t.Errorf("walk started at cursor %d, want checkpointed 500000000", src.first)
	}
	for _, it := range got {
		if it.ID == "already-seen" {
			t.Error("id from checkpoint was re-added")
		}
	}
}

type cursorCapture struct {
	first int64
	calls int
}

func (s *cursorCapture) FetchPage(_ context.Context, cursor int64) ([]Item, error) {
	s.calls++
	if s.calls == 1 {
		s.first = cursor
	}
	return []Item{
		{ID: "already-seen", CreateTime: 400_000},
		{ID: "fresh", CreateTime: 300_000},
	}, nil
}
