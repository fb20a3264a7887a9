package feed

import (
	"context"
	"errors"
	"testing"
)

// scriptedSource replays a fixed page sequence regardless of cursor, then
// returns empty pages forever. It records how many fetches happened.
type scriptedSource struct {
	pages   [][]Item
	fetches int
}

func (s *scriptedSource) FetchPage(_ context.Context, _ int64) ([]Item, error) {
	s.fetches++
	if s.fetches <= len(s.pages) {
		return s.pages[s.fetches-1], nil
	}
	return nil, nil
}

// cursorEchoSource returns one item whose create time tracks the cursor, so
// the walk makes real backward progress until the floor.
type cursorEchoSource struct {
	fetches int
}

func (s *cursorEchoSource) FetchPage(_ context.Context, cursor int64) ([]Item, error) {
	s.fetches++
	// Ninety days older than the cursor, in seconds.
	t := cursor/1000 - 90*86400
	return []Item{{ID: itemID(s.fetches), CreateTime: t}}, nil
}

func itemID(n int) string {
	return string(rune('a'+n%26)) + "-" + string(rune('0'+n%10))
}

func testConfig() WalkerConfig {
	cfg := DefaultWalkerConfig()
	cfg.FloorCursor = 0
	return cfg
}

func items(ids ...string) []Item {
	out := make([]Item, len(ids))
	for i, id := range ids {
		out[i] = Item{ID: id, CreateTime: int64(1000 - i)}
	}
	return out
}

func TestWalkStopsAfterThreeEmptyPages(t *testing.T) {
	src := &scriptedSource{pages: [][]Item{
		{{ID: "1", CreateTime: 100}},
		nil,
		nil,
		nil,
		{{ID: "2", CreateTime: 50}},
	}}

	w := NewWalker(src, testConfig(), nil)
	got, err := w.Walk(context.Background(), 0)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	// The third consecutive empty page trips the stall limit before page 5
	// is ever requested.
	if src.fetches != 4 {
		t.Errorf("fetched %d pages, want 4", src.fetches)
	}
	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("items = %+v, want only id 1", got)
	}
}

func TestWalkDeduplicatesAcrossPages(t *testing.T) {
	src := &scriptedSource{pages: [][]Item{
		items("1", "2", "3"),
		items("3", "4"),
		items("4", "2", "5"),
	}}

	w := NewWalker(src, testConfig(), nil)
	got, err := w.Walk(context.Background(), 0)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}

	if len(got) != 5 {
		t.Fatalf("got %d items, want 5 distinct", len(got))
	}
	seen := map[string]int{}
	for _, it := range got {
		seen[it.ID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("id %s appears %d times", id, n)
		}
	}
}

func TestWalkAllDuplicatePagesStall(t *testing.T) {
	page := items("1", "2")
	src := &scriptedSource{pages: [][]Item{page, page, page, page, page, page}}

	w := NewWalker(src, testConfig(), nil)
	got, err := w.Walk(context.Background(), 0)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d items, want 2", len(got))
	}
	// Page 1 adds both; pages 2-4 add nothing, reaching the stall limit.
	if src.fetches != 4 {
		t.Errorf("fetched %d pages, want 4", src.fetches)
	}
}

func TestWalkMaxItemsReturnsMidPage(t *testing.T) {
	src := &scriptedSource{pages: [][]Item{
		items("1", "2", "3", "4", "5"),
	}}

	w := NewWalker(src, testConfig(), nil)
	got, err := w.Walk(context.Background(), 3)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d items, want cap of 3", len(got))
	}
	if src.fetches != 1 {
		t.Errorf("fetched %d pages, want 1", src.fetches)
	}
}

func TestWalkTerminatesWithinPageCeiling(t *testing.T) {
	// A feed that never decreases its timestamps would walk forever without
	// the forced shift plus ceiling.
	src := &scriptedSource{}
	for i := 0; i < 1000; i++ {
		src.pages = append(src.pages, []Item{{ID: itemID(i) + "x" + string(rune('A'+i%26)), CreateTime: 1}})
	}

	cfg := testConfig()
	cfg.MaxPages = 10
	cfg.FloorCursor = -1 << 60

	w := NewWalker(src, cfg, nil)
	if _, err := w.Walk(context.Background(), 0); err != nil {
		t.Fatalf("walk: %v", err)
	}
	if src.fetches > 10 {
		t.Errorf("fetched %d pages, ceiling is 10", src.fetches)
	}
}

func TestWalkStopsAtHistoricalFloor(t *testing.T) {
	src := &cursorEchoSource{}
	cfg := testConfig()
	cfg.FloorCursor = DefaultWalkerConfig().FloorCursor

	w := NewWalker(src, cfg, nil)
	got, err := w.Walk(context.Background(), 0)
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if src.fetches >= cfg.MaxPages {
		t.Errorf("floor should stop the walk well before the page ceiling, got %d fetches", src.fetches)
	}
	if len(got) == 0 {
		t.Error("expected at least one item before the floor")
	}
}

type nonDecreasingSource struct {
	fetches int
	cursors []int64
}

func (s *nonDecreasingSource) FetchPage(_ context.Context, cursor int64) ([]Item, error) {
	s.fetches++
	s.cursors = append(s.cursors, cursor)
	// CreateTime converts to a cursor ahead of any plausible current cursor.
	return []Item{{ID: itemID(s.fetches) + "n", CreateTime: 1 << 50}}, nil
}

func TestWalkForcesBackwardShiftWhenFeedTimeDoesNotDecrease(t *testing.T) {
	src := &nonDecreasingSource{}
	cfg := testConfig()
	cfg.MaxPages = 5
	cfg.FloorCursor = -1 << 60

	w := NewWalker(src, cfg, nil)
	if _, err := w.Walk(context.Background(), 0); err != nil {
		t.Fatalf("walk: %v", err)
	}

	for i := 1; i < len(src.cursors); i++ {
		if src.cursors[i] != src.cursors[i-1]-cfg.BackoffWindow {
			t.Errorf("cursor %d = %d, want forced shift from %d", i, src.cursors[i], src.cursors[i-1])
		}
	}
}

type failingSource struct{ after int }

func (s *failingSource) FetchPage(_ context.Context, _ int64) ([]Item, error) {
	if s.after > 0 {
		s.after--
		return items("ok-" + string(rune('0'+s.after))), nil
	}
	return nil, errors.New("upstream 503")
}

func TestWalkPropagatesFetchErrors(t *testing.T) {
	w := NewWalker(&failingSource{after: 1}, testConfig(), nil)
	got, err := w.Walk(context.Background(), 0)
	if err == nil {
		t.Fatal("expected fetch error to propagate")
	}
	if len(got) != 1 {
		t.Errorf("items gathered before the failure should be returned, got %d", len(got))
	}
}

func TestWalkHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &scriptedSource{pages: [][]Item{items("1")}}
	w := NewWalker(src, testConfig(), nil)
	if _, err := w.Walk(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if src.fetches != 0 {
		t.Errorf("no page should be fetched after cancellation, got %d", src.fetches)
	}
}
