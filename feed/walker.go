package feed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PageSource fetches one page of the feed at a cursor position. An empty slice
// with a nil error means the upstream returned no items for that window, which
// is not the same thing as end-of-feed.
type PageSource interface {
	FetchPage(ctx context.Context, cursor int64) ([]Item, error)
}

// WalkerConfig holds the pagination heuristics. The defaults were tuned
// against real creator feeds; sparse accounts may need a wider backoff window
// or a higher stall limit.
type WalkerConfig struct {
	// MaxPages is the absolute page-fetch ceiling per walk.
	MaxPages int
	// StallLimit is how many consecutive pages may yield no new items before
	// the walk gives up.
	StallLimit int
	// BackoffWindow is the fixed backward cursor shift, in milliseconds, used
	// to probe past gaps in the feed.
	BackoffWindow int64
	// FloorCursor is the historical floor in milliseconds since epoch; the
	// walk stops once the cursor falls below it.
	FloorCursor int64
}

// DefaultWalkerConfig mirrors the tuning the pipeline has always shipped with:
// three strikes, a seven day window, and a floor in late 2016.
func DefaultWalkerConfig() WalkerConfig {
	return WalkerConfig{
		MaxPages:      200,
		StallLimit:    3,
		BackoffWindow: 7 * 86400000,
		FloorCursor:   1472706000000,
	}
}

// Journal persists walk progress so an aborted run can resume from its last
// cursor instead of restarting from now. Implementations may be nil-safe no-ops.
type Journal interface {
	// Load returns the saved cursor and seen ids; ok is false when no
	// checkpoint exists.
	Load() (cursor int64, seen []string, ok bool, err error)
	// Save records the cursor and any ids newly seen on the latest page.
	Save(cursor int64, newIDs []string) error
	// Clear drops the checkpoint after a walk runs to completion.
	Clear() error
}

// Walker paginates backward through a cursor-addressed feed, accumulating a
// deduplicated item set. The upstream never signals end-of-feed, so
// termination is always heuristic: stall strikes, the historical floor, the
// page ceiling, or the caller's item cap.
type Walker struct {
	src     PageSource
	cfg     WalkerConfig
	journal Journal
	logger  *zap.Logger
	now     func() time.Time
}

func NewWalker(src PageSource, cfg WalkerConfig, logger *zap.Logger) *Walker {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultWalkerConfig().MaxPages
	}
	if cfg.StallLimit <= 0 {
		cfg.StallLimit = DefaultWalkerConfig().StallLimit
	}
	if cfg.BackoffWindow <= 0 {
		cfg.BackoffWindow = DefaultWalkerConfig().BackoffWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Walker{src: src, cfg: cfg, logger: logger, now: time.Now}
}

// WithJournal enables cursor checkpointing across failed runs.
func (w *Walker) WithJournal(j Journal) *Walker {
	w.journal = j
	return w
}

// walkState is the explicit crawl state threaded through the loop: nothing
// here is shared or global, which keeps the walker testable with injected
// page sources.
type walkState struct {
	seen   map[string]struct{}
	items  []Item
	stalls int
	cursor int64
}

// Walk fetches pages until a termination condition fires and returns the
// deduplicated items in discovery order. maxItems of 0 means unbounded; when
// the cap is hit mid-page the walk returns immediately. A page fetch error is
// not retried here; it propagates with the items gathered so far, and a
// configured journal lets the next invocation resume from the failed cursor.
func (w *Walker) Walk(ctx context.Context, maxItems int) ([]Item, error) {
	st := walkState{
		seen:   make(map[string]struct{}),
		cursor: w.now().UnixMilli(),
	}
	w.restore(&st)

	for page := 1; page <= w.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return st.items, err
		}

		list, err := w.src.FetchPage(ctx, st.cursor)
		if err != nil {
			return st.items, fmt.Errorf("fetch page %d at cursor %d: %w", page, st.cursor, err)
		}

		if len(list) == 0 {
			st.stalls++
			if st.stalls >= w.cfg.StallLimit {
				w.logger.Info("walk stalled on empty pages",
					zap.Int("page", page),
					zap.Int("items", len(st.items)))
				break
			}
			// Probe past a gap in the feed rather than assuming end-of-data.
			st.cursor -= w.cfg.BackoffWindow
			w.checkpoint(&st, nil)
			continue
		}

		added := make([]string, 0, len(list))
		for _, it := range list {
			if it.ID == "" {
				continue
			}
			if _, dup := st.seen[it.ID]; dup {
				continue
			}
			st.seen[it.ID] = struct{}{}
			st.items = append(st.items, it)
			added = append(added, it.ID)
			if maxItems > 0 && len(st.items) >= maxItems {
				w.finish()
				return st.items, nil
			}
		}

		st.cursor = w.advance(st.cursor, list)

		if len(added) == 0 {
			st.stalls++
		} else {
			st.stalls = 0
		}
		if st.stalls >= w.cfg.StallLimit {
			w.logger.Info("walk stalled on duplicate pages",
				zap.Int("page", page),
				zap.Int("items", len(st.items)))
			break
		}
		if st.cursor < w.cfg.FloorCursor {
			w.logger.Info("cursor crossed historical floor",
				zap.Int64("cursor", st.cursor),
				zap.Int("items", len(st.items)))
			break
		}

		w.checkpoint(&st, added)
		w.logger.Debug("fetched page",
			zap.Int("page", page),
			zap.Int("new", len(added)),
			zap.Int("total", len(st.items)))
	}

	w.finish()
	return st.items, nil
}

// advance moves the cursor to the last item's creation time. When the feed
// reports a time that does not decrease, a fixed backward shift is forced so
// progress is guaranteed.
func (w *Walker) advance(cursor int64, list []Item) int64 {
	last := list[len(list)-1].CreateTime
	if last <= 0 {
		return cursor - w.cfg.BackoffWindow
	}
	next := last * 1000
	if next >= cursor {
		return cursor - w.cfg.BackoffWindow
	}
	return next
}

func (w *Walker) restore(st *walkState) {
	if w.journal == nil {
		return
	}
	cursor, seen, ok, err := w.journal.Load()
	if err != nil {
		w.logger.Warn("checkpoint unreadable, starting from now", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	st.cursor = cursor
	for _, id := range seen {
		st.seen[id] = struct{}{}
	}
	w.logger.Info("resuming walk from checkpoint",
		zap.Int64("cursor", cursor),
		zap.Int("seen", len(seen)))
}

func (w *Walker) checkpoint(st *walkState, newIDs []string) {
	if w.journal == nil {
		return
	}
	if err := w.journal.Save(st.cursor, newIDs); err != nil {
		w.logger.Warn("checkpoint save failed", zap.Error(err))
	}
}

func (w *Walker) finish() {
	if w.journal == nil {
		return
	}
	if err := w.journal.Clear(); err != nil {
		w.logger.Warn("checkpoint clear failed", zap.Error(err))
	}
}
