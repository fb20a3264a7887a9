// Package pipeline wires the crawl, dataset, and index stages together. Each
// stage reads and rewrites whole documents under data/<username>/, so stages
// can be re-run independently and in any order once their inputs exist.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tikdex/feed"
	"tikdex/media"
	"tikdex/record"
)

// CrawlOptions are the per-run crawl knobs.
type CrawlOptions struct {
	// MaxVideos caps the walk; 0 means no cap.
	MaxVideos int
	// SkipExisting reuses stored records that already carry audio instead of
	// re-fetching their embed pages.
	SkipExisting bool
	// WriteCaptions downloads platform subtitle tracks alongside the audio.
	WriteCaptions bool
	// Sleep is the pause between per-item enrichment requests.
	Sleep time.Duration
	// Resume checkpoints walk progress in bolt so an aborted run continues
	// from its last cursor.
	Resume bool
}

// AudioExtractor pulls the audio track of a remote media URL to disk.
// media.AudioExtractor is the ffmpeg-backed implementation.
type AudioExtractor interface {
	Extract(ctx context.Context, sourceURL, outPath string) error
}

// CrawlResult summarizes one crawl run.
type CrawlResult struct {
	RunID    string
	Username string
	Fetched  int
	Total    int
}

// Crawler runs the full capture stage: resolve the account, walk its feed,
// enrich each item from its embed page, extract audio, and reconcile with the
// stored index.
type Crawler struct {
	feed      *feed.Client
	embed     *media.EmbedClient
	audio     AudioExtractor
	dataRoot  string
	walkerCfg feed.WalkerConfig
	logger    *zap.Logger
}

func NewCrawler(feedClient *feed.Client, embedClient *media.EmbedClient, audio AudioExtractor, dataRoot string, walkerCfg feed.WalkerConfig, logger *zap.Logger) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		feed:      feedClient,
		embed:     embedClient,
		audio:     audio,
		dataRoot:  dataRoot,
		walkerCfg: walkerCfg,
		logger:    logger,
	}
}

// Run crawls one profile end to end and persists the reconciled index.
func (c *Crawler) Run(ctx context.Context, profileInput string, opts CrawlOptions) (*CrawlResult, error) {
	runID := uuid.NewString()
	prof := feed.NormalizeProfile(profileInput)
	logger := c.logger.With(zap.String("run_id", runID), zap.String("username", prof.Username))

	store := record.NewStore(c.dataRoot, prof.Username)

	secUID, err := c.feed.ResolveSecUID(ctx, prof.Username)
	if err != nil {
		return nil, fmt.Errorf("resolve account %s: %w", prof.Username, err)
	}

	walker := feed.NewWalker(c.feed.ForAccount(secUID), c.walkerCfg, logger)
	if opts.Resume {
		journal, err := feed.OpenBoltJournal(filepath.Join(store.Dir(), "checkpoint.db"), prof.Username)
		if err != nil {
			return nil, fmt.Errorf("open crawl checkpoint: %w", err)
		}
		defer journal.Close()
		walker = walker.WithJournal(journal)
	}

	items, walkErr := walker.Walk(ctx, opts.MaxVideos)
	logger.Info("walk finished", zap.Int("items", len(items)), zap.Error(walkErr))

	prior, err := store.LoadIndex()
	if err != nil {
		return nil, err
	}
	priorByID := make(map[string]record.VideoRecord, len(prior.Records))
	for _, r := range prior.Records {
		if r.ID != "" {
			priorByID[r.ID] = r
		}
	}

	fresh := make([]record.VideoRecord, 0, len(items))
	for i, it := range items {
		if it.ID == "" {
			continue
		}
		if opts.SkipExisting {
			if stored, ok := priorByID[it.ID]; ok && stored.AudioPath != "" {
				fresh = append(fresh, stored)
				continue
			}
		}

		logger.Debug("enriching item", zap.Int("n", i+1), zap.String("id", it.ID))
		rec := c.enrich(ctx, store, prof, it, opts.WriteCaptions)
		fresh = append(fresh, rec)

		if opts.Sleep > 0 {
			time.Sleep(opts.Sleep)
		}
	}

	records := record.Reconcile(fresh, prior.Records).Records()
	if err := store.SaveIndex(prof.URL, prof.Username, records); err != nil {
		return nil, err
	}

	result := &CrawlResult{
		RunID:    runID,
		Username: prof.Username,
		Fetched:  len(fresh),
		Total:    len(records),
	}
	// A mid-walk fetch error still persists everything gathered before it.
	return result, walkErr
}

// enrich builds the full record for one feed item: base fields from the feed,
// media fields from the embed page, an extracted audio track, and optionally
// caption tracks. Failures land in the record's error fields instead of
// aborting the run.
func (c *Crawler) enrich(ctx context.Context, store *record.Store, prof feed.Profile, it feed.Item, writeCaptions bool) record.VideoRecord {
	rec := baseRecord(prof, it)

	data, err := c.embed.Fetch(ctx, it.ID)
	if err != nil {
		rec.Error = err.Error()
	} else {
		applyEmbedData(&rec, data, c.embed.EmbedURL(it.ID))
		c.extractAudio(ctx, store, &rec, data)
	}

	if writeCaptions {
		c.fetchCaptions(ctx, store, &rec, it)
	}
	return rec
}

func baseRecord(prof feed.Profile, it feed.Item) record.VideoRecord {
	rec := record.VideoRecord{
		ID:          it.ID,
		URL:         fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", prof.Username, it.ID),
		Description: it.Desc,
		Source:      "tiktok",
		ExtractedAt: record.ISONow(),
	}
	if it.CreateTime > 0 {
		ts := it.CreateTime
		rec.Timestamp = &ts
	}
	if it.Stats != nil {
		rec.ViewCount = int64p(it.Stats.PlayCount)
		rec.LikeCount = int64p(it.Stats.DiggCount)
		rec.CommentCount = int64p(it.Stats.CommentCount)
		rec.RepostCount = int64p(it.Stats.ShareCount)
	}
	if it.Author != nil {
		rec.Uploader = it.Author.UniqueID
		rec.UploaderID = it.Author.ID
	}
	return rec
}

func applyEmbedData(rec *record.VideoRecord, data *media.EmbedData, embedURL string) {
	rec.Title = data.Title
	rec.EmbedURL = embedURL
	rec.MusicPlayURL = data.MusicPlayURL
	if data.Duration > 0 {
		d := data.Duration
		rec.Duration = &d
	}
	if data.Uploader != "" {
		rec.Uploader = data.Uploader
	}
	if data.UploaderID != "" {
		rec.UploaderID = data.UploaderID
	}
	if len(data.VideoURLs) > 0 {
		rec.EmbedVideo = data.VideoURLs[0]
	}
}

// extractAudio pulls the mp3 track from the embed's video URL, falling back
// to the music-only URL for slideshow posts.
func (c *Crawler) extractAudio(ctx context.Context, store *record.Store, rec *record.VideoRecord, data *media.EmbedData) {
	sourceURL := ""
	if len(data.VideoURLs) > 0 {
		sourceURL = data.VideoURLs[0]
	} else if data.MusicPlayURL != "" {
		sourceURL = data.MusicPlayURL
	}
	if sourceURL == "" {
		rec.Error = "no media URLs found in embed data"
		return
	}

	outPath := filepath.Join(store.AudioDir(), rec.ID+".mp3")
	if err := c.audio.Extract(ctx, sourceURL, outPath); err != nil {
		rec.Error = err.Error()
		return
	}
	rec.AudioPath = filepath.Join("audio", rec.ID+".mp3")
	rec.AudioExt = "mp3"
}

func (c *Crawler) fetchCaptions(ctx context.Context, store *record.Store, rec *record.VideoRecord, it feed.Item) {
	if it.Video == nil || len(it.Video.SubtitleInfos) == 0 {
		return
	}
	var caps []record.Caption
	for _, sub := range it.Video.SubtitleInfos {
		if sub.URL == "" {
			continue
		}
		lang := sub.LangKey()
		name := rec.ID + "." + lang + ".vtt"
		outPath := filepath.Join(store.AudioDir(), name)
		if err := c.embed.DownloadCaption(ctx, sub.URL, outPath); err != nil {
			rec.CaptionsError = err.Error()
			return
		}
		text, err := media.VTTToText(outPath)
		if err != nil {
			rec.CaptionsError = err.Error()
			return
		}
		caps = append(caps, record.Caption{
			Path: filepath.Join("audio", name),
			Ext:  "vtt",
			Lang: lang,
			Text: text,
		})
	}
	if len(caps) > 0 {
		rec.Captions = caps
	}
}

func int64p(v int64) *int64 { return &v }
