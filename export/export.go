// Package export writes the retrieval-ready dataset under data/<username>/rag/.
package export

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"tikdex/record"
)

// Exporter produces the rag/ tree: unified.json, records.jsonl,
// per-item JSON and markdown files, and the concatenated all_transcripts.md
// used for full-context answering.
type Exporter struct {
	store  *record.Store
	outDir string
	logger *zap.Logger
}

func NewExporter(store *record.Store, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{store: store, outDir: "rag", logger: logger}
}

func (e *Exporter) RagDir() string { return filepath.Join(e.store.Dir(), e.outDir) }

func (e *Exporter) AllTranscriptsPath() string {
	return filepath.Join(e.RagDir(), "all_transcripts.md")
}

// Export rewrites the whole rag/ tree from the unified dataset. Records are
// re-sorted newest first and counts recomputed at export time.
func (e *Exporter) Export() error {
	uni, err := e.store.LoadUnified()
	if err != nil {
		return err
	}

	records := uni.Records
	record.SortByTimestamp(records)

	ragDir := e.RagDir()
	itemsDir := filepath.Join(ragDir, "items")

	out := record.Unified{
		Profile:     uni.Profile,
		Username:    uni.Username,
		GeneratedAt: record.ISONow(),
		Counts:      record.CountRecords(records),
		Records:     records,
	}
	if err := record.WriteJSON(filepath.Join(ragDir, "unified.json"), out); err != nil {
		return err
	}
	if err := record.WriteJSONL(filepath.Join(ragDir, "records.jsonl"), records); err != nil {
		return err
	}

	var allMD []string
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		if err := record.WriteJSON(filepath.Join(itemsDir, rec.ID+".json"), rec); err != nil {
			return err
		}
		md := ItemMarkdown(rec)
		if err := record.WriteBytes(filepath.Join(itemsDir, rec.ID+".md"), []byte(md)); err != nil {
			return err
		}
		allMD = append(allMD, md)
	}

	if err := record.WriteBytes(e.AllTranscriptsPath(), []byte(strings.Join(allMD, "\n\n"))); err != nil {
		return err
	}

	e.logger.Info("exported dataset",
		zap.String("dir", ragDir),
		zap.Int("records", len(records)))
	return nil
}

// ItemMarkdown renders one record as a markdown document with a yaml metadata
// block, its title, transcript, and caption text.
func ItemMarkdown(rec record.VideoRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", rec.ID)
	b.WriteString("```yaml\n")
	fmt.Fprintf(&b, "id: %s\n", rec.ID)
	fmt.Fprintf(&b, "url: %s\n", rec.URL)
	fmt.Fprintf(&b, "timestamp: %s\n", optInt(rec.Timestamp))
	fmt.Fprintf(&b, "uploader: %s\n", rec.Uploader)
	fmt.Fprintf(&b, "duration: %s\n", optFloat(rec.Duration))
	fmt.Fprintf(&b, "view_count: %s\n", optInt(rec.ViewCount))
	fmt.Fprintf(&b, "like_count: %s\n", optInt(rec.LikeCount))
	fmt.Fprintf(&b, "comment_count: %s\n", optInt(rec.CommentCount))
	fmt.Fprintf(&b, "repost_count: %s\n", optInt(rec.RepostCount))
	b.WriteString("```\n\n")

	if title := rec.BestTitle(); title != "" {
		fmt.Fprintf(&b, "## Title/Description\n\n%s\n\n", title)
	}
	fmt.Fprintf(&b, "## Transcript (OpenAI)\n\n%s\n\n", rec.TranscriptText())
	if caps := captionText(rec); caps != "" {
		fmt.Fprintf(&b, "## Captions (TikTok)\n\n%s\n\n", caps)
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func captionText(rec record.VideoRecord) string {
	var parts []string
	for _, c := range rec.Captions {
		if c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func optInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
