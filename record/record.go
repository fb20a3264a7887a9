package record

import (
	"sort"
	"time"
)

// Caption is one subtitle track captured for a video. Lang is the platform
// language code when known; Path is the on-disk VTT location relative to the
// profile directory.
type Caption struct {
	Path string `json:"path,omitempty"`
	Ext  string `json:"ext,omitempty"`
	Lang string `json:"lang,omitempty"`
	Text string `json:"text,omitempty"`
}

// Key identifies a caption for merge purposes: language code when present,
// source path otherwise.
func (c Caption) Key() string {
	if c.Lang != "" {
		return c.Lang
	}
	return c.Path
}

// Transcript is a speech-to-text result with provenance.
type Transcript struct {
	Text      string `json:"text"`
	Model     string `json:"model,omitempty"`
	Provider  string `json:"provider,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// VideoRecord is one catalog item. ID is the only stable identity; every other
// field is filled in progressively across runs and must never be overwritten
// by emptier data.
type VideoRecord struct {
	ID            string      `json:"id"`
	URL           string      `json:"url,omitempty"`
	Title         string      `json:"title,omitempty"`
	Description   string      `json:"description,omitempty"`
	Uploader      string      `json:"uploader,omitempty"`
	UploaderID    string      `json:"uploader_id,omitempty"`
	Timestamp     *int64      `json:"timestamp,omitempty"`
	Duration      *float64    `json:"duration,omitempty"`
	ViewCount     *int64      `json:"view_count,omitempty"`
	LikeCount     *int64      `json:"like_count,omitempty"`
	CommentCount  *int64      `json:"comment_count,omitempty"`
	RepostCount   *int64      `json:"repost_count,omitempty"`
	Source        string      `json:"source,omitempty"`
	ExtractedAt   string      `json:"extracted_at,omitempty"`
	AudioPath     string      `json:"audio_path,omitempty"`
	AudioExt      string      `json:"audio_ext,omitempty"`
	EmbedURL      string      `json:"embed_url,omitempty"`
	EmbedVideo    string      `json:"embed_video_url,omitempty"`
	MusicPlayURL  string      `json:"music_play_url,omitempty"`
	Captions      []Caption   `json:"captions,omitempty"`
	Transcript    *Transcript `json:"transcript,omitempty"`
	Error         string      `json:"error,omitempty"`
	CaptionsError string      `json:"captions_error,omitempty"`
}

// BestTitle returns the title, falling back to the description.
func (r VideoRecord) BestTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Description
}

// TranscriptText returns the transcript text, or "" when none exists.
func (r VideoRecord) TranscriptText() string {
	if r.Transcript == nil {
		return ""
	}
	return r.Transcript.Text
}

// SortKey orders records by creation time; a missing timestamp sorts last.
func (r VideoRecord) SortKey() int64 {
	if r.Timestamp == nil {
		return -1
	}
	return *r.Timestamp
}

// SortByTimestamp sorts records newest first, keeping the incoming order for
// equal keys so output stays deterministic.
func SortByTimestamp(records []VideoRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SortKey() > records[j].SortKey()
	})
}

// ISONow is the timestamp format used across all persisted documents.
func ISONow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
