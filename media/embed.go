package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"go.uber.org/zap"

	"tikdex/record"
)

const userAgent = "Mozilla/5.0"

var frontityRe = regexp.MustCompile(
	`(?s)<script id="__FRONTITY_CONNECT_STATE__" type="application/json">(.*?)</script>`)

// EmbedData is the per-video payload dug out of the public embed page.
type EmbedData struct {
	Title        string
	Duration     float64
	Uploader     string
	UploaderID   string
	VideoURLs    []string
	MusicPlayURL string
}

// EmbedClient fetches and parses /embed/v2 pages.
type EmbedClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewEmbedClient(logger *zap.Logger) *EmbedClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbedClient{
		baseURL: "https://www.tiktok.com",
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL overrides the upstream host, used by tests.
func (c *EmbedClient) WithBaseURL(base string) *EmbedClient {
	c.baseURL = base
	return c
}

// EmbedURL returns the public embed page URL for a video id.
func (c *EmbedClient) EmbedURL(videoID string) string {
	return c.baseURL + "/embed/v2/" + videoID
}

// Fetch loads the embed page for a video and extracts its media data. A page
// without the expected state blob yields a nil EmbedData and an error the
// caller records as a per-item diagnostic.
func (c *EmbedClient) Fetch(ctx context.Context, videoID string) (*EmbedData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.EmbedURL(videoID), nil)
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch embed page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embed page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embed page: %w", err)
	}

	return ParseEmbedHTML(body, videoID)
}

// frontityState mirrors the slice of the embed page state the pipeline needs.
type frontityState struct {
	Source struct {
		Data map[string]struct {
			VideoData *struct {
				ItemInfos struct {
					Text  string `json:"text"`
					Video struct {
						URLs      []string `json:"urls"`
						VideoMeta struct {
							Duration float64 `json:"duration"`
						} `json:"videoMeta"`
					} `json:"video"`
				} `json:"itemInfos"`
				MusicInfos struct {
					PlayURL []string `json:"playUrl"`
				} `json:"musicInfos"`
				AuthorInfos struct {
					UniqueID string `json:"uniqueId"`
					UserID   string `json:"userId"`
				} `json:"authorInfos"`
			} `json:"videoData"`
		} `json:"data"`
	} `json:"source"`
}

// ParseEmbedHTML extracts the embed state blob for one video id from raw page
// HTML.
func ParseEmbedHTML(html []byte, videoID string) (*EmbedData, error) {
	m := frontityRe.FindSubmatch(html)
	if m == nil {
		return nil, fmt.Errorf("no embed state found for video %s", videoID)
	}

	var state frontityState
	if err := json.Unmarshal(m[1], &state); err != nil {
		return nil, fmt.Errorf("decode embed state for video %s: %w", videoID, err)
	}

	entry, ok := state.Source.Data["/embed/v2/"+videoID]
	if !ok || entry.VideoData == nil {
		return nil, fmt.Errorf("embed state has no data for video %s", videoID)
	}

	vd := entry.VideoData
	data := &EmbedData{
		Title:      vd.ItemInfos.Text,
		Duration:   vd.ItemInfos.Video.VideoMeta.Duration,
		Uploader:   vd.AuthorInfos.UniqueID,
		UploaderID: vd.AuthorInfos.UserID,
		VideoURLs:  vd.ItemInfos.Video.URLs,
	}
	if len(vd.MusicInfos.PlayURL) > 0 {
		data.MusicPlayURL = vd.MusicInfos.PlayURL[0]
	}
	return data, nil
}

// DownloadCaption fetches a VTT subtitle file to disk.
func (c *EmbedClient) DownloadCaption(ctx context.Context, subURL, outPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, subURL, nil)
	if err != nil {
		return fmt.Errorf("build caption request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch caption: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("caption fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read caption body: %w", err)
	}
	return record.WriteBytes(outPath, body)
}
