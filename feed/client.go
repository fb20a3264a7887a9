package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://www.tiktok.com"
	userAgent      = "Mozilla/5.0"
	pageSize       = 15
)

// deviceIDMin/Max bound the random web device id the endpoint expects.
const (
	deviceIDMin = 7250000000000000000
	deviceIDMax = 7351147085025500000
)

// Client fetches creator item_list pages for one account. It satisfies
// PageSource once bound to a secUid via ForAccount.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		logger: logger,
	}
}

// WithBaseURL overrides the upstream host, used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// ForAccount binds the client to a resolved account id, producing a PageSource.
func (c *Client) ForAccount(secUID string) *AccountSource {
	return &AccountSource{client: c, secUID: secUID}
}

// AccountSource is a PageSource over one creator's feed.
type AccountSource struct {
	client *Client
	secUID string
}

type itemListResponse struct {
	ItemList []Item `json:"itemList"`
}

// FetchPage requests one page at the given cursor and returns its raw items.
// An empty page is returned as a nil slice with no error.
func (s *AccountSource) FetchPage(ctx context.Context, cursor int64) ([]Item, error) {
	u := s.client.baseURL + "/api/creator/item_list/?" + itemListParams(s.secUID, cursor).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build item_list request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("item_list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("item_list returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed itemListResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode item_list response: %w", err)
	}
	return parsed.ItemList, nil
}

// itemListParams builds the browser-shaped query the endpoint expects. A fresh
// random device id per request keeps pages from being tied to one session.
func itemListParams(secUID string, cursor int64) url.Values {
	deviceID := deviceIDMin + rand.Int63n(deviceIDMax-deviceIDMin)
	verify := make([]byte, 7)
	const hex = "0123456789abcdef"
	for i := range verify {
		verify[i] = hex[rand.Intn(len(hex))]
	}

	return url.Values{
		"aid":              {"1988"},
		"app_language":     {"en"},
		"app_name":         {"tiktok_web"},
		"browser_language": {"en-US"},
		"browser_name":     {"Mozilla"},
		"browser_online":   {"true"},
		"browser_platform": {"Win32"},
		"browser_version":  {"5.0 (Windows)"},
		"channel":          {"tiktok_web"},
		"cookie_enabled":   {"true"},
		"count":            {strconv.Itoa(pageSize)},
		"cursor":           {strconv.FormatInt(cursor, 10)},
		"device_id":        {strconv.FormatInt(deviceID, 10)},
		"device_platform":  {"web_pc"},
		"focus_state":      {"true"},
		"from_page":        {"user"},
		"history_len":      {"2"},
		"is_fullscreen":    {"false"},
		"is_page_visible":  {"true"},
		"language":         {"en"},
		"os":               {"windows"},
		"priority_region":  {""},
		"referer":          {""},
		"region":           {"US"},
		"screen_height":    {"1080"},
		"screen_width":     {"1920"},
		"secUid":           {secUID},
		"type":             {"1"},
		"tz_name":          {"UTC"},
		"verifyFp":         {"verify_" + string(verify)},
		"webcast_language": {"en"},
	}
}
