package feed

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	profileRe = regexp.MustCompile(`tiktok\.com/@([A-Za-z0-9_.-]+)`)
	secUIDRe  = regexp.MustCompile(`"secUid"\s*:\s*"(.*?)"`)
)

// Profile is a normalized account reference.
type Profile struct {
	Username string
	URL      string
}

// NormalizeProfile accepts an @handle, a profile URL, or a raw username and
// returns the canonical username and profile URL.
func NormalizeProfile(input string) Profile {
	input = strings.TrimSpace(input)

	if strings.HasPrefix(input, "@") {
		username := strings.TrimPrefix(input, "@")
		return Profile{Username: username, URL: profileURL(username)}
	}

	if strings.Contains(input, "tiktok.com") {
		if m := profileRe.FindStringSubmatch(input); m != nil {
			return Profile{Username: m[1], URL: profileURL(m[1])}
		}
		// URL that does not match the profile shape; keep it as-is.
		return Profile{Username: "unknown", URL: input}
	}

	return Profile{Username: input, URL: profileURL(input)}
}

func profileURL(username string) string {
	return "https://www.tiktok.com/@" + username
}

// ResolveSecUID fetches the account's profile page and digs its opaque secUid
// out of the inline state scripts.
func (c *Client) ResolveSecUID(ctx context.Context, username string) (string, error) {
	pageURL := c.baseURL + "/@" + username
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch profile page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("profile page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse profile page: %w", err)
	}

	secUID := ExtractSecUID(doc)
	if secUID == "" {
		return "", fmt.Errorf("no secUid found on profile page %s", pageURL)
	}
	return secUID, nil
}

// ExtractSecUID scans the document's script tags for the secUid field.
func ExtractSecUID(doc *goquery.Document) string {
	var secUID string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := secUIDRe.FindStringSubmatch(s.Text()); m != nil {
			secUID = m[1]
			return false
		}
		return true
	})
	return secUID
}
