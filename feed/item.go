package feed

// Item is one raw entry from the creator item_list feed. Field names follow
// the upstream JSON; only the parts the pipeline consumes are decoded.
type Item struct {
	ID         string     `json:"id"`
	Desc       string     `json:"desc"`
	CreateTime int64      `json:"createTime"`
	Stats      *Stats     `json:"stats"`
	Author     *Author    `json:"author"`
	Video      *VideoMeta `json:"video"`
}

type Stats struct {
	PlayCount    int64 `json:"playCount"`
	DiggCount    int64 `json:"diggCount"`
	CommentCount int64 `json:"commentCount"`
	ShareCount   int64 `json:"shareCount"`
}

type Author struct {
	ID       string `json:"id"`
	UniqueID string `json:"uniqueId"`
}

type VideoMeta struct {
	SubtitleInfos []SubtitleInfo `json:"subtitleInfos"`
}

// SubtitleInfo describes one platform caption track. The upstream API uses
// PascalCase keys for these.
type SubtitleInfo struct {
	LanguageCodeName string `json:"LanguageCodeName"`
	LanguageID       string `json:"LanguageID"`
	URL              string `json:"Url"`
	Format           string `json:"Format"`
}

// LangKey returns the best available language identifier for a caption track.
func (s SubtitleInfo) LangKey() string {
	if s.LanguageCodeName != "" {
		return s.LanguageCodeName
	}
	if s.LanguageID != "" {
		return s.LanguageID
	}
	return "unknown"
}
