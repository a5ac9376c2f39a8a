package linktree

import "strconv"

// Item is one desired entry of an ordered collection. Identity returns the
// stable key used to match the item against existing records; Fields returns
// logical field values keyed by store property name. Identity and position
// properties are stamped by the engine, not by Fields.
type Item interface {
	Identity() string
	Fields() map[string]any
}

type SocialItem struct {
	ID      int64  `json:"id"`
	Network string `json:"network"`
	URL     string `json:"url"`
}

func (s SocialItem) Identity() string {
	return strconv.FormatInt(s.ID, 10)
}

func (s SocialItem) Fields() map[string]any {
	return map[string]any{
		"Network": fallback(s.Network, "website"),
		"URL":     s.URL,
	}
}

type LinkItem struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

func (l LinkItem) Identity() string {
	return strconv.FormatInt(l.ID, 10)
}

func (l LinkItem) Fields() map[string]any {
	return map[string]any{
		"Title":     l.Title,
		"Type":      fallback(l.Type, "link"),
		"URL":       l.URL,
		"Thumbnail": l.ThumbnailURL,
	}
}

type TrackItem struct {
	TrackID     string `json:"trackId"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	AlbumArtURL string `json:"albumArtUrl"`
	SourceURL   string `json:"sourceUrl"`
}

func (t TrackItem) Identity() string {
	return t.TrackID
}

func (t TrackItem) Fields() map[string]any {
	return map[string]any{
		"Title":      t.Title,
		"Artist":     t.Artist,
		"Album Art":  t.AlbumArtURL,
		"Source URL": t.SourceURL,
	}
}

type Profile struct {
	Title      string `json:"title"`
	PictureURL string `json:"pictureUrl"`
}

type Background struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type Button struct {
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
}

type Appearance struct {
	FontFamily string     `json:"fontFamily"`
	TextColor  string     `json:"textColor"`
	Background Background `json:"background"`
	Button     Button     `json:"button"`
}

type SEO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	FaviconURL  string `json:"faviconUrl"`
}

// UpdatePayload is the wholesale desired state submitted on every
// synchronization call.
type UpdatePayload struct {
	ProfilePageID string       `json:"profilePageId"`
	Profile       Profile      `json:"profile"`
	Appearance    Appearance   `json:"appearance"`
	SEO           SEO          `json:"seo"`
	SectionOrder  []string     `json:"sectionOrder"`
	Socials       []SocialItem `json:"socials"`
	Links         []LinkItem   `json:"links"`
	Tracks        []TrackItem  `json:"tracks"`
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
