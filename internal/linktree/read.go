package linktree

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/0dayMonkey/linktree-backend/internal/notion"
)

// PublicPayload is the read-side view served to the page and its editor.
// ProfilePageID is echoed so the editor can address the singleton on the
// next sync.
type PublicPayload struct {
	ProfilePageID string       `json:"profilePageId"`
	Profile       Profile      `json:"profile"`
	Appearance    Appearance   `json:"appearance"`
	SEO           SEO          `json:"seo"`
	SectionOrder  []string     `json:"sectionOrder"`
	Socials       []SocialItem `json:"socials"`
	Links         []LinkItem   `json:"links"`
	Tracks        []TrackItem  `json:"tracks"`
}

type ReaderOptions struct {
	Store     RecordStore
	ProfileDB string
	SocialsDB string
	LinksDB   string
	TracksDB  string
}

// Reader assembles the public payload from the remote store. Extraction is
// total: missing records or properties yield documented defaults, never an
// error. Split image fields are read from their primary property only; the
// companion parts exist to preserve data for re-editing, not for read paths.
type Reader struct {
	store     RecordStore
	profileDB string
	socialsDB string
	linksDB   string
	tracksDB  string
}

func NewReader(opts ReaderOptions) *Reader {
	return &Reader{
		store:     opts.Store,
		profileDB: opts.ProfileDB,
		socialsDB: opts.SocialsDB,
		linksDB:   opts.LinksDB,
		tracksDB:  opts.TracksDB,
	}
}

func (r *Reader) Read(ctx context.Context) (PublicPayload, error) {
	databases := []string{r.profileDB, r.socialsDB, r.linksDB, r.tracksDB}
	records := make([][]notion.Page, len(databases))
	errs := make([]error, len(databases))
	var wg sync.WaitGroup
	for i := range databases {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = r.store.Query(ctx, databases[i])
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return PublicPayload{}, err
		}
	}

	payload := readProfile(records[0])
	payload.Socials = readSocials(records[1])
	payload.Links = readLinks(records[2])
	payload.Tracks = readTracks(records[3])
	return payload, nil
}

func readProfile(pages []notion.Page) PublicPayload {
	payload := PublicPayload{
		Appearance: Appearance{
			TextColor:  "#000000",
			Background: Background{Type: "solid", Value: "#FFFFFF"},
			Button:     Button{BackgroundColor: "#FFFFFF", TextColor: "#000000"},
		},
	}
	if len(pages) == 0 {
		return payload
	}
	page := pages[0]
	payload.ProfilePageID = page.ID
	payload.Profile = Profile{
		Title:      TextOf(page, "profile_title"),
		PictureURL: TextOf(page, "picture_url"),
	}
	payload.Appearance = Appearance{
		FontFamily: TextOf(page, "font_family"),
		TextColor:  fallback(TextOf(page, "text_color"), "#000000"),
		Background: Background{
			Type:  fallback(SelectOf(page, "background_type"), "solid"),
			Value: fallback(TextOf(page, "background_value"), "#FFFFFF"),
		},
		Button: Button{
			BackgroundColor: fallback(TextOf(page, "button_bg_color"), "#FFFFFF"),
			TextColor:       fallback(TextOf(page, "button_text_color"), "#000000"),
		},
	}
	payload.SEO = SEO{
		Title:       TextOf(page, "seo_title"),
		Description: TextOf(page, "seo_description"),
		FaviconURL:  TextOf(page, "favicon_url"),
	}
	if raw := TextOf(page, "section_order"); raw != "" {
		for _, section := range strings.Split(raw, ",") {
			if section = strings.TrimSpace(section); section != "" {
				payload.SectionOrder = append(payload.SectionOrder, section)
			}
		}
	}
	return payload
}

func readSocials(pages []notion.Page) []SocialItem {
	sortByOrder(pages)
	items := make([]SocialItem, 0, len(pages))
	for _, page := range pages {
		items = append(items, SocialItem{
			ID:      int64(NumberOf(page, "id")),
			Network: strings.ToLower(fallback(TextOf(page, "Network"), "website")),
			URL:     URLOf(page, "URL"),
		})
	}
	return items
}

func readLinks(pages []notion.Page) []LinkItem {
	sortByOrder(pages)
	items := make([]LinkItem, 0, len(pages))
	for _, page := range pages {
		items = append(items, LinkItem{
			ID:           int64(NumberOf(page, "id")),
			Title:        TextOf(page, "Title"),
			Type:         fallback(SelectOf(page, "Type"), "link"),
			URL:          URLOf(page, "URL"),
			ThumbnailURL: TextOf(page, "Thumbnail"),
		})
	}
	return items
}

func readTracks(pages []notion.Page) []TrackItem {
	sortByOrder(pages)
	items := make([]TrackItem, 0, len(pages))
	for _, page := range pages {
		items = append(items, TrackItem{
			TrackID:     TextOf(page, "track_id"),
			Title:       TextOf(page, "Title"),
			Artist:      TextOf(page, "Artist"),
			AlbumArtURL: TextOf(page, "Album Art"),
			SourceURL:   URLOf(page, "Source URL"),
		})
	}
	return items
}

func sortByOrder(pages []notion.Page) {
	sort.SliceStable(pages, func(i, j int) bool {
		return NumberOf(pages[i], "Order") < NumberOf(pages[j], "Order")
	})
}
