package linktree

import (
	"context"
	"testing"

	"github.com/0dayMonkey/linktree-backend/internal/notion"
)

func textPage(id string, props map[string]notion.Property) notion.Page {
	return notion.Page{ID: id, Properties: props}
}

func richText(value string) notion.Property {
	return notion.Property{Type: "rich_text", RichText: []notion.RichText{{PlainText: value}}}
}

func titleText(value string) notion.Property {
	return notion.Property{Type: "title", Title: []notion.RichText{{PlainText: value}}}
}

func urlProperty(value string) notion.Property {
	return notion.Property{Type: "url", URL: &value}
}

func numberProperty(value float64) notion.Property {
	return notion.Property{Type: "number", Number: &value}
}

func testReader(store *fakeStore) *Reader {
	return NewReader(ReaderOptions{
		Store:     store,
		ProfileDB: "db_profile",
		SocialsDB: "db_socials",
		LinksDB:   "db_links",
		TracksDB:  "db_tracks",
	})
}

func TestReadDefaultsWhenEmpty(t *testing.T) {
	store := newFakeStore()
	payload, err := testReader(store).Read(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if payload.Appearance.TextColor != "#000000" {
		t.Fatalf("expected default text color, got %q", payload.Appearance.TextColor)
	}
	if payload.Appearance.Background.Type != "solid" || payload.Appearance.Background.Value != "#FFFFFF" {
		t.Fatalf("expected default background, got %+v", payload.Appearance.Background)
	}
	if len(payload.Links) != 0 || len(payload.Socials) != 0 || len(payload.Tracks) != 0 {
		t.Fatalf("expected empty collections, got %+v", payload)
	}
}

func TestReadOrdersCollectionsByOrderProperty(t *testing.T) {
	store := newFakeStore()
	store.seed("db_links",
		textPage("rec_b", map[string]notion.Property{
			"id":    numberProperty(2),
			"Title": titleText("B"),
			"URL":   urlProperty("http://b"),
			"Order": numberProperty(1),
		}),
		textPage("rec_a", map[string]notion.Property{
			"id":    numberProperty(1),
			"Title": titleText("A"),
			"URL":   urlProperty("http://a"),
			"Order": numberProperty(0),
		}),
	)
	payload, err := testReader(store).Read(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(payload.Links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(payload.Links))
	}
	if payload.Links[0].Title != "A" || payload.Links[1].Title != "B" {
		t.Fatalf("expected links ordered by Order property, got %+v", payload.Links)
	}
	if payload.Links[0].Type != "link" {
		t.Fatalf("expected default link type, got %q", payload.Links[0].Type)
	}
}

func TestReadProfileAndSectionOrder(t *testing.T) {
	store := newFakeStore()
	store.seed("db_profile", textPage("page_profile", map[string]notion.Property{
		"profile_title":   richText("harib"),
		"text_color":      richText("#222222"),
		"background_type": {Type: "select", Select: &notion.SelectOption{Name: "gradient"}},
		"section_order":   richText("tracks, links ,socials"),
		"seo_title":       richText("My page"),
	}))
	payload, err := testReader(store).Read(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if payload.ProfilePageID != "page_profile" {
		t.Fatalf("expected profile page id echoed, got %q", payload.ProfilePageID)
	}
	if payload.Profile.Title != "harib" {
		t.Fatalf("expected profile title, got %q", payload.Profile.Title)
	}
	if payload.Appearance.Background.Type != "gradient" {
		t.Fatalf("expected gradient background, got %q", payload.Appearance.Background.Type)
	}
	want := []string{"tracks", "links", "socials"}
	if len(payload.SectionOrder) != len(want) {
		t.Fatalf("expected %d sections, got %v", len(want), payload.SectionOrder)
	}
	for i, section := range want {
		if payload.SectionOrder[i] != section {
			t.Fatalf("expected section %q at %d, got %q", section, i, payload.SectionOrder[i])
		}
	}
	if payload.SEO.Title != "My page" {
		t.Fatalf("expected seo title, got %q", payload.SEO.Title)
	}
}

func TestReadNormalizesSocialNetwork(t *testing.T) {
	store := newFakeStore()
	store.seed("db_socials", textPage("rec_s", map[string]notion.Property{
		"id":      numberProperty(1),
		"Network": titleText("GitHub"),
		"URL":     urlProperty("https://github.com/x"),
	}))
	payload, err := testReader(store).Read(context.Background())
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(payload.Socials) != 1 {
		t.Fatalf("expected 1 social, got %d", len(payload.Socials))
	}
	if payload.Socials[0].Network != "github" {
		t.Fatalf("expected lowercased network, got %q", payload.Socials[0].Network)
	}
}
