package linktree

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/0dayMonkey/linktree-backend/internal/notion"
)

// fakeStore is an in-memory RecordStore. Mutations take effect immediately
// so a second reconciliation run sees the state the first one produced.
type fakeStore struct {
	mu        sync.Mutex
	pagesByDB map[string][]notion.Page
	nextID    int

	creates  int
	updates  int
	archives int

	failOn func(kind string, target string) error
	delay  time.Duration

	inFlight    int
	maxInFlight int
}

func newFakeStore() *fakeStore {
	return &fakeStore{pagesByDB: map[string][]notion.Page{}}
}

func (s *fakeStore) seed(databaseID string, pages ...notion.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagesByDB[databaseID] = append(s.pagesByDB[databaseID], pages...)
}

func (s *fakeStore) enter() {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
}

func (s *fakeStore) exit() {
	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
}

func (s *fakeStore) Query(ctx context.Context, databaseID string) ([]notion.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := make([]notion.Page, 0, len(s.pagesByDB[databaseID]))
	for _, page := range s.pagesByDB[databaseID] {
		if !page.Archived {
			pages = append(pages, page)
		}
	}
	return pages, nil
}

func (s *fakeStore) Create(ctx context.Context, databaseID string, properties map[string]any) (notion.Page, error) {
	s.enter()
	defer s.exit()
	if s.failOn != nil {
		if err := s.failOn("create", databaseID); err != nil {
			return notion.Page{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	s.nextID++
	page := notion.Page{
		ID:         fmt.Sprintf("page_%d", s.nextID),
		Properties: propertiesFromPayload(properties),
	}
	s.pagesByDB[databaseID] = append(s.pagesByDB[databaseID], page)
	return page, nil
}

func (s *fakeStore) Update(ctx context.Context, recordID string, properties map[string]any) (notion.Page, error) {
	s.enter()
	defer s.exit()
	if s.failOn != nil {
		if err := s.failOn("update", recordID); err != nil {
			return notion.Page{}, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	for db, pages := range s.pagesByDB {
		for i, page := range pages {
			if page.ID == recordID {
				updated := notion.Page{ID: recordID, Properties: propertiesFromPayload(properties)}
				s.pagesByDB[db][i] = updated
				return updated, nil
			}
		}
	}
	// Singleton records (the profile page) live outside any seeded database.
	return notion.Page{ID: recordID, Properties: propertiesFromPayload(properties)}, nil
}

func (s *fakeStore) Archive(ctx context.Context, recordID string) error {
	s.enter()
	defer s.exit()
	if s.failOn != nil {
		if err := s.failOn("archive", recordID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives++
	for db, pages := range s.pagesByDB {
		for i, page := range pages {
			if page.ID == recordID {
				s.pagesByDB[db][i].Archived = true
				return nil
			}
		}
	}
	return nil
}

func (s *fakeStore) livePages(databaseID string) []notion.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pages []notion.Page
	for _, page := range s.pagesByDB[databaseID] {
		if !page.Archived {
			pages = append(pages, page)
		}
	}
	return pages
}

// propertiesFromPayload converts a write payload back into query-shaped
// properties so later reconciliation runs can extract identities and order.
func propertiesFromPayload(payload map[string]any) map[string]notion.Property {
	props := map[string]notion.Property{}
	for name, raw := range payload {
		value, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch {
		case hasKey(value, "number"):
			if n, ok := value["number"].(float64); ok {
				num := n
				props[name] = notion.Property{Type: "number", Number: &num}
			}
		case hasKey(value, "url"):
			if u, ok := value["url"].(string); ok {
				url := u
				props[name] = notion.Property{Type: "url", URL: &url}
			} else {
				props[name] = notion.Property{Type: "url"}
			}
		case hasKey(value, "select"):
			if option, ok := value["select"].(map[string]any); ok {
				name2, _ := option["name"].(string)
				props[name] = notion.Property{Type: "select", Select: &notion.SelectOption{Name: name2}}
			} else {
				props[name] = notion.Property{Type: "select"}
			}
		case hasKey(value, "title"):
			props[name] = notion.Property{Type: "title", Title: segmentsFromPayload(value["title"])}
		case hasKey(value, "rich_text"):
			props[name] = notion.Property{Type: "rich_text", RichText: segmentsFromPayload(value["rich_text"])}
		}
	}
	return props
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func segmentsFromPayload(raw any) []notion.RichText {
	segments, ok := raw.([]map[string]any)
	if !ok {
		return nil
	}
	out := make([]notion.RichText, 0, len(segments))
	for _, segment := range segments {
		text, _ := segment["text"].(map[string]any)
		content, _ := text["content"].(string)
		out = append(out, notion.RichText{PlainText: content})
	}
	return out
}
