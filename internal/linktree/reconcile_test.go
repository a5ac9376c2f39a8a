package linktree

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func opCounts(ops []Operation) (creates, updates, archives int) {
	for _, op := range ops {
		switch op.Kind {
		case OpCreate:
			creates++
		case OpUpdate:
			updates++
		case OpArchive:
			archives++
		}
	}
	return
}

func TestPlanContainerEndToEndScenario(t *testing.T) {
	// Desired links {1, 2} against existing records {1, 3}:
	// one update, one create, one archive.
	store := newFakeStore()
	store.seed("db_links", numberPage("rec_1", 1), numberPage("rec_3", 3))
	records, _ := store.Query(context.Background(), "db_links")

	items := []Item{
		LinkItem{ID: 1, Title: "A", URL: "http://a"},
		LinkItem{ID: 2, Title: "B", URL: "http://b"},
	}
	ops := PlanContainer(LinksContainer, "db_links", records, items)

	creates, updates, archives := opCounts(ops)
	if creates != 1 || updates != 1 || archives != 1 {
		t.Fatalf("expected 1/1/1 create/update/archive, got %d/%d/%d", creates, updates, archives)
	}
	for _, op := range ops {
		switch op.Kind {
		case OpUpdate:
			if op.RecordID != "rec_1" {
				t.Fatalf("expected update on rec_1, got %s", op.RecordID)
			}
			if got := numberProp(t, op.Properties, "Order"); got != 0 {
				t.Fatalf("expected Order 0 on updated record, got %v", got)
			}
		case OpCreate:
			if op.Identity != "2" {
				t.Fatalf("expected create for item 2, got %s", op.Identity)
			}
			if got := numberProp(t, op.Properties, "Order"); got != 1 {
				t.Fatalf("expected Order 1 on created record, got %v", got)
			}
		case OpArchive:
			if op.RecordID != "rec_3" {
				t.Fatalf("expected archive of rec_3, got %s", op.RecordID)
			}
		}
	}
}

func TestPlanContainerReordering(t *testing.T) {
	// After syncing [A,B,C], syncing [C,A] gives C Order 0, A Order 1, and
	// archives B's record.
	store := newFakeStore()
	engine := NewEngine(EngineOptions{Store: store})
	ctx := context.Background()

	first := []Item{LinkItem{ID: 1, Title: "A"}, LinkItem{ID: 2, Title: "B"}, LinkItem{ID: 3, Title: "C"}}
	records, _ := store.Query(ctx, "db_links")
	if err := engine.Apply(ctx, PlanContainer(LinksContainer, "db_links", records, first)); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	second := []Item{LinkItem{ID: 3, Title: "C"}, LinkItem{ID: 1, Title: "A"}}
	records, _ = store.Query(ctx, "db_links")
	ops := PlanContainer(LinksContainer, "db_links", records, second)
	if err := engine.Apply(ctx, ops); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}

	creates, updates, archives := opCounts(ops)
	if creates != 0 || updates != 2 || archives != 1 {
		t.Fatalf("expected 0/2/1 create/update/archive, got %d/%d/%d", creates, updates, archives)
	}
	survivors := store.livePages("db_links")
	if len(survivors) != 2 {
		t.Fatalf("expected 2 surviving records, got %d", len(survivors))
	}
	for _, page := range survivors {
		identity := IdentityOf(LinksContainer, page)
		order := NumberOf(page, "Order")
		switch identity {
		case "3":
			if order != 0 {
				t.Fatalf("expected C at Order 0, got %v", order)
			}
		case "1":
			if order != 1 {
				t.Fatalf("expected A at Order 1, got %v", order)
			}
		default:
			t.Fatalf("unexpected surviving identity %q", identity)
		}
	}
}

func TestReconciliationIsIdempotent(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(EngineOptions{Store: store})
	ctx := context.Background()
	items := []Item{
		SocialItem{ID: 1, Network: "github", URL: "https://github.com/x"},
		SocialItem{ID: 2, Network: "mastodon", URL: "https://m.example/@x"},
	}

	records, _ := store.Query(ctx, "db_socials")
	if err := engine.Apply(ctx, PlanContainer(SocialsContainer, "db_socials", records, items)); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}

	records, _ = store.Query(ctx, "db_socials")
	ops := PlanContainer(SocialsContainer, "db_socials", records, items)
	creates, updates, archives := opCounts(ops)
	if creates != 0 || archives != 0 {
		t.Fatalf("second run must not create or archive, got %d creates %d archives", creates, archives)
	}
	if updates != len(items) {
		t.Fatalf("expected %d no-op updates, got %d", len(items), updates)
	}
}

func TestIdentityStableAcrossFieldChange(t *testing.T) {
	// Changing only the url of an item matched by the same id yields exactly
	// one update on the same record, never a create+archive pair.
	store := newFakeStore()
	engine := NewEngine(EngineOptions{Store: store})
	ctx := context.Background()

	records, _ := store.Query(ctx, "db_links")
	if err := engine.Apply(ctx, PlanContainer(LinksContainer, "db_links", records, []Item{LinkItem{ID: 9, Title: "X", URL: "http://old"}})); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	before := store.livePages("db_links")
	if len(before) != 1 {
		t.Fatalf("expected 1 record, got %d", len(before))
	}

	records, _ = store.Query(ctx, "db_links")
	ops := PlanContainer(LinksContainer, "db_links", records, []Item{LinkItem{ID: 9, Title: "X", URL: "http://new"}})
	if len(ops) != 1 || ops[0].Kind != OpUpdate {
		t.Fatalf("expected exactly one update, got %+v", ops)
	}
	if ops[0].RecordID != before[0].ID {
		t.Fatalf("expected update on %s, got %s", before[0].ID, ops[0].RecordID)
	}
}

func TestEngineBoundsConcurrency(t *testing.T) {
	store := newFakeStore()
	store.delay = 10 * time.Millisecond
	engine := NewEngine(EngineOptions{Store: store, MaxConcurrency: 2})

	items := make([]Item, 12)
	for i := range items {
		items[i] = LinkItem{ID: int64(i + 1), Title: fmt.Sprintf("link %d", i+1)}
	}
	ops := PlanContainer(LinksContainer, "db_links", nil, items)
	if err := engine.Apply(context.Background(), ops); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if store.maxInFlight > 2 {
		t.Fatalf("expected at most 2 operations in flight, observed %d", store.maxInFlight)
	}
	if store.creates != 12 {
		t.Fatalf("expected all 12 creates to settle, got %d", store.creates)
	}
}

func TestEngineReportsFirstFailureAndFinishesBatch(t *testing.T) {
	store := newFakeStore()
	store.failOn = func(kind, target string) error {
		if kind == "archive" {
			return errors.New("store exploded")
		}
		return nil
	}
	store.seed("db_links", numberPage("rec_dead", 99))
	engine := NewEngine(EngineOptions{Store: store})

	records, _ := store.Query(context.Background(), "db_links")
	ops := PlanContainer(LinksContainer, "db_links", records, []Item{LinkItem{ID: 1, Title: "A"}})
	err := engine.Apply(context.Background(), ops)
	if err == nil {
		t.Fatalf("expected batch failure")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %T: %v", err, err)
	}
	if opErr.Op.Kind != OpArchive || opErr.Op.RecordID != "rec_dead" {
		t.Fatalf("expected failure identifying archive of rec_dead, got %+v", opErr.Op)
	}
	// The create is independent and must have settled despite the failure.
	if store.creates != 1 {
		t.Fatalf("expected independent create to settle, got %d", store.creates)
	}
}

func TestEngineReportsUndispatchedOnCanceledContext(t *testing.T) {
	store := newFakeStore()
	engine := NewEngine(EngineOptions{Store: store, MaxConcurrency: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ops := PlanContainer(LinksContainer, "db_links", nil, []Item{LinkItem{ID: 1}, LinkItem{ID: 2}})
	err := engine.Apply(ctx, ops)
	if err == nil {
		t.Fatalf("expected error for canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}
