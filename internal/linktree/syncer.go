package linktree

import (
	"context"
	"strings"
	"sync"

	"github.com/0dayMonkey/linktree-backend/internal/notion"
)

type SyncerOptions struct {
	Store          RecordStore
	SocialsDB      string
	LinksDB        string
	TracksDB       string
	MaxConcurrency int
	Logger         Logger
}

// Syncer reconciles a full desired-state payload against the remote store:
// one singleton profile update plus one container reconciliation per item
// collection, all applied as a single bounded-concurrency batch.
type Syncer struct {
	store     RecordStore
	engine    *Engine
	socialsDB string
	linksDB   string
	tracksDB  string
}

func NewSyncer(opts SyncerOptions) *Syncer {
	return &Syncer{
		store: opts.Store,
		engine: NewEngine(EngineOptions{
			Store:          opts.Store,
			MaxConcurrency: opts.MaxConcurrency,
			Logger:         opts.Logger,
		}),
		socialsDB: opts.SocialsDB,
		linksDB:   opts.LinksDB,
		tracksDB:  opts.TracksDB,
	}
}

// SyncSummary counts the operations a sync emitted.
type SyncSummary struct {
	Created  int `json:"created"`
	Updated  int `json:"updated"`
	Archived int `json:"archived"`
}

type containerPlan struct {
	spec       ContainerSpec
	databaseID string
	items      []Item
}

// Sync brings the remote state in line with payload. It fails fast on a
// missing profile page id, queries every container, plans the diff, and
// applies the whole batch. A partial batch failure leaves the remote state
// partially reconciled; the first failing operation is reported.
func (s *Syncer) Sync(ctx context.Context, payload UpdatePayload) (SyncSummary, error) {
	if strings.TrimSpace(payload.ProfilePageID) == "" {
		return SyncSummary{}, ErrMissingProfile
	}

	plans := []containerPlan{
		{spec: SocialsContainer, databaseID: s.socialsDB, items: socialItems(payload.Socials)},
		{spec: LinksContainer, databaseID: s.linksDB, items: linkItems(payload.Links)},
		{spec: TracksContainer, databaseID: s.tracksDB, items: trackItems(payload.Tracks)},
	}

	records := make([][]notion.Page, len(plans))
	errs := make([]error, len(plans))
	var wg sync.WaitGroup
	for i := range plans {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records[i], errs[i] = s.store.Query(ctx, plans[i].databaseID)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			return SyncSummary{}, &OperationError{
				Op:  Operation{Kind: "query", Container: plans[i].spec.Name, DatabaseID: plans[i].databaseID},
				Err: err,
			}
		}
	}

	ops := []Operation{ProfileOperation(payload)}
	for i, plan := range plans {
		ops = append(ops, PlanContainer(plan.spec, plan.databaseID, records[i], plan.items)...)
	}

	summary := SyncSummary{}
	for _, op := range ops {
		switch op.Kind {
		case OpCreate:
			summary.Created++
		case OpUpdate:
			summary.Updated++
		case OpArchive:
			summary.Archived++
		}
	}

	if err := s.engine.Apply(ctx, ops); err != nil {
		return SyncSummary{}, err
	}
	return summary, nil
}

func socialItems(items []SocialItem) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func linkItems(items []LinkItem) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func trackItems(items []TrackItem) []Item {
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
