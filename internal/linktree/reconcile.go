package linktree

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/0dayMonkey/linktree-backend/internal/notion"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingProfile is a caller contract violation: the profile record
	// must exist before any sync and its identifier must be supplied.
	ErrMissingProfile = errors.New("profile page id is required")
)

// RecordStore is the remote structured-record store collaborator. Query
// returns only non-archived records, across all pages.
type RecordStore interface {
	Query(ctx context.Context, databaseID string) ([]notion.Page, error)
	Create(ctx context.Context, databaseID string, properties map[string]any) (notion.Page, error)
	Update(ctx context.Context, recordID string, properties map[string]any) (notion.Page, error)
	Archive(ctx context.Context, recordID string) error
}

type OpKind string

const (
	OpCreate  OpKind = "create"
	OpUpdate  OpKind = "update"
	OpArchive OpKind = "archive"
)

// Operation is one store mutation. Operations in a batch are mutually
// independent and may be applied in any order.
type Operation struct {
	Kind       OpKind
	Container  string
	DatabaseID string
	RecordID   string
	Identity   string
	Properties map[string]any
}

// OperationError identifies the failing operation of a batch.
type OperationError struct {
	Op  Operation
	Err error
}

func (e *OperationError) Error() string {
	target := e.Op.RecordID
	if target == "" {
		target = e.Op.DatabaseID
	}
	if e.Op.Identity != "" {
		return fmt.Sprintf("%s %s failed (item %s, target %s): %v", e.Op.Container, e.Op.Kind, e.Op.Identity, target, e.Err)
	}
	return fmt.Sprintf("%s %s failed (target %s): %v", e.Op.Container, e.Op.Kind, target, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// PlanContainer computes the operations that bring a container's records in
// line with the desired item sequence: one update per matched item, one
// create per new item, one archive per unclaimed record. Surviving records
// get Order equal to their item's position in the input.
func PlanContainer(spec ContainerSpec, databaseID string, records []notion.Page, items []Item) []Operation {
	matched := MatchIdentities(spec, records, items)
	ops := make([]Operation, 0, len(matched.Matches)+len(matched.Orphans))
	for i, match := range matched.Matches {
		op := Operation{
			Container:  spec.Name,
			Identity:   match.Item.Identity(),
			Properties: BuildProperties(spec, match.Item, i),
		}
		if match.Record != nil {
			op.Kind = OpUpdate
			op.RecordID = match.Record.ID
		} else {
			op.Kind = OpCreate
			op.DatabaseID = databaseID
		}
		ops = append(ops, op)
	}
	for _, orphan := range matched.Orphans {
		ops = append(ops, Operation{
			Kind:      OpArchive,
			Container: spec.Name,
			RecordID:  orphan.ID,
		})
	}
	return ops
}

type Logger interface {
	Printf(format string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Printf(format string, args ...any) {}

type EngineOptions struct {
	Store          RecordStore
	MaxConcurrency int
	Logger         Logger
}

// Engine applies operation batches against the record store through a
// fixed-width worker pool.
type Engine struct {
	store          RecordStore
	maxConcurrency int
	logger         Logger
}

func NewEngine(opts EngineOptions) *Engine {
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger{}
	}
	return &Engine{
		store:          opts.Store,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Apply dispatches ops concurrently, at most maxConcurrency in flight, and
// waits for every dispatched operation to settle. There is no transaction:
// operations that succeed before another fails are not rolled back. The
// first failure is returned wrapped in an OperationError; operations never
// dispatched because ctx expired are reported as unsettled.
func (e *Engine) Apply(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		return nil
	}
	sem := make(chan struct{}, e.maxConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	undispatched := 0

	for i := range ops {
		op := ops[i]
		if ctx.Err() != nil {
			undispatched++
			continue
		}
		select {
		case <-ctx.Done():
			undispatched++
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := e.applyOne(ctx, op); err != nil {
				e.logger.Printf("sync: %s %s failed: %v", op.Container, op.Kind, err)
				mu.Lock()
				if firstErr == nil {
					firstErr = &OperationError{Op: op, Err: err}
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if undispatched > 0 && firstErr == nil {
		firstErr = fmt.Errorf("%d operations not dispatched: %w", undispatched, ctx.Err())
	}
	return firstErr
}

func (e *Engine) applyOne(ctx context.Context, op Operation) error {
	switch op.Kind {
	case OpCreate:
		_, err := e.store.Create(ctx, op.DatabaseID, op.Properties)
		return err
	case OpUpdate:
		_, err := e.store.Update(ctx, op.RecordID, op.Properties)
		return err
	case OpArchive:
		return e.store.Archive(ctx, op.RecordID)
	default:
		return fmt.Errorf("%w: unknown operation kind %q", ErrInvalidInput, op.Kind)
	}
}
