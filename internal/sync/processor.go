package sync

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/store"
)

// Strategy carries the entity-specific half of a phase. The processor owns
// matching, ordering of removals, failure isolation and progress.
type Strategy[L localEntity, R remoteEntity] interface {
	// LoadLocal returns the local and mirror rows of the phase.
	LoadLocal() []L
	// Map converts a remote record to local shape, with references resolved
	// to local ids where possible. Used to evaluate filters.
	Map(remote R) L
	// Order returns the tuples in the order adds and updates are applied.
	Order(tuples []*Tuple[L, R]) []*Tuple[L, R]

	AddToLocal(ctx context.Context, t *Tuple[L, R]) error
	AddToRemote(ctx context.Context, t *Tuple[L, R]) error
	Update(ctx context.Context, t *Tuple[L, R]) error
	Remove(ctx context.Context, t *Tuple[L, R]) error
}

// processor runs one phase of a synchronization for one entity type.
type processor[L localEntity, R remoteEntity] struct {
	entityType string
	strategy   Strategy[L, R]
	remote     connection.Connector[R]
	uow        *store.UnitOfWork
	logger     zerolog.Logger
}

func newProcessor[L localEntity, R remoteEntity](entityType string, strategy Strategy[L, R], remote connection.Connector[R], uow *store.UnitOfWork, logger zerolog.Logger) *processor[L, R] {
	return &processor[L, R]{
		entityType: entityType,
		strategy:   strategy,
		remote:     remote,
		uow:        uow,
		logger:     logger.With().Str("entity_type", entityType).Logger(),
	}
}

// phase parameterizes one processor run.
type phase[L localEntity, R remoteEntity] struct {
	since    *time.Time
	include  func(*Tuple[L, R]) bool
	progress func(done, total int)
}

// applied is a tuple that went through without failure.
type applied[L localEntity, R remoteEntity] struct {
	tuple  *Tuple[L, R]
	action Action
}

type step[L localEntity, R remoteEntity] struct {
	tuple  *Tuple[L, R]
	action Action
}

// run synchronizes every tuple of the phase.
//
// Failures of single tuples are returned as results and do not stop the
// phase. A failure to fetch remote records ends the phase with one result.
// The error is non-nil only when ctx is cancelled.
func (p *processor[L, R]) run(ctx context.Context, ph phase[L, R]) ([]Result, []applied[L, R], error) {
	rows := p.strategy.LoadLocal()

	remotes, err := p.fetch(ctx, rows, ph.since)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		p.logger.Error().Err(err).Msg("Failed to fetch remote records")
		return []Result{{EntityType: p.entityType, Action: ActionFetch, Err: err}}, nil, nil
	}

	var tuples []*Tuple[L, R]
	for _, t := range Match(rows, remotes) {
		if ph.include == nil || ph.include(t) {
			tuples = append(tuples, t)
		}
	}

	// Adds and updates run parents first; removals run afterwards,
	// children first.
	var plan, removals []step[L, R]
	for _, t := range p.strategy.Order(tuples) {
		s := step[L, R]{tuple: t, action: t.Action()}
		if s.action == ActionRemove {
			removals = append(removals, s)
		} else {
			plan = append(plan, s)
		}
	}
	for i := len(removals) - 1; i >= 0; i-- {
		plan = append(plan, removals[i])
	}

	p.logger.Debug().Int("local_rows", len(rows)).Int("remote_records", len(remotes)).
		Int("tuples", len(plan)).Msg("Phase planned")

	var results []Result
	var done []applied[L, R]
	for i, s := range plan {
		if err := ctx.Err(); err != nil {
			return results, done, err
		}
		if res := p.apply(ctx, s); res != nil {
			results = append(results, *res)
		} else {
			done = append(done, applied[L, R]{tuple: s.tuple, action: s.action})
		}
		if ph.progress != nil {
			ph.progress(i+1, len(plan))
		}
	}
	return results, done, nil
}

// fetch reads the remote records changed since the last run plus every
// record the local side knows by external id. Known ids missing from the
// answer were deleted remotely.
func (p *processor[L, R]) fetch(ctx context.Context, rows []L, since *time.Time) ([]R, error) {
	var from time.Time
	if since != nil {
		from = *since
	}
	updated, err := p.remote.GetUpdatedIDs(ctx, from)
	if err != nil {
		return nil, remoteError("get updated ids", "", err)
	}

	ids := make(map[string]bool, len(updated)+len(rows))
	for _, id := range updated {
		ids[id] = true
	}
	for _, row := range rows {
		if ext := row.GetExternalID(); ext != "" {
			ids[ext] = true
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sort.Strings(list)

	remotes, err := p.remote.Get(ctx, list)
	if err != nil {
		return nil, remoteError("get", "", err)
	}
	return remotes, nil
}

// apply runs one step and commits it. On failure the staged changes of the
// step are detached so they never reach the database.
func (p *processor[L, R]) apply(ctx context.Context, s step[L, R]) *Result {
	t := s.tuple
	key := t.Key()
	entityID, externalID := t.EntityID(), t.ExternalID()

	p.uow.Own(key)
	var err error
	switch s.action {
	case ActionAddToRemote:
		err = p.strategy.AddToRemote(ctx, t)
	case ActionAddToLocal:
		err = p.strategy.AddToLocal(ctx, t)
	case ActionUpdate:
		err = p.strategy.Update(ctx, t)
	case ActionRemove:
		err = p.strategy.Remove(ctx, t)
	}
	if err == nil {
		err = p.uow.Commit(ctx)
	}
	if err != nil {
		p.uow.Detach(key)
		p.logger.Warn().Err(err).
			Str("entity_id", entityID).
			Str("external_id", externalID).
			Str("action", s.action.String()).
			Msg("Entity synchronization failed")
		return &Result{
			EntityType: p.entityType,
			EntityID:   entityID,
			ExternalID: externalID,
			Action:     s.action,
			Err:        err,
		}
	}

	p.logger.Debug().
		Str("entity_id", t.EntityID()).
		Str("external_id", t.ExternalID()).
		Str("action", s.action.String()).
		Msg("Entity synchronized")
	return nil
}
