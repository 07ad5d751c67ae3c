package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/model"
	"github.com/mrsbim/bimsync/internal/store"
)

// Options configures a Synchronizer.
type Options struct {
	// Logger receives per-run and per-entity events. Defaults to a no-op logger.
	Logger *zerolog.Logger

	// NewID generates ids for new local and mirror rows. Defaults to UUIDs.
	NewID func() string

	// Clock returns the time recorded as the end of a run. Defaults to time.Now.
	Clock func() time.Time
}

// Synchronizer runs synchronizations against one local database.
type Synchronizer struct {
	db     *store.DB
	logger zerolog.Logger
	newID  func() string
	clock  func() time.Time
}

var _ Engine = (*Synchronizer)(nil)

// New creates a Synchronizer for db.
func New(db *store.DB, opts *Options) *Synchronizer {
	s := &Synchronizer{
		db:     db,
		logger: zerolog.Nop(),
		newID:  uuid.NewString,
		clock:  time.Now,
	}
	if opts != nil {
		if opts.Logger != nil {
			s.logger = *opts.Logger
		}
		if opts.NewID != nil {
			s.newID = opts.NewID
		}
		if opts.Clock != nil {
			s.clock = opts.Clock
		}
	}
	return s
}

// session holds the resources of one run. close releases them in reverse
// order of acquisition.
type session struct {
	uow    *store.UnitOfWork
	remote connection.Context
}

func (s *Synchronizer) open(ctx context.Context, conn connection.Connection, info connection.Info) (*session, error) {
	if conn == nil {
		return nil, fmt.Errorf("%w: no connection", ErrSetup)
	}
	uow, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	remote, err := conn.GetContext(ctx, info)
	if err != nil {
		_ = uow.Close()
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	return &session{uow: uow, remote: remote}, nil
}

func (ss *session) close() error {
	rerr := ss.remote.Close()
	uerr := ss.uow.Close()
	if rerr != nil {
		return rerr
	}
	return uerr
}

// Synchronize runs one synchronization: projects, then the objectives of
// the projects that synchronized without failure.
func (s *Synchronizer) Synchronize(ctx context.Context, run RunConfig, conn connection.Connection, info connection.Info, progress Progress) (results []Result, err error) {
	logger := s.logger.With().Str("user_id", run.UserID).Str("connection", info.Type).Logger()
	started := s.clock()

	ss, err := s.open(ctx, conn, info)
	if err != nil {
		logger.Error().Err(err).Msg("Synchronization setup failed")
		return nil, err
	}
	defer func() {
		if cerr := ss.close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to release synchronization resources")
		}
	}()

	logger.Info().Bool("incremental", run.Date != nil).Msg("Synchronization started")
	tracker := newProgressTracker(progress)
	tracker.report(0)

	n := &nested{uow: ss.uow, newID: s.newID}
	attach := &attacher{uow: ss.uow}

	// ===== projects =====
	projects := &projectStrategy{nested: n, remote: ss.remote.Projects()}
	pp := newProcessor[*model.Project, *model.ProjectExternal](EntityProject, projects, ss.remote.Projects(), ss.uow, logger)
	projectResults, synced, err := pp.run(ctx, phase[*model.Project, *model.ProjectExternal]{
		since:    run.Date,
		include:  filterTuples(run.ProjectsFilter, projects.Map),
		progress: tracker.phase(0, 0.5),
	})
	results = append(results, projectResults...)
	if err != nil {
		logger.Warn().Err(err).Int("failures", len(results)).Msg("Synchronization cancelled")
		return results, err
	}
	tracker.report(0.5)

	scope := newProjectScope(synced)

	// ===== objectives =====
	objectives := &objectiveStrategy{nested: n, remote: ss.remote.Objectives(), attach: attach}
	op := newProcessor[*model.Objective, *model.ObjectiveExternal](EntityObjective, objectives, ss.remote.Objectives(), ss.uow, logger)
	filter := filterTuples(run.ObjectivesFilter, objectives.Map)
	objectiveResults, _, err := op.run(ctx, phase[*model.Objective, *model.ObjectiveExternal]{
		since: run.Date,
		include: func(t *objectiveTuple) bool {
			return scope.contains(t) && (filter == nil || filter(t))
		},
		progress: tracker.phase(0.5, 0.5),
	})
	results = append(results, objectiveResults...)
	if err != nil {
		logger.Warn().Err(err).Int("failures", len(results)).Msg("Synchronization cancelled")
		return results, err
	}
	tracker.report(1)

	logger.Info().
		Int("failures", len(results)).
		Dur("duration", s.clock().Sub(started)).
		Msg("Synchronization finished")
	return results, nil
}

// filterTuples evaluates accept on the local row when present, otherwise on
// the remote record mapped to local shape, otherwise on the mirror.
func filterTuples[L localEntity, R remoteEntity](accept func(L) bool, mapRemote func(R) L) func(*Tuple[L, R]) bool {
	if accept == nil {
		return nil
	}
	return func(t *Tuple[L, R]) bool {
		switch {
		case t.HasLocal():
			return accept(t.Local)
		case t.HasRemote():
			return accept(mapRemote(t.Remote))
		default:
			return accept(t.Mirror)
		}
	}
}

// projectScope is the set of projects whose objectives a run may touch:
// projects that were added or updated without failure.
type projectScope struct {
	local    map[string]bool
	mirror   map[string]bool
	external map[string]bool
}

func newProjectScope(done []applied[*model.Project, *model.ProjectExternal]) *projectScope {
	s := &projectScope{
		local:    make(map[string]bool),
		mirror:   make(map[string]bool),
		external: make(map[string]bool),
	}
	for _, a := range done {
		if a.action == ActionRemove {
			continue
		}
		t := a.tuple
		if t.HasLocal() {
			s.local[t.Local.ID] = true
		}
		if t.HasMirror() {
			s.mirror[t.Mirror.ID] = true
		}
		if ext := t.ExternalID(); ext != "" {
			s.external[ext] = true
		}
	}
	return s
}

func (s *projectScope) contains(t *objectiveTuple) bool {
	switch {
	case t.HasLocal():
		return s.local[t.Local.ProjectID]
	case t.HasMirror():
		return s.mirror[t.Mirror.ProjectID]
	case t.HasRemote():
		return s.external[t.Remote.ProjectExternalID]
	}
	return false
}
