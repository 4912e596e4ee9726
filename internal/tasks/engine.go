package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/unnipv/musync/internal/matching"
	"github.com/unnipv/musync/internal/metrics"
	"github.com/unnipv/musync/internal/models"
	"github.com/unnipv/musync/internal/services"
	"github.com/unnipv/musync/internal/shared"
)

// DefaultCallDelay separates consecutive remote calls while applying changes.
const DefaultCallDelay = 200 * time.Millisecond

// Store is the persistence collaborator the engine reads playlists from and writes results to.
type Store interface {
	LoadPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	// AppendTracks adds tracks after whatever the playlist holds at write time.
	AppendTracks(ctx context.Context, playlistID string, tracks []models.Track) error
	// LinkTracks records remote ids for platform, keyed by local track id. Other links are untouched.
	LinkTracks(ctx context.Context, playlistID string, platform models.Platform, links map[string]string) error
	// UpdateSyncState replaces only the connection record of state.Platform.
	UpdateSyncState(ctx context.Context, playlistID string, state models.SyncState) error
}

// Option configures an [Engine].
type Option func(*Engine)

// WithMatchThreshold overrides [matching.DefaultThreshold].
func WithMatchThreshold(t float64) Option {
	return func(e *Engine) {
		if t > 0 && t <= 1 {
			e.threshold = t
		}
	}
}

// WithRemoveExtra makes unmatched remote tracks removal candidates instead of imports.
func WithRemoveExtra(on bool) Option { return func(e *Engine) { e.removeExtra = on } }

// WithGuardRatio overrides [DefaultGuardRatio].
func WithGuardRatio(r float64) Option {
	return func(e *Engine) {
		if r > 0 && r <= 1 {
			e.guardRatio = r
		}
	}
}

// WithCallDelay sets the minimum spacing between remote calls in the apply step. Zero disables it.
func WithCallDelay(d time.Duration) Option { return func(e *Engine) { e.callDelay = max(d, 0) } }

// WithRunTimeout bounds the wall-clock duration of one [Engine.Reconcile] call.
func WithRunTimeout(d time.Duration) Option { return func(e *Engine) { e.runTimeout = d } }

// WithParallel reconciles platforms concurrently instead of one after another.
func WithParallel(on bool) Option { return func(e *Engine) { e.parallel = on } }

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDGenerator sets how imported tracks get their local id.
func WithIDGenerator(fn func() string) Option { return func(e *Engine) { e.newID = fn } }

// Engine reconciles local playlists against remote catalogs.
type Engine struct {
	store    Store
	catalogs map[models.Platform]services.Catalog

	threshold   float64
	guardRatio  float64
	removeExtra bool
	callDelay   time.Duration
	runTimeout  time.Duration
	parallel    bool

	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

// NewEngine creates an engine over store with one catalog per platform.
func NewEngine(store Store, catalogs []services.Catalog, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		catalogs:   make(map[models.Platform]services.Catalog, len(catalogs)),
		threshold:  matching.DefaultThreshold,
		guardRatio: DefaultGuardRatio,
		callDelay:  DefaultCallDelay,
		logger:     log.New(io.Discard),
		now:        time.Now,
		newID:      shared.GenerateID,
	}
	for _, c := range catalogs {
		e.catalogs[c.Platform()] = c
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Platforms lists the platforms with a configured catalog.
func (e *Engine) Platforms() []models.Platform {
	var out []models.Platform
	for _, p := range models.Platforms {
		if _, ok := e.catalogs[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Reconcile brings each of platforms into agreement with the local playlist. An empty platforms
// list means every configured platform.
//
// The returned error covers only failures before any platform work starts (the playlist could not
// be loaded, no platform requested). Every platform outcome, failed ones included, is in the report.
func (e *Engine) Reconcile(ctx context.Context, playlistID string, platforms []models.Platform, progress chan<- ProgressUpdate) (*Report, error) {
	if e.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.runTimeout)
		defer cancel()
	}

	playlist, err := e.store.LoadPlaylist(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist %s: %w", playlistID, err)
	}

	targets := e.targets(platforms)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: no platforms to reconcile", shared.ErrInvalidInput)
	}

	report := &Report{
		PlaylistID:   playlist.ID,
		PlaylistName: playlist.Name,
		PerPlatform:  make(map[models.Platform]*PlatformReport, len(targets)),
		StartedAt:    e.now(),
	}
	e.sendProgress(progress, startUpdate(playlist.Name, targets))

	list := newTrackList(playlist.Tracks, e.newID)
	runs := make([]*platformRun, len(targets))

	if e.parallel && len(targets) > 1 {
		var g errgroup.Group
		for i, p := range targets {
			g.Go(func() error {
				runs[i] = e.reconcilePlatform(ctx, playlist, list, p, progress)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, p := range targets {
			runs[i] = e.reconcilePlatform(ctx, playlist, list, p, progress)
		}
	}

	if len(runs) > 1 {
		e.backfill(ctx, playlist, list, runs, progress)
	}

	for _, r := range runs {
		e.finish(r, progress)
		report.PerPlatform[r.rep.Platform] = r.rep
	}
	report.FinishedAt = e.now()
	return report, nil
}

func (e *Engine) targets(requested []models.Platform) []models.Platform {
	if len(requested) == 0 {
		return e.Platforms()
	}
	var out []models.Platform
	for _, p := range requested {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// platformRun carries one platform's pass over to the backfill and finish steps.
type platformRun struct {
	rep    *PlatformReport
	logger *log.Logger
	start  time.Time

	cat   services.Catalog
	state models.SyncState
	// seen holds the local track ids the pass planned against.
	seen     map[string]bool
	imported []models.Track
	// settled is set when the pass ran to completion without halting.
	settled bool
}

func (e *Engine) reconcilePlatform(
	ctx context.Context,
	pl *models.Playlist,
	list *trackList,
	p models.Platform,
	progress chan<- ProgressUpdate,
) *platformRun {
	rep := &PlatformReport{Platform: p, Status: OutcomeFailed, Unavailable: []UnavailableTrack{}}
	run := &platformRun{rep: rep, logger: e.logger.With("platform", p, "playlist", pl.ID), start: e.now()}
	logger := run.logger

	cat, ok := e.catalogs[p]
	if !ok {
		rep.setErr(fmt.Errorf("%w: %s", shared.ErrPlatformNotLinked, p))
		return run
	}

	state, err := e.connect(ctx, pl, cat, progress, logger)
	if err != nil {
		rep.setErr(err)
		return run
	}
	rep.RemoteURL = cat.PlaylistURL(state.PlatformPlaylistID)
	run.cat = cat

	// Persistence must survive a cancelled run so the stored status stays accurate.
	pctx := context.WithoutCancel(ctx)
	fail := func(err error) *platformRun {
		rep.Status = OutcomeFailed
		rep.setErr(err)
		logger.Error("reconcile failed", "err", err)
		state.Status, state.Error = models.SyncFailed, rep.Error
		if perr := e.store.UpdateSyncState(pctx, pl.ID, state); perr != nil {
			rep.setErr(fmt.Errorf("failed to persist sync state: %w", perr))
		}
		return run
	}

	local := list.snapshot()
	run.seen = make(map[string]bool, len(local))
	for _, t := range local {
		run.seen[t.ID] = true
	}
	logger.Debug("state", "phase", FetchingBoth, "local", len(local))
	e.sendProgress(progress, fetchingUpdate(p, len(local)))
	remote, err := cat.ListTracks(ctx, state.PlatformPlaylistID)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch %s playlist: %w", p, err))
	}

	logger.Debug("state", "phase", Matching, "remote", len(remote))
	e.sendProgress(progress, matchingUpdate(p, len(local), len(remote)))
	plan := buildPlan(p, local, remote, e.threshold, e.removeExtra)
	rep.Matched = plan.matched

	logger.Debug("state", "phase", PlanningChanges, "add", len(plan.add), "import", len(plan.imports), "remove", len(plan.remove))
	e.sendProgress(progress, planUpdate(p, plan))

	guarded := exceedsGuard(len(plan.remove), plan.remoteSize, e.guardRatio)
	if guarded {
		logger.Warn("refusing bulk removal", "remove", len(plan.remove), "remote", plan.remoteSize, "ratio", e.guardRatio)
		rep.setErr(fmt.Errorf("%w: %d of %d remote tracks slated for removal", shared.ErrUnsafeBulkRemoval, len(plan.remove), plan.remoteSize))
		plan.remove = nil
	}

	logger.Debug("state", "phase", ApplyingChanges)
	stopErr := e.newApplier(cat, state.PlatformPlaylistID, plan, rep, logger, progress).run(ctx)
	rep.Matched = plan.matched
	if stopErr != nil {
		logger.Warn("stopped applying changes", "err", stopErr)
	} else {
		e.verify(ctx, cat, state.PlatformPlaylistID, plan.remoteSize+rep.Added-rep.Removed, logger, progress)
	}

	logger.Debug("state", "phase", Persisting)
	e.sendProgress(progress, persistUpdate(p))

	imports := make([]models.Track, 0, len(plan.imports))
	for _, t := range plan.imports {
		imports = append(imports, t.Local(e.newID(), e.now()))
	}
	if err := list.commit(pctx, e.store, pl.ID, p, plan.links, imports); err != nil {
		return fail(err)
	}
	rep.Imported = len(imports)
	run.imported = imports

	switch {
	case stopErr != nil:
		rep.Status = OutcomePartial
		rep.setErr(stopErr)
	case guarded:
		rep.Status = OutcomeWarning
	default:
		rep.Status = OutcomeSynced
	}
	run.settled = stopErr == nil

	run.state = state
	e.saveState(pctx, pl.ID, run)
	return run
}

// backfill adds tracks one platform imported to every other platform whose pass planned
// without them, so a following run has nothing left to add.
func (e *Engine) backfill(ctx context.Context, pl *models.Playlist, list *trackList, runs []*platformRun, progress chan<- ProgressUpdate) {
	for _, r := range runs {
		if !r.settled {
			continue
		}
		var pending []models.Track
		for _, other := range runs {
			if other == r {
				continue
			}
			for _, t := range other.imported {
				if !r.seen[t.ID] {
					pending = append(pending, t)
				}
			}
		}
		if len(pending) == 0 {
			continue
		}

		p := r.rep.Platform
		r.logger.Debug("state", "phase", ApplyingChanges, "backfill", len(pending))
		plan := &syncPlan{add: pending, links: make(map[string]string), remoteIDs: map[string]bool{}}
		stopErr := e.newApplier(r.cat, r.state.PlatformPlaylistID, plan, r.rep, r.logger, progress).run(ctx)

		pctx := context.WithoutCancel(ctx)
		if err := list.commit(pctx, e.store, pl.ID, p, plan.links, nil); err != nil {
			r.rep.Status = OutcomeFailed
			r.rep.setErr(err)
		} else if stopErr != nil {
			r.logger.Warn("stopped backfilling", "err", stopErr)
			r.rep.Status = OutcomePartial
			r.rep.setErr(stopErr)
		}
		e.saveState(pctx, pl.ID, r)
	}
}

// saveState writes the run's outcome as the platform's sync state.
func (e *Engine) saveState(ctx context.Context, playlistID string, r *platformRun) {
	r.state.Status, r.state.Error = r.rep.Status.SyncStatus(), r.rep.Error
	if r.rep.Status != OutcomeFailed {
		r.state.LastSyncedAt = e.now()
	}
	if err := e.store.UpdateSyncState(ctx, playlistID, r.state); err != nil {
		r.rep.Status = OutcomeFailed
		r.rep.setErr(fmt.Errorf("failed to persist sync state: %w", err))
	}
}

// finish records the platform's metrics and announces its outcome.
func (e *Engine) finish(r *platformRun, progress chan<- ProgressUpdate) {
	rep := r.rep
	rep.Duration = e.now().Sub(r.start)
	metrics.RecordReconcile(string(rep.Platform), string(rep.Status), rep.Added, rep.Imported, rep.Removed, len(rep.Unavailable), rep.Duration)
	r.logger.Info("reconcile finished", "status", rep.Status, "added", rep.Added, "imported", rep.Imported,
		"removed", rep.Removed, "unavailable", len(rep.Unavailable))
	e.sendProgress(progress, doneUpdate(rep.Platform, rep))
}

// connect returns the platform's sync state, creating the remote playlist on first use.
func (e *Engine) connect(
	ctx context.Context,
	pl *models.Playlist,
	cat services.Catalog,
	progress chan<- ProgressUpdate,
	logger *log.Logger,
) (models.SyncState, error) {
	p := cat.Platform()
	if conn := pl.Connection(p); conn != nil && conn.PlatformPlaylistID != "" {
		return *conn, nil
	}

	logger.Debug("state", "phase", CreatingPlaylist)
	e.sendProgress(progress, creatingPlaylistUpdate(p, pl.Name))

	description := pl.Description
	if description == "" {
		description = "Synced by musync"
	}
	id, err := cat.CreatePlaylist(ctx, pl.Name, description)
	if err != nil {
		return models.SyncState{}, fmt.Errorf("failed to create %s playlist: %w", p, err)
	}
	logger.Info("created remote playlist", "id", id)

	state := models.SyncState{Platform: p, PlatformPlaylistID: id, Status: models.SyncPending}
	if err := e.store.UpdateSyncState(context.WithoutCancel(ctx), pl.ID, state); err != nil {
		return state, fmt.Errorf("failed to persist %s connection %s: %w", p, id, err)
	}
	return state, nil
}

// verify compares the live remote count with expected. A mismatch is logged, never fatal.
func (e *Engine) verify(ctx context.Context, cat services.Catalog, playlistID string, expected int, logger *log.Logger, progress chan<- ProgressUpdate) {
	logger.Debug("state", "phase", Verifying, "expected", expected)
	e.sendProgress(progress, verifyUpdate(cat.Platform(), expected))

	count, err := cat.TrackCount(ctx, playlistID)
	switch {
	case err != nil:
		logger.Warn("could not verify remote count", "err", err)
	case count != expected:
		logger.Warn("remote count mismatch", "expected", expected, "actual", count)
	}
}

func (e *Engine) newApplier(
	cat services.Catalog,
	playlistID string,
	plan *syncPlan,
	rep *PlatformReport,
	logger *log.Logger,
	progress chan<- ProgressUpdate,
) *applier {
	return &applier{
		cat:        cat,
		platform:   cat.Platform(),
		playlistID: playlistID,
		plan:       plan,
		rep:        rep,
		logger:     logger,
		limiter:    e.newLimiter(),
		send:       func(u ProgressUpdate) { e.sendProgress(progress, u) },
	}
}

func (e *Engine) newLimiter() *rate.Limiter {
	if e.callDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(e.callDelay), 1)
}

// halts reports whether err must stop all further remote calls for a platform.
func halts(err error) bool {
	return errors.Is(err, shared.ErrQuotaExceeded) ||
		errors.Is(err, shared.ErrAuthFailed) ||
		errors.Is(err, shared.ErrServiceUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// applier executes a plan's remote changes for one platform, one call at a time.
type applier struct {
	cat        services.Catalog
	platform   models.Platform
	playlistID string
	plan       *syncPlan
	rep        *PlatformReport
	logger     *log.Logger
	limiter    *rate.Limiter
	send       func(ProgressUpdate)
}

// run adds missing tracks then removes extras. A non-nil error means it stopped early.
func (a *applier) run(ctx context.Context) error {
	ids, tracks, err := a.resolve(ctx)
	if err != nil {
		return err
	}
	if err := a.add(ctx, ids, tracks); err != nil {
		return err
	}
	return a.remove(ctx)
}

// resolve turns plan.add into remote ids, searching for tracks without one.
func (a *applier) resolve(ctx context.Context) ([]string, []models.Track, error) {
	var (
		ids      []string
		tracks   []models.Track
		queued   = make(map[string]bool)
		searched int
	)

	unresolved := 0
	for _, t := range a.plan.add {
		if !t.Resolved(a.platform) {
			unresolved++
		}
	}

	for _, t := range a.plan.add {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		id := t.RemoteID(a.platform)
		if id == "" {
			searched++
			a.send(searchUpdate(a.platform, searched, unresolved, t))
			if err := a.limiter.Wait(ctx); err != nil {
				return nil, nil, err
			}

			found, err := a.cat.SearchTrack(ctx, t.Title, t.Artist)
			if err == nil && (found == nil || found.PlatformID == "") {
				err = shared.ErrTrackNotFound
			}
			if err != nil {
				if halts(err) {
					return nil, nil, err
				}
				a.logger.Debug("track unavailable", "title", t.Title, "artist", t.Artist, "err", err)
				a.rep.unavailable(t, err)
				continue
			}

			id = found.PlatformID
			a.plan.links[t.ID] = id
			if a.plan.remoteIDs[id] {
				a.plan.claim(id)
				continue
			}
		}

		if queued[id] {
			continue
		}
		queued[id] = true
		ids = append(ids, id)
		tracks = append(tracks, t)
	}
	return ids, tracks, nil
}

func (a *applier) add(ctx context.Context, ids []string, tracks []models.Track) error {
	size := a.cat.MaxBatchSize()
	idBatches, trackBatches := batches(ids, size), batches(tracks, size)

	for i, batch := range idBatches {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		a.send(batchUpdate(a.platform, "Adding", i+1, len(idBatches), len(batch)))

		if err := a.cat.AddTracks(ctx, a.playlistID, batch); err != nil {
			if halts(err) {
				return err
			}
			a.logger.Warn("add failed", "count", len(batch), "err", err)
			for _, t := range trackBatches[i] {
				a.rep.unavailable(t, err)
			}
			continue
		}
		a.rep.Added += len(batch)
	}
	return nil
}

func (a *applier) remove(ctx context.Context) error {
	removeBatches := batches(a.plan.remove, a.cat.MaxBatchSize())
	for i, batch := range removeBatches {
		if err := a.limiter.Wait(ctx); err != nil {
			return err
		}
		a.send(batchUpdate(a.platform, "Removing", i+1, len(removeBatches), len(batch)))

		if err := a.cat.RemoveTracks(ctx, a.playlistID, batch); err != nil {
			return fmt.Errorf("failed to remove %d track(s): %w", len(batch), err)
		}
		a.rep.Removed += len(batch)
	}
	return nil
}

// trackList is the local track list shared by concurrent platform runs.
type trackList struct {
	mu     sync.Mutex
	tracks []models.Track
}

func newTrackList(tracks []models.Track, newID func() string) *trackList {
	l := &trackList{tracks: cloneTracks(tracks)}
	for i := range l.tracks {
		if l.tracks[i].ID == "" {
			l.tracks[i].ID = newID()
		}
	}
	return l
}

func (l *trackList) snapshot() []models.Track {
	l.mu.Lock()
	defer l.mu.Unlock()
	return cloneTracks(l.tracks)
}

// commit persists links learned for p and appends imports, then mirrors both in memory.
// Commits are serialized so concurrent runs never interleave their writes.
func (l *trackList) commit(ctx context.Context, store Store, playlistID string, p models.Platform, links map[string]string, imports []models.Track) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(links) > 0 {
		if err := store.LinkTracks(ctx, playlistID, p, links); err != nil {
			return fmt.Errorf("failed to save track links: %w", err)
		}
	}
	if len(imports) > 0 {
		if err := store.AppendTracks(ctx, playlistID, cloneTracks(imports)); err != nil {
			return fmt.Errorf("failed to save imported tracks: %w", err)
		}
	}

	for i := range l.tracks {
		if id, ok := links[l.tracks[i].ID]; ok {
			l.tracks[i].Link(p, id)
		}
	}
	l.tracks = append(l.tracks, imports...)
	return nil
}

func cloneTracks(tracks []models.Track) []models.Track {
	out := slices.Clone(tracks)
	for i := range out {
		out[i].Links = maps.Clone(out[i].Links)
	}
	return out
}
