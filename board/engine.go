package board

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/jaganraajan/projects-board/domain"
	"github.com/jaganraajan/projects-board/session"
)

// Gateway is the remote-store contract the engine consumes. Implementations
// perform a single attempt per call and surface failures as errors; the
// engine adds no retry or backoff of its own.
type Gateway interface {
	Create(ctx context.Context, draft domain.Draft, cred *session.Session) (domain.Task, error)
	Update(ctx context.Context, id string, patch domain.Patch, cred *session.Session) (domain.Task, error)
	Delete(ctx context.Context, id string, cred *session.Session) error
	List(ctx context.Context, cred *session.Session) ([]domain.Task, error)
}

// Snapshot is an immutable copy of the board handed to readers. Mutating a
// snapshot never affects engine state.
type Snapshot map[domain.Status][]domain.Task

// Engine owns the authoritative in-memory task collection partitioned by
// status and mediates every mutation between local state and the remote
// store. The zero policy is confirm-then-apply: no mutation is visible before
// the remote store acknowledged it, and a failed remote call leaves the board
// exactly as it was.
//
// The engine is safe for concurrent use. Its mutex guards board state only
// and is never held across a gateway call, so overlapping remote calls may
// complete in either order; presence is re-verified after every await so a
// task is never duplicated or lost.
type Engine struct {
	gw     Gateway
	logger *log.Logger

	mu      sync.Mutex
	columns map[domain.Status][]domain.Task
	sess    *session.Session
	epoch   uint64
	lastErr string
	subs    []func(Snapshot)

	pending int64
}

// New creates an engine with an empty board and no session (all-local mode).
func New(gw Gateway, logger *log.Logger) *Engine {
	return &Engine{
		gw:      gw,
		logger:  logger,
		columns: emptyColumns(),
	}
}

func emptyColumns() map[domain.Status][]domain.Task {
	columns := make(map[domain.Status][]domain.Task, 3)
	for _, s := range domain.Statuses() {
		columns[s] = []domain.Task{}
	}
	return columns
}

// SetSession installs the credential used for remote routing. Responses of
// calls issued under the previous session are discarded when they land.
// Callers typically follow up with LoadAll to rebuild the board.
func (e *Engine) SetSession(s *session.Session) {
	e.mu.Lock()
	e.sess = s
	e.epoch++
	e.mu.Unlock()
}

// ClearSession drops the credential and resets the board to empty, regardless
// of any in-flight operations; their late responses are discarded.
func (e *Engine) ClearSession() {
	e.mu.Lock()
	e.sess = nil
	e.epoch++
	e.columns = emptyColumns()
	snapshot, subs := e.snapshotLocked()
	e.mu.Unlock()
	notify(subs, snapshot)
}

// Busy reports whether at least one mutating operation has a remote call
// outstanding. It is a UI-disabling signal, not an ordering guarantee.
func (e *Engine) Busy() bool {
	return atomic.LoadInt64(&e.pending) > 0
}

// LastError returns the sticky last-error message: cleared when an operation
// starts, set on failure, left at its previous value on success.
func (e *Engine) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Snapshot returns a deep copy of the board.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snapshot, _ := e.snapshotLocked()
	return snapshot
}

// Subscribe registers fn to run after every board change, with the snapshot
// that change produced.
func (e *Engine) Subscribe(fn func(Snapshot)) {
	e.mu.Lock()
	e.subs = append(e.subs, fn)
	e.mu.Unlock()
}

func (e *Engine) snapshotLocked() (Snapshot, []func(Snapshot)) {
	snapshot := make(Snapshot, len(e.columns))
	for status, tasks := range e.columns {
		column := make([]domain.Task, len(tasks))
		for i, t := range tasks {
			column[i] = t.Clone()
		}
		snapshot[status] = column
	}
	subs := make([]func(Snapshot), len(e.subs))
	copy(subs, e.subs)
	return snapshot, subs
}

func notify(subs []func(Snapshot), snapshot Snapshot) {
	for _, fn := range subs {
		fn(snapshot)
	}
}

// begin starts an operation: the last error is cleared and the busy counter
// incremented. It returns the session and epoch the operation runs under.
func (e *Engine) begin() (*session.Session, uint64) {
	atomic.AddInt64(&e.pending, 1)
	e.mu.Lock()
	e.lastErr = ""
	sess, epoch := e.sess, e.epoch
	e.mu.Unlock()
	return sess, epoch
}

func (e *Engine) end() {
	atomic.AddInt64(&e.pending, -1)
}

// fail records err as the last error and returns it.
func (e *Engine) fail(err error) error {
	e.mu.Lock()
	e.lastErr = err.Error()
	e.mu.Unlock()
	if e.logger != nil {
		e.logger.WithField("error", err.Error()).Warn("board operation failed")
	}
	return err
}

// stale reports whether the epoch moved since the operation began; if so the
// in-flight response must be discarded. Callers hold e.mu.
func (e *Engine) staleLocked(epoch uint64) bool {
	if e.epoch == epoch {
		return false
	}
	if e.logger != nil {
		e.logger.Debug("discarding response from a previous session")
	}
	return true
}

// LoadAll fetches every task visible to the current session, partitions them
// by status and replaces the board wholesale. Without a session, or when the
// fetch fails, the fixed demonstration dataset is installed instead; in the
// failure case the error is also recorded so callers can tell a placeholder
// board from a loaded one.
func (e *Engine) LoadAll(ctx context.Context) error {
	sess, epoch := e.begin()
	defer e.end()

	if !sess.Active() {
		e.mu.Lock()
		e.columns = SampleBoard()
		snapshot, subs := e.snapshotLocked()
		e.mu.Unlock()
		notify(subs, snapshot)
		return nil
	}

	tasks, err := e.gw.List(ctx, sess)

	e.mu.Lock()
	if e.staleLocked(epoch) {
		e.mu.Unlock()
		return ErrStaleSession
	}
	if err != nil {
		e.lastErr = err.Error()
		e.columns = SampleBoard()
		snapshot, subs := e.snapshotLocked()
		e.mu.Unlock()
		notify(subs, snapshot)
		if e.logger != nil {
			e.logger.WithField("error", err.Error()).Warn("remote load failed; using placeholder board")
		}
		return err
	}
	e.columns = domain.Partition(tasks)
	snapshot, subs := e.snapshotLocked()
	e.mu.Unlock()
	notify(subs, snapshot)
	return nil
}

// CreateRequest carries the inputs of a task creation.
type CreateRequest struct {
	Column      domain.Status
	Title       string
	Description string
	DueDate     string // ISO date; defaults to today
	Tags        []string
	Priority    domain.Priority
}

// CreateTask validates the request and appends a new task to the requested
// column: a synthesized local task when no session is active, otherwise the
// server-returned task once the remote create succeeded. Creation is
// all-or-nothing against the remote store; on failure the column is left
// unchanged.
func (e *Engine) CreateTask(ctx context.Context, req CreateRequest) (domain.Task, error) {
	sess, epoch := e.begin()
	defer e.end()

	if !req.Column.Valid() {
		return domain.Task{}, e.fail(&ValidationError{Field: "column", Reason: "unknown column"})
	}
	if strings.TrimSpace(req.Title) == "" {
		return domain.Task{}, e.fail(&ValidationError{Field: "title", Reason: "must not be blank"})
	}
	if strings.TrimSpace(req.Description) == "" {
		return domain.Task{}, e.fail(&ValidationError{Field: "description", Reason: "must not be blank"})
	}
	dueDate := req.DueDate
	if dueDate == "" {
		dueDate = domain.Today()
	}

	if !sess.Active() {
		task := domain.Task{
			ID:          domain.NewLocalID(),
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Column,
			DueDate:     dueDate,
			Tags:        append([]string(nil), req.Tags...),
			Priority:    domain.NormalizePriority(string(req.Priority)),
			Origin:      domain.OriginLocal,
		}
		e.mu.Lock()
		e.columns[req.Column] = append(e.columns[req.Column], task)
		snapshot, subs := e.snapshotLocked()
		e.mu.Unlock()
		notify(subs, snapshot)
		return task.Clone(), nil
	}

	draft := domain.Draft{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Column,
		DueDate:     dueDate,
		Tags:        req.Tags,
		Priority:    domain.NormalizePriority(string(req.Priority)),
	}
	task, err := e.gw.Create(ctx, draft, sess)
	if err != nil {
		return domain.Task{}, e.fail(err)
	}

	e.mu.Lock()
	if e.staleLocked(epoch) {
		e.mu.Unlock()
		return domain.Task{}, ErrStaleSession
	}
	task.Status = req.Column
	e.columns[req.Column] = append(e.columns[req.Column], task)
	snapshot, subs := e.snapshotLocked()
	e.mu.Unlock()
	notify(subs, snapshot)
	return task.Clone(), nil
}

// EditTask applies a partial update to the task holding id, wherever it
// currently lives. Local tasks are patched in place with no remote call; for
// remote tasks the server's returned representation replaces the stored task
// once the update succeeded. Column membership never changes here — status
// moves belong to MoveTask, so any Status field on the patch is ignored.
func (e *Engine) EditTask(ctx context.Context, id string, patch domain.Patch) (domain.Task, error) {
	sess, epoch := e.begin()
	defer e.end()

	patch.Status = nil

	e.mu.Lock()
	column, idx := e.findLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return domain.Task{}, e.fail(&NotFoundError{ID: id})
	}
	stored := e.columns[column][idx]

	if stored.Local() {
		patch.Apply(&stored)
		stored.Status = column
		e.columns[column][idx] = stored
		snapshot, subs := e.snapshotLocked()
		e.mu.Unlock()
		notify(subs, snapshot)
		return stored.Clone(), nil
	}
	e.mu.Unlock()

	updated, err := e.gw.Update(ctx, id, patch, sess)
	if err != nil {
		return domain.Task{}, e.fail(err)
	}

	e.mu.Lock()
	if e.staleLocked(epoch) {
		e.mu.Unlock()
		return domain.Task{}, ErrStaleSession
	}
	// Re-verify: a concurrent operation may have moved or deleted the task
	// while the update was in flight.
	column, idx = e.findLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return domain.Task{}, e.fail(&NotFoundError{ID: id})
	}
	updated.Status = column
	e.columns[column][idx] = updated
	snapshot, subs := e.snapshotLocked()
	e.mu.Unlock()
	notify(subs, snapshot)
	return updated.Clone(), nil
}

// DeleteTask removes the task holding id. Remote tasks are deleted from the
// store first and only removed from their column on success — deletions are
// never optimistic.
func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	sess, epoch := e.begin()
	defer e.end()

	e.mu.Lock()
	column, idx := e.findLocked(id)
	if idx < 0 {
		e.mu.Unlock()
		return e.fail(&NotFoundError{ID: id})
	}

	if e.columns[column][idx].Local() {
		e.columns[column] = spliceLocked(e.columns[column], idx)
		snapshot, subs := e.snapshotLocked()
		e.mu.Unlock()
		notify(subs, snapshot)
		return nil
	}
	e.mu.Unlock()

	if err := e.gw.Delete(ctx, id, sess); err != nil {
		return e.fail(err)
	}

	e.mu.Lock()
	if e.staleLocked(epoch) {
		e.mu.Unlock()
		return ErrStaleSession
	}
	if column, idx = e.findLocked(id); idx >= 0 {
		e.columns[column] = spliceLocked(e.columns[column], idx)
	}
	snapshot, subs := e.snapshotLocked()
	e.mu.Unlock()
	notify(subs, snapshot)
	return nil
}

// MoveTask transfers the task holding id from one column to another. The
// remote store is updated before any local mutation; only on success is the
// task spliced out of the source and appended to the target. Moving a task
// onto its own column is a no-op.
func (e *Engine) MoveTask(ctx context.Context, id string, from, to domain.Status) error {
	if from == to {
		return nil
	}

	sess, epoch := e.begin()
	defer e.end()

	if !from.Valid() {
		return e.fail(&ValidationError{Field: "from", Reason: "unknown column"})
	}
	if !to.Valid() {
		return e.fail(&ValidationError{Field: "to", Reason: "unknown column"})
	}

	e.mu.Lock()
	idx := indexLocked(e.columns[from], id)
	if idx < 0 {
		// Stale or duplicate drag event; leave the board untouched.
		e.mu.Unlock()
		return e.fail(&NotFoundError{ID: id, Column: from})
	}
	task := e.columns[from][idx]

	if task.Local() {
		e.columns[from] = spliceLocked(e.columns[from], idx)
		task.Status = to
		e.columns[to] = append(e.columns[to], task)
		snapshot, subs := e.snapshotLocked()
		e.mu.Unlock()
		notify(subs, snapshot)
		return nil
	}
	e.mu.Unlock()

	updated, err := e.gw.Update(ctx, id, domain.StatusPatch(to), sess)
	if err != nil {
		return e.fail(err)
	}

	e.mu.Lock()
	if e.staleLocked(epoch) {
		e.mu.Unlock()
		return ErrStaleSession
	}
	// Re-verify: the exact task spliced from the source is the one appended
	// to the target, even if the column changed during the await.
	idx = indexLocked(e.columns[from], id)
	if idx < 0 {
		e.mu.Unlock()
		return e.fail(&NotFoundError{ID: id, Column: from})
	}
	e.columns[from] = spliceLocked(e.columns[from], idx)
	updated.Status = to
	e.columns[to] = append(e.columns[to], updated)
	snapshot, subs := e.snapshotLocked()
	e.mu.Unlock()
	notify(subs, snapshot)
	return nil
}

// findLocked locates id anywhere on the board. Callers hold e.mu.
func (e *Engine) findLocked(id string) (domain.Status, int) {
	for _, status := range domain.Statuses() {
		if idx := indexLocked(e.columns[status], id); idx >= 0 {
			return status, idx
		}
	}
	return "", -1
}

func indexLocked(tasks []domain.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func spliceLocked(tasks []domain.Task, idx int) []domain.Task {
	return append(tasks[:idx:idx], tasks[idx+1:]...)
}
