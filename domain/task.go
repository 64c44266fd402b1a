package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status identifies the board column a task occupies.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the board columns in display order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// Valid reports whether s is one of the three board columns.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// NormalizeStatus collapses remote-store spelling variants ("inProgress",
// "IN-PROGRESS", ...) to the canonical column names. Unrecognized values map
// to todo so ingested tasks always land on the board.
func NormalizeStatus(raw string) Status {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = strings.ReplaceAll(cleaned, "-", "_")
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	switch cleaned {
	case "todo", "to_do":
		return StatusTodo
	case "in_progress", "inprogress", "doing":
		return StatusInProgress
	case "done", "complete", "completed":
		return StatusDone
	}
	return StatusTodo
}

// Priority is the canonical task priority. The empty value means unset.
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// NormalizePriority collapses case and format variance from the remote store
// to the canonical set. Unknown values normalize to unset.
func NormalizePriority(raw string) Priority {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "l":
		return PriorityLow
	case "medium", "med", "m", "normal":
		return PriorityMedium
	case "high", "h", "urgent":
		return PriorityHigh
	}
	return PriorityNone
}

// Origin tags which id namespace a task belongs to. It is carried on the
// value so mutation routing never has to re-derive it from the id string.
type Origin int

const (
	// OriginRemote tasks are owned by the tenant service; the local copy is a
	// cache of the last-known server state.
	OriginRemote Origin = iota
	// OriginLocal tasks exist only in client memory and never reach the wire.
	OriginLocal
)

// Task represents a single board item.
type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	DueDate     string   `json:"due_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Priority    Priority `json:"priority,omitempty"`

	// Origin never crosses the wire; it is assigned at construction or on
	// ingestion.
	Origin Origin `json:"-"`
}

// Local reports whether the task lives only in client memory. The id prefix
// check covers tasks ingested without an explicit origin tag.
func (t Task) Local() bool {
	return t.Origin == OriginLocal || IsLocalID(t.ID)
}

// Clone returns a deep copy; the caller may mutate it freely.
func (t Task) Clone() Task {
	if t.Tags != nil {
		t.Tags = append([]string(nil), t.Tags...)
	}
	return t
}

const localIDPrefix = "local-"

// NewLocalID generates an id in the local namespace.
func NewLocalID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return localIDPrefix + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + suffix
}

// IsLocalID reports whether id belongs to the local namespace.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// DateLayout is the wire format for due dates.
const DateLayout = "2006-01-02"

// Today returns the default due date for newly created tasks.
func Today() string {
	return time.Now().Format(DateLayout)
}

// Draft carries the caller-supplied fields of a task create request.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	DueDate     string   `json:"due_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
}

// Normalize canonicalizes fields that vary across remote-store origins.
func (t *Task) Normalize() {
	t.Status = NormalizeStatus(string(t.Status))
	t.Priority = NormalizePriority(string(t.Priority))
}

// Partition groups tasks into per-column slices, preserving input order
// within each column. Every column key is present even when empty.
func Partition(tasks []Task) map[Status][]Task {
	columns := make(map[Status][]Task, 3)
	for _, s := range Statuses() {
		columns[s] = []Task{}
	}
	for _, t := range tasks {
		t.Normalize()
		columns[t.Status] = append(columns[t.Status], t)
	}
	return columns
}
