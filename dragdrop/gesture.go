// Package dragdrop implements the transfer protocol a drag gesture uses to
// carry a task move from its source column to the drop target. The payload is
// transient: it lives exactly as long as one gesture and never becomes part
// of board state.
package dragdrop

import "github.com/jaganraajan/projects-board/domain"

// Payload keys, mirroring the platform dataTransfer entries.
const (
	KeyTaskID       = "taskId"
	KeySourceColumn = "sourceColumn"
)

// State of a single drag gesture. Dropped and Cancelled are terminal.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateDropped
	StateCancelled
)

// MoveRequest is the argument triple a completed drop hands to the engine's
// MoveTask.
type MoveRequest struct {
	TaskID string
	From   domain.Status
	To     domain.Status
}

// Gesture tracks one drag interaction from start to drop or cancel.
type Gesture struct {
	state   State
	payload map[string]string
}

// ResolveColumn walks column markers from the innermost element outward and
// returns the nearest one naming a valid column — the
// closest("[data-column]") analogue.
func ResolveColumn(markers []string) (domain.Status, bool) {
	for _, m := range markers {
		if s, ok := columnFromMarker(m); ok {
			return s, true
		}
	}
	return "", false
}

func columnFromMarker(m string) (domain.Status, bool) {
	if s := domain.Status(m); s.Valid() {
		return s, true
	}
	// The web presentation labels its column markers in camelCase.
	if m == "inProgress" {
		return domain.StatusInProgress, true
	}
	return "", false
}

// Start begins a gesture for taskID originating in source, writing
// {taskId, sourceColumn} into the payload. Fields that cannot be determined
// at start time are simply absent; the drop guards against that.
func Start(taskID string, source domain.Status) *Gesture {
	g := &Gesture{state: StateDragging, payload: make(map[string]string, 2)}
	if taskID != "" {
		g.payload[KeyTaskID] = taskID
	}
	if source.Valid() {
		g.payload[KeySourceColumn] = string(source)
	}
	return g
}

// State returns the gesture's current state.
func (g *Gesture) State() State { return g.state }

// Drop completes the gesture over target. It returns the move request and
// true when both payload fields survived and the drop landed on a valid
// column; otherwise the drop is a no-op — no partial move is ever attempted.
// The gesture is terminal after the call either way.
func (g *Gesture) Drop(target domain.Status) (MoveRequest, bool) {
	if g.state != StateDragging {
		return MoveRequest{}, false
	}
	if !target.Valid() {
		// Dropped outside any column: same as a cancel.
		g.state = StateCancelled
		g.payload = nil
		return MoveRequest{}, false
	}

	g.state = StateDropped
	taskID := g.payload[KeyTaskID]
	source := domain.Status(g.payload[KeySourceColumn])
	g.payload = nil

	if taskID == "" || !source.Valid() {
		return MoveRequest{}, false
	}
	return MoveRequest{TaskID: taskID, From: source, To: target}, true
}

// Cancel discards the payload (Escape, or the platform aborting the drag).
func (g *Gesture) Cancel() {
	if g.state != StateDragging {
		return
	}
	g.state = StateCancelled
	g.payload = nil
}
