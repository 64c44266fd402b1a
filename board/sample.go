package board

import "github.com/jaganraajan/projects-board/domain"

// SampleBoard returns the fixed demonstration dataset: the board shown before
// a session exists, and the documented fallback when a remote load fails.
// The tasks are tagged local so mutations on them never reach the wire.
func SampleBoard() map[domain.Status][]domain.Task {
	return map[domain.Status][]domain.Task{
		domain.StatusTodo: {
			{ID: "1", Title: "Task 1", Description: "Description for Task 1", Status: domain.StatusTodo, Origin: domain.OriginLocal},
			{ID: "2", Title: "Task 2", Description: "Description for Task 2", Status: domain.StatusTodo, Origin: domain.OriginLocal},
		},
		domain.StatusInProgress: {},
		domain.StatusDone:       {},
	}
}
