package storage

import (
	"errors"
	"testing"

	"github.com/jaganraajan/projects-board/domain"
)

func TestTaskEntityRoundTrip(t *testing.T) {
	task := domain.Task{
		ID:          "t1",
		Title:       "Write spec",
		Description: "Draft the design doc",
		Status:      domain.StatusInProgress,
		DueDate:     "2026-08-31",
		Tags:        []string{"docs", "urgent"},
		Priority:    domain.PriorityHigh,
	}

	data, err := encodeTaskEntity("dev@example.com", task)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeTaskEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.ID != "t1" || decoded.Title != task.Title || decoded.Status != domain.StatusInProgress {
		t.Fatalf("unexpected decode: %#v", decoded)
	}
	if len(decoded.Tags) != 2 || decoded.Tags[1] != "urgent" {
		t.Fatalf("tags lost in round trip: %#v", decoded.Tags)
	}
	if decoded.Priority != domain.PriorityHigh || decoded.DueDate != "2026-08-31" {
		t.Fatalf("unexpected fields: %#v", decoded)
	}
}

func TestDecodeTaskEntityNormalizesLegacyValues(t *testing.T) {
	data := []byte(`{"PartitionKey":"dev@example.com","RowKey":"t1","Title":"a","Description":"b","Status":"inProgress","Priority":"HIGH"}`)
	task, err := decodeTaskEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.Status != domain.StatusInProgress || task.Priority != domain.PriorityHigh {
		t.Fatalf("expected normalized fields, got %#v", task)
	}
}

func TestDecodeTaskEntityNoTags(t *testing.T) {
	data, err := encodeTaskEntity("dev@example.com", domain.Task{ID: "t1", Status: domain.StatusTodo})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	task, err := decodeTaskEntity(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if task.Tags != nil {
		t.Fatalf("expected no tags, got %#v", task.Tags)
	}
}

func TestErrorKinds(t *testing.T) {
	var nf interface{ NotFound() }
	if !errors.As(error(NotFoundError{Kind: "task", Key: "t1"}), &nf) {
		t.Fatalf("NotFoundError must satisfy the NotFound marker")
	}
	var conflict interface{ Conflict() }
	if !errors.As(error(ConflictError{Kind: "account", Key: "a"}), &conflict) {
		t.Fatalf("ConflictError must satisfy the Conflict marker")
	}
}
