package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/google/uuid"

	"github.com/jaganraajan/projects-board/domain"
)

// NotFoundError reports a missing task or account row.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.Key) }

// NotFound marks the error for the handlers' behavioral check.
func (e NotFoundError) NotFound() {}

// ConflictError reports an insert colliding with an existing row.
type ConflictError struct {
	Kind string
	Key  string
}

func (e ConflictError) Error() string { return fmt.Sprintf("%s %s already exists", e.Kind, e.Key) }

// Conflict marks the error for the handlers' behavioral check.
func (e ConflictError) Conflict() {}

// Storage persists tenant tasks and accounts in Azure Tables, partitioned by
// account email, and optionally publishes task change events to an Azure
// Queue for downstream consumers.
type Storage struct {
	taskTable    *aztables.Client
	accountTable *aztables.Client
	changeFeed   *azqueue.QueueClient
}

// New creates a Storage instance from the given connection string. The change
// queue is optional; pass an empty name to disable the feed.
func New(connStr, tasksTable, accountsTable, changeQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	s := &Storage{
		taskTable:    svc.NewClient(tasksTable),
		accountTable: svc.NewClient(accountsTable),
	}
	if changeQueue != "" {
		queueClientOptions := azqueue.ClientOptions{
			ClientOptions: azcore.ClientOptions{
				Retry: policy.RetryOptions{
					MaxRetries:    3,
					TryTimeout:    time.Minute * 1,
					RetryDelay:    time.Second * 1,
					MaxRetryDelay: time.Second * 15,
					StatusCodes:   []int{408, 429, 500, 502, 503, 504},
				},
			},
		}
		cq, err := azqueue.NewQueueClientFromConnectionString(connStr, changeQueue, &queueClientOptions)
		if err != nil {
			return nil, err
		}
		s.changeFeed = cq
	}
	return s, nil
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Status      string `json:"Status"`
	DueDate     string `json:"DueDate"`
	Tags        string `json:"Tags"`
	Priority    string `json:"Priority"`
}

func encodeTaskEntity(email string, t domain.Task) ([]byte, error) {
	tags := ""
	if len(t.Tags) > 0 {
		data, err := json.Marshal(t.Tags)
		if err != nil {
			return nil, err
		}
		tags = string(data)
	}
	return json.Marshal(taskEntity{
		Entity:      aztables.Entity{PartitionKey: email, RowKey: t.ID},
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		Tags:        tags,
		Priority:    string(t.Priority),
	})
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	task := domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Status:      domain.Status(ent.Status),
		DueDate:     ent.DueDate,
		Priority:    domain.Priority(ent.Priority),
	}
	if ent.Tags != "" {
		if err := json.Unmarshal([]byte(ent.Tags), &task.Tags); err != nil {
			return domain.Task{}, err
		}
	}
	task.Normalize()
	return task, nil
}

// ListTasks retrieves all tasks for the given account.
func (s *Storage) ListTasks(ctx context.Context, email string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + email + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			task, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// InsertTask stores a new task row and emits a change event.
func (s *Storage) InsertTask(ctx context.Context, email string, t domain.Task) error {
	data, err := encodeTaskEntity(email, t)
	if err != nil {
		return err
	}
	if _, err := s.taskTable.AddEntity(ctx, data, nil); err != nil {
		if statusOf(err) == http.StatusConflict {
			return ConflictError{Kind: "task", Key: t.ID}
		}
		return err
	}
	s.emitChange(ctx, email, "task-created", t)
	return nil
}

// UpdateTask merges the patch into the stored row and returns the result.
func (s *Storage) UpdateTask(ctx context.Context, email, id string, patch domain.Patch) (domain.Task, error) {
	ent, err := s.taskTable.GetEntity(ctx, email, id, nil)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return domain.Task{}, NotFoundError{Kind: "task", Key: id}
		}
		return domain.Task{}, err
	}
	task, err := decodeTaskEntity(ent.Value)
	if err != nil {
		return domain.Task{}, err
	}
	patch.Apply(&task)

	data, err := encodeTaskEntity(email, task)
	if err != nil {
		return domain.Task{}, err
	}
	updateMode := aztables.UpdateEntityOptions{UpdateMode: aztables.UpdateModeReplace}
	if _, err := s.taskTable.UpdateEntity(ctx, data, &updateMode); err != nil {
		return domain.Task{}, err
	}
	s.emitChange(ctx, email, "task-updated", task)
	return task, nil
}

// DeleteTask removes the task row.
func (s *Storage) DeleteTask(ctx context.Context, email, id string) error {
	if _, err := s.taskTable.DeleteEntity(ctx, email, id, nil); err != nil {
		if statusOf(err) == http.StatusNotFound {
			return NotFoundError{Kind: "task", Key: id}
		}
		return err
	}
	s.emitChange(ctx, email, "task-deleted", domain.Task{ID: id})
	return nil
}

type accountEntity struct {
	aztables.Entity
	CompanyName  string `json:"CompanyName"`
	PasswordHash string `json:"PasswordHash"`
}

// InsertAccount stores a new account row.
func (s *Storage) InsertAccount(ctx context.Context, account domain.Account, passwordHash string) error {
	data, err := json.Marshal(accountEntity{
		Entity:       aztables.Entity{PartitionKey: account.Email, RowKey: account.Email},
		CompanyName:  account.CompanyName,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return err
	}
	if _, err := s.accountTable.AddEntity(ctx, data, nil); err != nil {
		if statusOf(err) == http.StatusConflict {
			return ConflictError{Kind: "account", Key: account.Email}
		}
		return err
	}
	return nil
}

// FetchAccount returns the account and its password hash.
func (s *Storage) FetchAccount(ctx context.Context, email string) (domain.Account, string, error) {
	ent, err := s.accountTable.GetEntity(ctx, email, email, nil)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return domain.Account{}, "", NotFoundError{Kind: "account", Key: email}
		}
		return domain.Account{}, "", err
	}
	var raw accountEntity
	if err := json.Unmarshal(ent.Value, &raw); err != nil {
		return domain.Account{}, "", err
	}
	return domain.Account{Email: email, CompanyName: raw.CompanyName}, raw.PasswordHash, nil
}

type changeEvent struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Type  string      `json:"type"`
	Task  domain.Task `json:"task"`
	Time  int64       `json:"time"`
}

// emitChange publishes a task change to the feed. The feed is best effort: a
// write that made it into the table is never failed for a queue error.
func (s *Storage) emitChange(ctx context.Context, email, eventType string, t domain.Task) {
	if s.changeFeed == nil {
		return
	}
	data, err := json.Marshal(changeEvent{
		ID:    uuid.NewString(),
		Email: email,
		Type:  eventType,
		Task:  t,
		Time:  time.Now().UnixNano(),
	})
	if err != nil {
		return
	}
	_, _ = s.changeFeed.EnqueueMessage(ctx, string(data), nil)
}

func statusOf(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}
