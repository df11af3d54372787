package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"todo-ai/app/models"
)

// ErrNotFound is returned by FakeStore when a task does not exist for the owner.
// Callers that need the service-level sentinel set NotFoundErr.
var ErrNotFound = errors.New("not found")

// FakeStore is an in-memory task store.
type FakeStore struct {
	mu     sync.Mutex
	tasks  []models.Task
	nextID int
	writes int
	now    time.Time

	// NotFoundErr is returned for unknown tasks. Defaults to ErrNotFound.
	NotFoundErr error

	// Error injection for testing
	CreateErr error
	ListErr   error
	GetErr    error
	UpdateErr error
	DeleteErr error
}

// NewFakeStore creates an empty FakeStore.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		NotFoundErr: ErrNotFound,
		now:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Writes returns the number of CreateTasks calls that reached the store.
func (f *FakeStore) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// All returns every stored task in insertion order.
func (f *FakeStore) All() []models.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// CreateTasks stores the drafts as one batch.
func (f *FakeStore) CreateTasks(ctx context.Context, drafts []models.DraftTask) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.writes++
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	// One timestamp per batch, later batches are newer.
	f.now = f.now.Add(time.Second)
	created := make([]models.Task, 0, len(drafts))
	for _, d := range drafts {
		f.nextID++
		created = append(created, models.Task{
			ID:            fmt.Sprintf("task-%d", f.nextID),
			Text:          d.Text,
			OwnerID:       d.OwnerID,
			Completed:     d.Completed,
			AttachmentURL: d.AttachmentURL,
			CreatedAt:     f.now,
		})
	}
	f.tasks = append(f.tasks, created...)
	return created, nil
}

// CreateTask stores a single draft.
func (f *FakeStore) CreateTask(ctx context.Context, draft models.DraftTask) (*models.Task, error) {
	tasks, err := f.CreateTasks(ctx, []models.DraftTask{draft})
	if err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

// ListTasks returns the owner's tasks, newest batch first.
func (f *FakeStore) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ListErr != nil {
		return nil, f.ListErr
	}
	var out []models.Task
	for _, t := range f.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetTask returns one of the owner's tasks.
func (f *FakeStore) GetTask(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.GetErr != nil {
		return nil, f.GetErr
	}
	i := f.indexLocked(ownerID, taskID)
	if i < 0 {
		return nil, f.NotFoundErr
	}
	t := f.tasks[i]
	return &t, nil
}

// UpdateTask applies update to one of the owner's tasks.
func (f *FakeStore) UpdateTask(ctx context.Context, ownerID, taskID string, update models.TaskUpdate) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	i := f.indexLocked(ownerID, taskID)
	if i < 0 {
		return nil, f.NotFoundErr
	}
	if update.Text != nil {
		f.tasks[i].Text = *update.Text
	}
	if update.Completed != nil {
		f.tasks[i].Completed = *update.Completed
	}
	t := f.tasks[i]
	return &t, nil
}

// DeleteTask removes one of the owner's tasks.
func (f *FakeStore) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	i := f.indexLocked(ownerID, taskID)
	if i < 0 {
		return f.NotFoundErr
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

func (f *FakeStore) indexLocked(ownerID, taskID string) int {
	for i, t := range f.tasks {
		if t.ID == taskID && t.OwnerID == ownerID {
			return i
		}
	}
	return -1
}
