package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"todo-ai/app/models"
)

const taskColumns = "t.id AS id, t.text AS text, t.owner_id AS owner_id, t.completed AS completed, " +
	"t.attachment_url AS attachment_url, t.created_at AS created_at, t.seq AS seq"

// TaskService stores tasks in Neo4j. Every query is scoped to the owning user.
type TaskService struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewTaskService creates a new instance of TaskService.
// An empty database selects the server default.
func NewTaskService(driver neo4j.DriverWithContext, database string) *TaskService {
	return &TaskService{driver: driver, database: database}
}

func (s *TaskService) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// EnsureSchema creates the uniqueness constraint and owner index used by the queries.
func (s *TaskService) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range []string{
		"CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE",
		"CREATE INDEX task_owner IF NOT EXISTS FOR (t:Task) ON (t.owner_id)",
	} {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			res, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			return res.Consume(ctx)
		})
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// CreateTasks adds a batch of tasks in a single write transaction and returns them
// in the order given.
func (s *TaskService) CreateTasks(ctx context.Context, drafts []models.DraftTask) ([]models.Task, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	rows := make([]any, len(drafts))
	for i, d := range drafts {
		var attachmentURL any
		if d.AttachmentURL != nil {
			attachmentURL = *d.AttachmentURL
		}
		rows[i] = map[string]any{
			"id":             uuid.New().String(),
			"text":           d.Text,
			"owner_id":       d.OwnerID,
			"completed":      d.Completed,
			"attachment_url": attachmentURL,
			"seq":            int64(i),
		}
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"UNWIND $tasks AS task "+
				"CREATE (t:Task {id: task.id, text: task.text, owner_id: task.owner_id, completed: task.completed, "+
				"attachment_url: task.attachment_url, seq: task.seq, created_at: datetime()}) "+
				"RETURN "+taskColumns+" ORDER BY seq",
			map[string]any{"tasks": rows},
		)
		if err != nil {
			return nil, err
		}
		return collectTasks(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Task), nil
}

// CreateTask adds a single task.
func (s *TaskService) CreateTask(ctx context.Context, draft models.DraftTask) (*models.Task, error) {
	tasks, err := s.CreateTasks(ctx, []models.DraftTask{draft})
	if err != nil {
		return nil, err
	}
	if len(tasks) != 1 {
		return nil, fmt.Errorf("create task: expected 1 record, got %d", len(tasks))
	}
	return &tasks[0], nil
}

// ListTasks retrieves the owner's tasks, newest first.
func (s *TaskService) ListTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task {owner_id: $owner_id}) "+
				"RETURN "+taskColumns+" ORDER BY created_at DESC, seq ASC",
			map[string]any{"owner_id": ownerID},
		)
		if err != nil {
			return nil, err
		}
		return collectTasks(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return result.([]models.Task), nil
}

// GetTask retrieves a single task by its ID.
func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID string) (*models.Task, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id, owner_id: $owner_id}) RETURN "+taskColumns,
			map[string]any{"id": taskID, "owner_id": ownerID},
		)
		if err != nil {
			return nil, err
		}
		return collectTasks(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return firstTask(result.([]models.Task))
}

// UpdateTask changes the text and/or completion state of a task.
func (s *TaskService) UpdateTask(ctx context.Context, ownerID, taskID string, update models.TaskUpdate) (*models.Task, error) {
	var text, completed any
	if update.Text != nil {
		text = *update.Text
	}
	if update.Completed != nil {
		completed = *update.Completed
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id, owner_id: $owner_id}) "+
				"SET t.text = coalesce($text, t.text), t.completed = coalesce($completed, t.completed) "+
				"RETURN "+taskColumns,
			map[string]any{
				"id":        taskID,
				"owner_id":  ownerID,
				"text":      text,
				"completed": completed,
			},
		)
		if err != nil {
			return nil, err
		}
		return collectTasks(ctx, res)
	})
	if err != nil {
		return nil, err
	}
	return firstTask(result.([]models.Task))
}

// DeleteTask deletes a task and its relationships.
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	deleted, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MATCH (t:Task {id: $id, owner_id: $owner_id}) DETACH DELETE t",
			map[string]any{"id": taskID, "owner_id": ownerID},
		)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().NodesDeleted(), nil
	})
	if err != nil {
		return err
	}
	if deleted.(int) == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func collectTasks(ctx context.Context, res neo4j.ResultWithContext) ([]models.Task, error) {
	tasks := []models.Task{}
	for res.Next(ctx) {
		task, err := recordToTask(res.Record())
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := res.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func firstTask(tasks []models.Task) (*models.Task, error) {
	if len(tasks) == 0 {
		return nil, ErrTaskNotFound
	}
	return &tasks[0], nil
}

// recordToTask maps a row produced with taskColumns.
func recordToTask(record *neo4j.Record) (models.Task, error) {
	id, _, err := neo4j.GetRecordValue[string](record, "id")
	if err != nil {
		return models.Task{}, err
	}
	text, _, err := neo4j.GetRecordValue[string](record, "text")
	if err != nil {
		return models.Task{}, err
	}
	ownerID, _, err := neo4j.GetRecordValue[string](record, "owner_id")
	if err != nil {
		return models.Task{}, err
	}
	completed, _, err := neo4j.GetRecordValue[bool](record, "completed")
	if err != nil {
		return models.Task{}, err
	}
	createdAt, _, err := neo4j.GetRecordValue[time.Time](record, "created_at")
	if err != nil {
		return models.Task{}, err
	}
	url, isNil, err := neo4j.GetRecordValue[string](record, "attachment_url")
	if err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		ID:        id,
		Text:      text,
		OwnerID:   ownerID,
		Completed: completed,
		CreatedAt: createdAt,
	}
	if !isNil {
		task.AttachmentURL = &url
	}
	return task, nil
}
