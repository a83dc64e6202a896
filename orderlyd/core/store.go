package core

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/orderly-agent/orderly/internals/schemas"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrTaskNotFound = errors.New("task not found")

// TaskStore persists every task and its step history. Records are
// mutated only by the run that owns them and are immutable once the
// task reaches a terminal status.
type TaskStore struct {
	db *sql.DB
}

type TaskRecord struct {
	ID          string
	Instruction string
	Status      schemas.TaskStatus
	FailureTag  string
	Error       string
	CreatedAt   string
	StartedAt   string
	FinishedAt  string
	StepsJSON   string
}

// OpenStore opens (and migrates) the task database under dataDir.
func OpenStore(dataDir string) (*TaskStore, error) {
	dbDir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, err
	}
	return OpenStoreAt(filepath.Join(dbDir, "orderly.db"))
}

// OpenStoreAt opens the database at an exact path. Tests point it at a
// temp file.
func OpenStoreAt(dbPath string) (*TaskStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		return nil, err
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, fmt.Errorf("migrating task store: %w", err)
	}

	return &TaskStore{db: db}, nil
}

func (s *TaskStore) Close() error {
	return s.db.Close()
}

// NewRecord builds a queued record stamped with the current time.
func NewRecord(taskID, instruction string) TaskRecord {
	return TaskRecord{
		ID:          taskID,
		Instruction: instruction,
		Status:      schemas.TaskStatusQueued,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}
}

func (s *TaskStore) Create(ctx context.Context, record TaskRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO tasks (id, instruction, status, failure_tag, error, created_at, started_at, finished_at, steps_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, record.ID, record.Instruction, record.Status, nullIfEmpty(record.FailureTag), nullIfEmpty(record.Error), record.CreatedAt, nullIfEmpty(record.StartedAt), nullIfEmpty(record.FinishedAt), nullIfEmpty(record.StepsJSON))
	return err
}

func (s *TaskStore) Update(ctx context.Context, record TaskRecord) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE tasks
SET status = ?, failure_tag = ?, error = ?, started_at = ?, finished_at = ?, steps_json = ?
WHERE id = ?
`, record.Status, nullIfEmpty(record.FailureTag), nullIfEmpty(record.Error), nullIfEmpty(record.StartedAt), nullIfEmpty(record.FinishedAt), nullIfEmpty(record.StepsJSON), record.ID)
	return err
}

func (s *TaskStore) Get(ctx context.Context, id string) (*TaskRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, instruction, status, failure_tag, error, created_at, started_at, finished_at, steps_json
FROM tasks
WHERE id = ?
`, id)
	return scanRecord(row)
}

// Latest returns the most recently created task, or ErrTaskNotFound on
// an empty store.
func (s *TaskStore) Latest(ctx context.Context) (*TaskRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, instruction, status, failure_tag, error, created_at, started_at, finished_at, steps_json
FROM tasks
ORDER BY created_at DESC
LIMIT 1
`)
	return scanRecord(row)
}

func scanRecord(row *sql.Row) (*TaskRecord, error) {
	var record TaskRecord
	var status string
	var failureTag, errMsg, startedAt, finishedAt, stepsJSON sql.NullString
	if err := row.Scan(&record.ID, &record.Instruction, &status, &failureTag, &errMsg, &record.CreatedAt, &startedAt, &finishedAt, &stepsJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	record.Status = schemas.TaskStatus(status)
	record.FailureTag = failureTag.String
	record.Error = errMsg.String
	record.StartedAt = startedAt.String
	record.FinishedAt = finishedAt.String
	record.StepsJSON = stepsJSON.String
	return &record, nil
}

// ToResponse converts a record into the wire shape, decoding the step
// history column.
func (r *TaskRecord) ToResponse() (*schemas.TaskResponse, error) {
	var steps []schemas.StepPayload
	if r.StepsJSON != "" {
		if err := json.Unmarshal([]byte(r.StepsJSON), &steps); err != nil {
			return nil, fmt.Errorf("decoding step history for task %s: %w", r.ID, err)
		}
	}
	return &schemas.TaskResponse{
		TaskID:      r.ID,
		Instruction: r.Instruction,
		Status:      r.Status,
		FailureTag:  r.FailureTag,
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		Steps:       steps,
	}, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
