package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/chorely/chorely/internal/database"
	"github.com/chorely/chorely/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(db *database.DB) *TaskRepository {
	return &TaskRepository{pool: db.Pool}
}

const taskColumns = `id, owner_id, title, description, completed, created_at, updated_at`

func scanTaskRow(scanner rowScanner) (*models.Task, error) {
	var task models.Task
	err := scanner.Scan(
		&task.ID, &task.Owner, &task.Title, &task.Description,
		&task.Completed, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &task, nil
}

func (r *TaskRepository) ListByOwner(ctx context.Context, owner string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1 ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task, err := scanTaskRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, owner, id string) (*models.Task, error) {
	if !validID(id) {
		return nil, models.ErrNotFound
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	return scanTaskRow(r.pool.QueryRow(ctx, query, id, owner))
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) (*models.Task, error) {
	now := time.Now().UTC()

	query := `
		INSERT INTO tasks (id, owner_id, title, description, completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING ` + taskColumns

	created, err := scanTaskRow(r.pool.QueryRow(ctx, query,
		uuid.New().String(), task.Owner, task.Title, task.Description, task.Completed, now,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return created, nil
}

// Update sets only the fields present in the patch
func (r *TaskRepository) Update(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.Task, error) {
	if !validID(id) {
		return nil, models.ErrNotFound
	}
	query := `
		UPDATE tasks SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			completed = COALESCE($5, completed),
			updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + taskColumns

	return scanTaskRow(r.pool.QueryRow(ctx, query, id, owner, patch.Title, patch.Description, patch.Completed))
}

func (r *TaskRepository) Delete(ctx context.Context, owner, id string) (*models.Task, error) {
	if !validID(id) {
		return nil, models.ErrNotFound
	}
	query := `DELETE FROM tasks WHERE id = $1 AND owner_id = $2 RETURNING ` + taskColumns
	return scanTaskRow(r.pool.QueryRow(ctx, query, id, owner))
}
