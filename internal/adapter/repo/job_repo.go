package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"letterbanner/internal/domain"
	"letterbanner/internal/infra"
	"letterbanner/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobStore on PostgreSQL.
type JobRepositoryPG struct {
	db  infra.TxExecutor
	now func() time.Time
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(db infra.TxExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{db: db, now: time.Now}
}

// EnsureSchema creates the banner_jobs table when missing.
func (r *JobRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, sqlinline.QCreateBannerJobs); err != nil {
		return fmt.Errorf("repo: ensure banner_jobs: %w", err)
	}
	return nil
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	files, request, err := encodeJSONColumns(job)
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sqlinline.QInsertBannerJob,
		job.ID,
		string(job.Status),
		job.Progress,
		job.CurrentStep,
		job.TotalLetters,
		job.CompletedLetters,
		job.ErrorMessage,
		files,
		request,
		job.RunStamp,
		job.CreatedAt,
		job.UpdatedAt,
		job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("repo: insert job: %w", err)
	}
	if tag.RowsAffected() == 0 && tag.String() != "" {
		return fmt.Errorf("%w: job %s", domain.ErrDuplicateOperation, job.ID)
	}
	return nil
}

// Get fetches a job by its identifier.
func (r *JobRepositoryPG) Get(ctx context.Context, id string) (*domain.Job, error) {
	job, err := scanJob(r.db.QueryRow(ctx, sqlinline.QSelectBannerJob, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: select job: %w", err)
	}
	return job, nil
}

// Update locks the row, applies fn and writes the result back in one
// transaction.
func (r *JobRepositoryPG) Update(ctx context.Context, id string, fn func(*domain.Job) error) (*domain.Job, error) {
	var updated *domain.Job
	err := r.db.InTx(ctx, func(tx infra.SQLExecutor) error {
		job, err := scanJob(tx.QueryRow(ctx, sqlinline.QSelectBannerJobForUpdate, id))
		if err != nil {
			if infra.IsNoRows(err) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("repo: lock job: %w", err)
		}
		if err := fn(job); err != nil {
			return err
		}
		job.UpdatedAt = r.now()
		files, request, err := encodeJSONColumns(job)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, sqlinline.QUpdateBannerJob,
			job.ID,
			string(job.Status),
			job.Progress,
			job.CurrentStep,
			job.TotalLetters,
			job.CompletedLetters,
			job.ErrorMessage,
			files,
			request,
			job.UpdatedAt,
			job.CompletedAt,
		); err != nil {
			return fmt.Errorf("repo: update job: %w", err)
		}
		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SweepExpired deletes jobs created before cutoff and returns them.
func (r *JobRepositoryPG) SweepExpired(ctx context.Context, cutoff time.Time) ([]domain.Job, error) {
	rows, err := r.db.Query(ctx, sqlinline.QDeleteExpiredBannerJobs, cutoff)
	if err != nil {
		return nil, fmt.Errorf("repo: delete expired jobs: %w", err)
	}
	defer rows.Close()
	var removed []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("repo: scan expired job: %w", err)
		}
		removed = append(removed, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo: iterate expired jobs: %w", err)
	}
	return removed, nil
}

func (r *JobRepositoryPG) Stats(ctx context.Context) (domain.JobStats, error) {
	var stats domain.JobStats
	if err := r.db.QueryRow(ctx, sqlinline.QBannerJobStats).Scan(&stats.Active, &stats.Total); err != nil {
		return domain.JobStats{}, fmt.Errorf("repo: job stats: %w", err)
	}
	return stats, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job         domain.Job
		status      string
		files       []byte
		request     []byte
		completedAt *time.Time
	)
	if err := row.Scan(
		&job.ID,
		&status,
		&job.Progress,
		&job.CurrentStep,
		&job.TotalLetters,
		&job.CompletedLetters,
		&job.ErrorMessage,
		&files,
		&request,
		&job.RunStamp,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	job.CompletedAt = completedAt
	if len(files) > 0 {
		if err := json.Unmarshal(files, &job.Files); err != nil {
			return nil, fmt.Errorf("repo: decode files: %w", err)
		}
	}
	if len(request) > 0 {
		if err := json.Unmarshal(request, &job.Request); err != nil {
			return nil, fmt.Errorf("repo: decode request: %w", err)
		}
	}
	return &job, nil
}

func encodeJSONColumns(job *domain.Job) (string, string, error) {
	files := job.Files
	if files == nil {
		files = map[string]string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return "", "", fmt.Errorf("repo: encode files: %w", err)
	}
	requestJSON, err := json.Marshal(job.Request)
	if err != nil {
		return "", "", fmt.Errorf("repo: encode request: %w", err)
	}
	return string(filesJSON), string(requestJSON), nil
}

var _ domain.JobStore = (*JobRepositoryPG)(nil)
