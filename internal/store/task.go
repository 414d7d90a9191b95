package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// TaskStatus marks whether a scan completed or failed.
type TaskStatus string

const (
	// TaskCompleted means the pipeline produced a detection set.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed means the scan aborted before producing detections.
	TaskFailed TaskStatus = "failed"
)

// Task is one processed scan, with its alignment and quality metrics.
type Task struct {
	ID                 string
	Status             TaskStatus
	CardType           string
	Decision           string
	OriginalDetections int
	AlignedDetections  int
	FinalDetections    int
	UsedAligned        bool
	Inliers            int
	GoodMatches        int
	QualityScore       float64
	AcceptScore        int
	BlurScore          float64
	Brightness         float64
	Contrast           float64
	AvgConfidence      float64
	MinConfidence      float64
	MaxConfidence      float64
	Error              string
	ProcessingMs       int64
	CreatedAt          time.Time
}

// TaskRepository provides persistence for scan tasks.
type TaskRepository struct {
	db *sql.DB
}

// Tasks returns the task repository for this store.
func (s *Store) Tasks() *TaskRepository {
	return &TaskRepository{db: s.db}
}

const taskColumns = `id, status, card_type, decision,
	original_detections, aligned_detections, final_detections, used_aligned,
	inliers, good_matches, quality_score, accept_score,
	blur_score, brightness, contrast,
	avg_confidence, min_confidence, max_confidence,
	error, processing_ms, created_at`

// Create inserts a new task into the database.
func (r *TaskRepository) Create(t *Task) error {
	t.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO tasks (`+taskColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(t.Status), t.CardType, t.Decision,
		t.OriginalDetections, t.AlignedDetections, t.FinalDetections, t.UsedAligned,
		t.Inliers, t.GoodMatches, t.QualityScore, t.AcceptScore,
		t.BlurScore, t.Brightness, t.Contrast,
		t.AvgConfidence, t.MinConfidence, t.MaxConfidence,
		t.Error, t.ProcessingMs, t.CreatedAt,
	)
	return err
}

func scanTask(row interface{ Scan(...any) error }) (*Task, error) {
	t := &Task{}
	var status string

	err := row.Scan(
		&t.ID, &status, &t.CardType, &t.Decision,
		&t.OriginalDetections, &t.AlignedDetections, &t.FinalDetections, &t.UsedAligned,
		&t.Inliers, &t.GoodMatches, &t.QualityScore, &t.AcceptScore,
		&t.BlurScore, &t.Brightness, &t.Contrast,
		&t.AvgConfidence, &t.MinConfidence, &t.MaxConfidence,
		&t.Error, &t.ProcessingMs, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Status = TaskStatus(status)
	return t, nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(id string) (*Task, error) {
	row := r.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List retrieves tasks most recent first. A non-positive limit returns all
// tasks.
func (r *TaskRepository) List(limit, offset int) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}
