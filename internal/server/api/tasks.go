// Package api provides HTTP API handlers for the cardscan service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/minhvu/cardscan/internal/store"
)

// TasksHandler handles HTTP requests for scan task resources.
type TasksHandler struct {
	store *store.Store
}

// NewTasksHandler creates a new TasksHandler with the given store.
func NewTasksHandler(s *store.Store) *TasksHandler {
	return &TasksHandler{store: s}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *TasksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Parse the path to determine if this is a collection or item request
	// Expected paths: /api/tasks or /api/tasks/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/tasks")
	path = strings.TrimPrefix(path, "/")

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if path == "" {
		h.list(w, r)
		return
	}
	h.get(w, r, path)
}

// Response types

type taskResponse struct {
	ID                 string  `json:"id"`
	Status             string  `json:"status"`
	CardType           string  `json:"card_type"`
	Decision           string  `json:"decision"`
	OriginalDetections int     `json:"original_detections"`
	AlignedDetections  int     `json:"aligned_detections"`
	FinalDetections    int     `json:"final_detections"`
	UsedAligned        bool    `json:"used_aligned"`
	Inliers            int     `json:"inliers"`
	GoodMatches        int     `json:"good_matches"`
	QualityScore       float64 `json:"quality_score"`
	AcceptScore        int     `json:"accept_score"`
	BlurScore          float64 `json:"blur_score"`
	Brightness         float64 `json:"brightness"`
	Contrast           float64 `json:"contrast"`
	AvgConfidence      float64 `json:"avg_confidence"`
	MinConfidence      float64 `json:"min_confidence"`
	MaxConfidence      float64 `json:"max_confidence"`
	Error              string  `json:"error,omitempty"`
	ProcessingMs       int64   `json:"processing_ms"`
	CreatedAt          string  `json:"created_at"`
}

type listTasksResponse struct {
	Tasks []taskResponse `json:"tasks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Task to a taskResponse.
func toResponse(t *store.Task) taskResponse {
	return taskResponse{
		ID:                 t.ID,
		Status:             string(t.Status),
		CardType:           t.CardType,
		Decision:           t.Decision,
		OriginalDetections: t.OriginalDetections,
		AlignedDetections:  t.AlignedDetections,
		FinalDetections:    t.FinalDetections,
		UsedAligned:        t.UsedAligned,
		Inliers:            t.Inliers,
		GoodMatches:        t.GoodMatches,
		QualityScore:       t.QualityScore,
		AcceptScore:        t.AcceptScore,
		BlurScore:          t.BlurScore,
		Brightness:         t.Brightness,
		Contrast:           t.Contrast,
		AvgConfidence:      t.AvgConfidence,
		MinConfidence:      t.MinConfidence,
		MaxConfidence:      t.MaxConfidence,
		Error:              t.Error,
		ProcessingMs:       t.ProcessingMs,
		CreatedAt:          t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// queryInt parses an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// list handles GET /api/tasks and returns recorded tasks, most recent first.
func (h *TasksHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	tasks, err := h.store.Tasks().List(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list tasks")
		return
	}

	response := listTasksResponse{Tasks: make([]taskResponse, 0, len(tasks))}
	for _, t := range tasks {
		response.Tasks = append(response.Tasks, toResponse(t))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/tasks/{id} and returns a single task.
func (h *TasksHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	task, err := h.store.Tasks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get task")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(task))
}
