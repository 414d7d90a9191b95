package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/minhvu/cardscan/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_Tasks(t *testing.T) {
	st := newTestStore(t)

	task := &store.Task{
		ID:              "task-1",
		Status:          store.TaskCompleted,
		CardType:        "cccd_2025",
		Decision:        "alignment_skipped",
		FinalDetections: 8,
	}
	if err := st.Tasks().Create(task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	s := New(Config{Store: st})

	t.Run("lists tasks", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response struct {
			Tasks []struct {
				ID       string `json:"id"`
				CardType string `json:"card_type"`
			} `json:"tasks"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if len(response.Tasks) != 1 {
			t.Fatalf("expected 1 task, got %d", len(response.Tasks))
		}
		if response.Tasks[0].ID != "task-1" {
			t.Errorf("expected task-1, got %s", response.Tasks[0].ID)
		}
	})

	t.Run("gets task by id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks/task-1", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response struct {
			ID              string `json:"id"`
			Decision        string `json:"decision"`
			FinalDetections int    `json:"final_detections"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response.Decision != "alignment_skipped" {
			t.Errorf("expected decision alignment_skipped, got %s", response.Decision)
		}
		if response.FinalDetections != 8 {
			t.Errorf("expected 8 final detections, got %d", response.FinalDetections)
		}
	})

	t.Run("returns 404 for missing task", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks/no-such-task", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})

	t.Run("rejects non-GET methods", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/tasks/task-1", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestServer_Statistics(t *testing.T) {
	st := newTestStore(t)

	tasks := []*store.Task{
		{ID: "a", Status: store.TaskCompleted, CardType: "cccd_2025", ProcessingMs: 100},
		{ID: "b", Status: store.TaskFailed, CardType: "cccd_2018", ProcessingMs: 50},
	}
	for _, task := range tasks {
		if err := st.Tasks().Create(task); err != nil {
			t.Fatalf("failed to create task: %v", err)
		}
	}

	s := New(Config{Store: st})

	req := httptest.NewRequest(http.MethodGet, "/api/statistics", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response struct {
		TotalTasks     int            `json:"total_tasks"`
		CompletedTasks int            `json:"completed_tasks"`
		FailedTasks    int            `json:"failed_tasks"`
		CardTypes      map[string]int `json:"card_types"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.TotalTasks != 2 {
		t.Errorf("expected 2 total tasks, got %d", response.TotalTasks)
	}
	if response.CompletedTasks != 1 {
		t.Errorf("expected 1 completed task, got %d", response.CompletedTasks)
	}
	if response.FailedTasks != 1 {
		t.Errorf("expected 1 failed task, got %d", response.FailedTasks)
	}
	if response.CardTypes["cccd_2025"] != 1 || response.CardTypes["cccd_2018"] != 1 {
		t.Errorf("unexpected card type counts: %v", response.CardTypes)
	}
}
