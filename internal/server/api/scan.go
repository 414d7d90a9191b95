package api

import (
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/minhvu/cardscan/internal/config"
	"github.com/minhvu/cardscan/internal/detect"
	"github.com/minhvu/cardscan/internal/scan"
	"github.com/minhvu/cardscan/internal/store"
)

// maxUploadBytes bounds the multipart form size for scan uploads.
const maxUploadBytes = 32 << 20

// Notifier pushes completed scan events to subscribers.
type Notifier interface {
	Broadcast(event any)
}

// ScanHandler handles document scan uploads.
type ScanHandler struct {
	pipeline        *scan.Pipeline
	templates       *config.TemplateRegistry
	store           *store.Store
	events          Notifier
	defaultCardType string
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(p *scan.Pipeline, templates *config.TemplateRegistry,
	s *store.Store, events Notifier, defaultCardType string) *ScanHandler {
	return &ScanHandler{
		pipeline:        p,
		templates:       templates,
		store:           s,
		events:          events,
		defaultCardType: defaultCardType,
	}
}

type scanResponse struct {
	TaskID             string             `json:"task_id"`
	CardType           string             `json:"card_type"`
	Status             string             `json:"status"`
	Decision           string             `json:"decision"`
	UsedAligned        bool               `json:"used_aligned"`
	Detections         []detect.Detection `json:"detections"`
	OriginalDetections int                `json:"original_detections"`
	AlignedDetections  int                `json:"aligned_detections"`
	Inliers            int                `json:"inliers"`
	GoodMatches        int                `json:"good_matches"`
	QualityScore       float64            `json:"quality_score"`
	AcceptScore        int                `json:"accept_score"`
	Metrics            scan.ImageMetrics  `json:"image_metrics"`
	ProcessingMs       int64              `json:"processing_ms"`
}

// ServeHTTP handles POST /api/scan with a multipart image upload.
func (h *ScanHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	photo, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil || photo.Empty() {
		writeError(w, http.StatusBadRequest, "Unreadable image")
		return
	}
	defer photo.Close()

	cardType := r.FormValue("card_type")
	if cardType == "" {
		cardType = h.defaultCardType
	}

	// A missing template degrades to a plain detection pass; the pipeline
	// skips alignment on an empty template. Registry-owned templates must
	// not be closed here.
	template := gocv.NewMat()
	ownTemplate := true
	if h.templates != nil {
		if tmpl, err := h.templates.Get(cardType); err != nil {
			log.Warnf("no template for card type %q: %v", cardType, err)
		} else {
			template.Close()
			template = tmpl
			ownTemplate = false
		}
	}
	if ownTemplate {
		defer template.Close()
	}

	taskID := uuid.New().String()
	start := time.Now()

	result, err := h.pipeline.Process(template, photo)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		log.Errorf("scan %s failed: %v", taskID, err)
		h.recordTask(&store.Task{
			ID:           taskID,
			Status:       store.TaskFailed,
			CardType:     cardType,
			Error:        err.Error(),
			ProcessingMs: elapsed,
		})
		writeError(w, http.StatusInternalServerError, "Scan failed")
		return
	}
	defer result.Close()

	minConf, maxConf, avgConf := confidenceStats(result.Detections)

	task := &store.Task{
		ID:                 taskID,
		Status:             store.TaskCompleted,
		CardType:           cardType,
		Decision:           string(result.Decision),
		OriginalDetections: result.OriginalCount,
		AlignedDetections:  result.AlignedCount,
		FinalDetections:    len(result.Detections),
		UsedAligned:        result.UsedAligned,
		Inliers:            result.Inliers,
		GoodMatches:        result.GoodMatches,
		QualityScore:       result.QualityScore,
		AcceptScore:        result.AcceptScore,
		BlurScore:          result.Metrics.BlurScore,
		Brightness:         result.Metrics.Brightness,
		Contrast:           result.Metrics.Contrast,
		AvgConfidence:      avgConf,
		MinConfidence:      minConf,
		MaxConfidence:      maxConf,
		ProcessingMs:       elapsed,
	}
	h.recordTask(task)

	if h.events != nil {
		h.events.Broadcast(toResponse(task))
	}

	writeJSON(w, http.StatusOK, scanResponse{
		TaskID:             taskID,
		CardType:           cardType,
		Status:             string(store.TaskCompleted),
		Decision:           string(result.Decision),
		UsedAligned:        result.UsedAligned,
		Detections:         result.Detections,
		OriginalDetections: result.OriginalCount,
		AlignedDetections:  result.AlignedCount,
		Inliers:            result.Inliers,
		GoodMatches:        result.GoodMatches,
		QualityScore:       result.QualityScore,
		AcceptScore:        result.AcceptScore,
		Metrics:            result.Metrics,
		ProcessingMs:       elapsed,
	})
}

func (h *ScanHandler) recordTask(t *store.Task) {
	if h.store == nil {
		return
	}
	if err := h.store.Tasks().Create(t); err != nil {
		log.Errorf("record task %s: %v", t.ID, err)
	}
}

func confidenceStats(detections []detect.Detection) (min, max, avg float64) {
	if len(detections) == 0 {
		return 0, 0, 0
	}

	min = detections[0].Confidence
	max = detections[0].Confidence
	sum := 0.0
	for _, d := range detections {
		if d.Confidence < min {
			min = d.Confidence
		}
		if d.Confidence > max {
			max = d.Confidence
		}
		sum += d.Confidence
	}
	return min, max, sum / float64(len(detections))
}
