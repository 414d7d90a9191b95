package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/minhvu/cardscan/internal/align"
	"github.com/minhvu/cardscan/internal/config"
	"github.com/minhvu/cardscan/internal/detect"
	"github.com/minhvu/cardscan/internal/scan"
	"github.com/minhvu/cardscan/internal/server"
	"github.com/minhvu/cardscan/internal/store"
)

// mockLabelCount stands in for the model handshake when no detector
// service is available.
const mockLabelCount = 10

func main() {
	fmt.Println("Cardscan - Identity Document Scanning Service")

	cfg := config.Load()

	dbPath := cfg.DBPath
	if dbPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Failed to get home directory: %v", err)
		}

		dataDir := filepath.Join(homeDir, ".cardscan")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		dbPath = filepath.Join(dataDir, "cardscan.db")
	}

	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	templates := config.NewTemplateRegistry(cfg.TemplateDir)
	defer templates.Close()

	detector := newDetector(cfg)
	defer detector.Close()

	aligner := align.New(align.Config{
		TargetDimension: 800,
		MaxFeatures:     5000,
	})

	pipeline := scan.NewPipeline(detector, aligner, scan.DefaultGateConfig(), detect.DefaultConfig())

	srv := server.New(server.Config{
		Store:           st,
		Pipeline:        pipeline,
		Templates:       templates,
		DefaultCardType: cfg.DefaultCardType,
	})

	addr := ":" + cfg.Port
	log.Infof("Starting server on %s", addr)
	if err := srv.ListenAndServe(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newDetector prefers the YOLO inference service and falls back to a mock
// detector so the HTTP API stays usable without model weights installed.
func newDetector(cfg *config.Config) detect.Detector {
	detector, err := detect.NewYOLODetector(cfg.DetectorScript, cfg.DetectorModel, detect.DefaultConfig())
	if err != nil {
		log.Warnf("YOLO detector unavailable (%v), using mock detector", err)
		return detect.NewMockDetector(mockLabelCount)
	}
	return detector
}
