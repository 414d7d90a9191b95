package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"
)

// TemplateRegistry loads and caches card template images by card type.
// Templates are decoded once and shared read-only across scans.
type TemplateRegistry struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]gocv.Mat
}

// NewTemplateRegistry creates a registry over the given directory. Template
// files are named <card_type>.png or <card_type>.jpg.
func NewTemplateRegistry(dir string) *TemplateRegistry {
	return &TemplateRegistry{
		dir:   dir,
		cache: make(map[string]gocv.Mat),
	}
}

// Get returns the template image for the given card type. The returned Mat
// is owned by the registry: callers must not Close or mutate it.
func (r *TemplateRegistry) Get(cardType string) (gocv.Mat, error) {
	r.mu.RLock()
	if img, ok := r.cache[cardType]; ok {
		r.mu.RUnlock()
		return img, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if img, ok := r.cache[cardType]; ok {
		return img, nil
	}

	path, err := r.findFile(cardType)
	if err != nil {
		return gocv.Mat{}, err
	}

	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, fmt.Errorf("unreadable template image %s", path)
	}

	r.cache[cardType] = img
	return img, nil
}

func (r *TemplateRegistry) findFile(cardType string) (string, error) {
	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		path := filepath.Join(r.dir, cardType+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("template for card type %q not found in %s", cardType, r.dir)
}

// Close releases all cached templates.
func (r *TemplateRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, img := range r.cache {
		img.Close()
		delete(r.cache, name)
	}
}
