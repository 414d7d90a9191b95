package detect

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

// yoloIdleTimeout is how long the Python process may sit unused before it is
// shut down. It restarts lazily on the next Detect call.
const yoloIdleTimeout = 30 * time.Second

// YOLODetector implements Detector using a Python YOLO inference subprocess.
// The process speaks a framed protocol on its pipes: a JSON handshake line
// listing the model's labels, then per request a 4-byte big-endian length
// plus JPEG bytes in and one JSON line of detections out.
//
// All calls are serialized on an internal mutex; the model holds a single
// inference context.
type YOLODetector struct {
	config    Config
	script    string
	modelPath string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	labels    []string
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewYOLODetector creates a detector backed by the given service script and
// model weights. The Python process is started lazily on first use, except
// that TotalLabels forces an early start to read the handshake.
func NewYOLODetector(script, modelPath string, config Config) (*YOLODetector, error) {
	if script == "" {
		script = findYOLOScript()
	}
	if script == "" {
		return nil, fmt.Errorf("yolo_service.py not found")
	}

	return &YOLODetector{
		config:    config,
		script:    script,
		modelPath: modelPath,
	}, nil
}

// Detect encodes the image as JPEG, ships it to the inference process, and
// returns the decoded detections above the configured confidence threshold.
func (d *YOLODetector) Detect(img *gocv.Mat) ([]Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *img)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var response struct {
		Detections []jsonDetection `json:"detections"`
	}
	if err := json.Unmarshal([]byte(line), &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	result := make([]Detection, 0, len(response.Detections))
	for _, jd := range response.Detections {
		det, err := jd.toDetection()
		if err != nil {
			log.Warnf("dropping malformed detection for %q: %v", jd.Label, err)
			continue
		}
		if det.Confidence < d.config.ConfThreshold {
			continue
		}
		result = append(result, det)
	}

	d.resetIdleTimer()
	return result, nil
}

// TotalLabels reports the label count from the model handshake.
func (d *YOLODetector) TotalLabels() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		log.Errorf("yolo service unavailable: %v", err)
		return 0
	}
	return len(d.labels)
}

// Close shuts down the Python process.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *YOLODetector) ensureStarted() error {
	if d.started {
		return nil
	}

	pythonPath := findVenvPython()
	if pythonPath == "" {
		pythonPath = "python3"
	}

	args := []string{d.script}
	if d.modelPath != "" {
		args = append(args, d.modelPath)
	}
	d.cmd = exec.Command(pythonPath, args...)

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start yolo service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)

	// The service announces its class list before accepting requests.
	line, err := d.stdout.ReadString('\n')
	if err != nil {
		d.cmd.Process.Kill()
		d.cmd.Wait()
		d.cmd = nil
		return fmt.Errorf("read handshake: %w", err)
	}

	var handshake struct {
		Labels []string `json:"labels"`
	}
	if err := json.Unmarshal([]byte(line), &handshake); err != nil {
		d.cmd.Process.Kill()
		d.cmd.Wait()
		d.cmd = nil
		return fmt.Errorf("parse handshake: %w", err)
	}

	d.labels = handshake.Labels
	d.started = true
	d.resetIdleTimer()

	log.Infof("yolo service started with %d labels", len(d.labels))
	return nil
}

func (d *YOLODetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *YOLODetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(yoloIdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

func findYOLOScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/yolo_service.py",
		"../scripts/yolo_service.py",
		filepath.Join(execDir, "scripts/yolo_service.py"),
		filepath.Join(os.Getenv("HOME"), ".cardscan/scripts/yolo_service.py"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// findVenvPython looks for a Python interpreter in a virtual environment
// next to the binary or under the data directory.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".cardscan/venv/bin/python"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			absPath, err := filepath.Abs(path)
			if err == nil {
				return absPath
			}
			return path
		}
	}
	return ""
}

// jsonDetection is the wire form of one detection. The bbox is either a
// flat [x1, y1, x2, y2] or four [x, y] corner points; both decode into the
// tagged BBox variant and canonicalize to a Rect.
type jsonDetection struct {
	Label      string          `json:"label"`
	Confidence float64         `json:"confidence"`
	BBox       json.RawMessage `json:"bbox"`
}

func (jd jsonDetection) toDetection() (Detection, error) {
	box, err := decodeBBox(jd.BBox)
	if err != nil {
		return Detection{}, err
	}
	return Detection{
		Label:      jd.Label,
		Box:        box.Rect(),
		Confidence: jd.Confidence,
	}, nil
}

func decodeBBox(raw json.RawMessage) (BBox, error) {
	var flat [4]int
	if err := json.Unmarshal(raw, &flat); err == nil {
		return RectBox(flat[0], flat[1], flat[2], flat[3]), nil
	}

	var corners [4][2]int
	if err := json.Unmarshal(raw, &corners); err == nil {
		var points [4]Point
		for i, c := range corners {
			points[i] = Point{X: c[0], Y: c[1]}
		}
		return QuadBox(points), nil
	}

	return BBox{}, fmt.Errorf("bbox is neither a rectangle nor a quadrilateral: %s", raw)
}
