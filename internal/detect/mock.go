package detect

import (
	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface. Results
// can be queued so consecutive calls (original image, then aligned image)
// return different detection sets.
type MockDetector struct {
	queue       [][]Detection
	detections  []Detection
	totalLabels int
	err         error
	calls       int
}

// NewMockDetector creates a MockDetector reporting the given label count.
func NewMockDetector(totalLabels int) *MockDetector {
	return &MockDetector{totalLabels: totalLabels}
}

// SetDetections sets the detections returned by every Detect call that has
// no queued result.
func (m *MockDetector) SetDetections(detections []Detection) {
	m.detections = detections
}

// QueueDetections appends a one-shot result; queued results are consumed in
// FIFO order before the fixed detections apply.
func (m *MockDetector) QueueDetections(detections []Detection) {
	m.queue = append(m.queue, detections)
}

// SetError sets the error returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.err = err
}

// Calls reports how many times Detect has been invoked.
func (m *MockDetector) Calls() int {
	return m.calls
}

// Detect returns the pre-configured detections or error.
func (m *MockDetector) Detect(img *gocv.Mat) ([]Detection, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.detections, nil
}

// TotalLabels returns the configured label count.
func (m *MockDetector) TotalLabels() int {
	return m.totalLabels
}

// Close is a no-op.
func (m *MockDetector) Close() error {
	return nil
}
