// Package pose reads body landmark frames produced by an external extractor.
//
// Frames arrive as one JSON object per line using the 33-point MediaPipe
// indexing with coordinates normalized to the image (y grows downward).
package pose

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MediaPipe landmark indices used by gesture classification.
const (
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16

	LandmarkCount = 33
)

// ErrMalformedFrame marks a line that is not a frame object.
var ErrMalformedFrame = errors.New("malformed pose frame")

type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Frame is one camera frame. No landmarks means no subject was detected.
type Frame struct {
	Landmarks []Landmark `json:"landmarks"`
}

// HasSubject reports whether the frame carries a full skeleton.
func (f Frame) HasSubject() bool {
	return len(f.Landmarks) > RightWrist
}

// Reader decodes newline-delimited frames.
type Reader struct {
	scanner *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &Reader{scanner: scanner}
}

// Next returns the next frame, io.EOF at end of input, or an error wrapping
// ErrMalformedFrame for a bad line. A malformed line does not end the stream.
func (r *Reader) Next() (Frame, error) {
	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		var frame Frame
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return frame, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Frame{}, fmt.Errorf("read pose frames: %w", err)
	}
	return Frame{}, io.EOF
}
