// Package vision turns object detections into short spoken descriptions.
// It has no camera or inference dependency; see vision/yolo for the detector.
package vision

import (
	"context"
	"strings"
)

// Detection is one detected object.
type Detection struct {
	ClassID    int
	Confidence float64 // 0-1
	CenterX    float64 // horizontal center, 0-1 normalized to frame width
}

// Position is the horizontal third of the frame an object is in.
type Position string

const (
	Left   Position = "left"
	Center Position = "center"
	Right  Position = "right"
)

// PositionOf maps a normalized x coordinate to a third of the frame.
func PositionOf(x float64) Position {
	switch {
	case x < 1.0/3:
		return Left
	case x > 2.0/3:
		return Right
	default:
		return Center
	}
}

// Position returns the third of the frame the detection is in.
func (d Detection) Position() Position {
	return PositionOf(d.CenterX)
}

// Detector captures a frame and returns zero or more detections.
type Detector interface {
	Detect(ctx context.Context) ([]Detection, error)
}

// Words are the spoken forms of each position.
type Words struct {
	Left   string `toml:"left"`
	Center string `toml:"center"`
	Right  string `toml:"right"`
}

// DefaultWords returns English position words.
func DefaultWords() Words {
	return Words{Left: "on the left", Center: "ahead", Right: "on the right"}
}

func (w Words) of(p Position) string {
	switch p {
	case Left:
		return w.Left
	case Right:
		return w.Right
	default:
		return w.Center
	}
}

// Describer labels detections and formats them for speech.
type Describer struct {
	classes []string
	labels  map[string]string
	words   Words
}

// NewDescriber creates a describer over the COCO class names. labels maps
// an English class name to the name to speak instead; missing entries fall
// back to the class name.
func NewDescriber(labels map[string]string, words Words) *Describer {
	l := make(map[string]string, len(labels))
	for k, v := range labels {
		l[strings.ToLower(k)] = v
	}
	return &Describer{classes: COCOClasses, labels: l, words: words}
}

// Label returns the spoken name for a class id.
func (d *Describer) Label(classID int) string {
	if classID < 0 || classID >= len(d.classes) {
		return "object"
	}
	name := d.classes[classID]
	if l, ok := d.labels[name]; ok && l != "" {
		return l
	}
	return name
}

// Describe returns "<label> <position>" for each detection, without
// duplicates, in detection order.
func (d *Describer) Describe(dets []Detection) []string {
	return d.describe(dets, false)
}

// DescribeCenter is Describe restricted to objects in the center third.
// Position is implied, so only labels are returned.
func (d *Describer) DescribeCenter(dets []Detection) []string {
	return d.describe(dets, true)
}

func (d *Describer) describe(dets []Detection, centerOnly bool) []string {
	var out []string
	seen := make(map[string]bool, len(dets))
	for _, det := range dets {
		pos := det.Position()
		if centerOnly && pos != Center {
			continue
		}
		s := d.Label(det.ClassID)
		if !centerOnly {
			s += " " + d.words.of(pos)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
