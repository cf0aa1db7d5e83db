package vision

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// class ids in COCOClasses
const (
	person = 0
	car    = 2
	chair  = 56
)

func TestPositionOf(t *testing.T) {
	tests := []struct {
		x    float64
		want Position
	}{
		{0, Left},
		{0.2, Left},
		{0.33, Left},
		{1.0 / 3, Center},
		{0.5, Center},
		{2.0 / 3, Center},
		{0.7, Right},
		{1, Right},
	}
	for _, tt := range tests {
		if got := PositionOf(tt.x); got != tt.want {
			t.Errorf("PositionOf(%v) = %s, want %s", tt.x, got, tt.want)
		}
	}
}

func TestDescribeDedupesInOrder(t *testing.T) {
	d := NewDescriber(nil, DefaultWords())
	dets := []Detection{
		{ClassID: person, CenterX: 0.1},
		{ClassID: chair, CenterX: 0.5},
		{ClassID: person, CenterX: 0.2}, // same description as the first
		{ClassID: person, CenterX: 0.9},
	}

	want := []string{"person on the left", "chair ahead", "person on the right"}
	if got := d.Describe(dets); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDescribeCenter(t *testing.T) {
	d := NewDescriber(nil, DefaultWords())
	dets := []Detection{
		{ClassID: car, CenterX: 0.1},
		{ClassID: person, CenterX: 0.5},
		{ClassID: person, CenterX: 0.6},
		{ClassID: chair, CenterX: 0.45},
	}

	want := []string{"person", "chair"}
	if got := d.DescribeCenter(dets); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := d.DescribeCenter([]Detection{{ClassID: car, CenterX: 0.9}}); len(got) != 0 {
		t.Errorf("expected nothing centered, got %v", got)
	}
}

func TestLabelOverridesAndFallback(t *testing.T) {
	d := NewDescriber(map[string]string{"Person": "personne", "car": ""}, Words{Left: "à gauche", Center: "devant", Right: "à droite"})

	if got := d.Label(person); got != "personne" {
		t.Errorf("override: got %q", got)
	}
	if got := d.Label(car); got != "car" {
		t.Errorf("empty override should fall back, got %q", got)
	}
	if got := d.Label(999); got != "object" {
		t.Errorf("unknown class: got %q", got)
	}
	if got := d.Describe([]Detection{{ClassID: person, CenterX: 0.5}}); got[0] != "personne devant" {
		t.Errorf("got %q", got[0])
	}
}

func TestFakeDetector(t *testing.T) {
	f := NewFakeDetector([]Detection{{ClassID: person}}, nil)

	got, _ := f.Detect(context.Background())
	if len(got) != 1 {
		t.Errorf("first frame: got %v", got)
	}
	got, _ = f.Detect(context.Background())
	if len(got) != 0 {
		t.Errorf("second frame: got %v", got)
	}
	got, _ = f.Detect(context.Background())
	if len(got) != 0 {
		t.Errorf("last frame should repeat, got %v", got)
	}

	f.DetectError = errors.New("camera unplugged")
	if _, err := f.Detect(context.Background()); err == nil {
		t.Error("expected error")
	}
	if f.Calls() != 4 {
		t.Errorf("expected 4 calls, got %d", f.Calls())
	}
}
