package vision

import "testing"

// tensor builds a [1, 4+classes, count] tensor from per-box values.
func tensor(classes int, boxes [][]float32) []float32 {
	attrs := 4 + classes
	count := len(boxes)
	data := make([]float32, attrs*count)
	for i, b := range boxes {
		for a := 0; a < attrs; a++ {
			data[a*count+i] = b[a]
		}
	}
	return data
}

func TestDecodeYOLOv8(t *testing.T) {
	// three classes, three boxes on a 640x640 input
	data := tensor(3, [][]float32{
		{100, 320, 50, 80, 0.1, 0.9, 0.2},  // class 1, left
		{320, 320, 40, 40, 0.3, 0.2, 0.1},  // below threshold
		{600, 100, 20, 20, 0.05, 0.1, 0.7}, // class 2, right
	})

	got := DecodeYOLOv8(data, 7, 3, 640, 0.5)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}

	if got[0].ClassID != 1 || got[0].Score != 0.9 {
		t.Errorf("first candidate: %+v", got[0])
	}
	if PositionOf(got[0].CenterX) != Left {
		t.Errorf("first candidate should be left, x=%v", got[0].CenterX)
	}
	if got[0].Box.Min.X != 75 || got[0].Box.Max.X != 125 {
		t.Errorf("unexpected box %v", got[0].Box)
	}

	if got[1].ClassID != 2 || PositionOf(got[1].CenterX) != Right {
		t.Errorf("second candidate: %+v", got[1])
	}
}

func TestDecodeYOLOv8BadShape(t *testing.T) {
	if got := DecodeYOLOv8(make([]float32, 10), 84, 8400, 640, 0.5); got != nil {
		t.Errorf("short tensor should decode to nothing, got %v", got)
	}
	if got := DecodeYOLOv8(nil, 4, 1, 640, 0.5); got != nil {
		t.Errorf("tensor without class scores should decode to nothing, got %v", got)
	}
}
