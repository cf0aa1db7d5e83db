package vision

import "image"

// Candidate is one box from a YOLOv8 output tensor before non-maximum suppression.
type Candidate struct {
	ClassID int
	Score   float32
	Box     image.Rectangle // in input pixels
	CenterX float64         // 0-1 normalized
}

// DecodeYOLOv8 reads a YOLOv8 output tensor of shape [1, attrs, count],
// where attrs = 4 box values (cx, cy, w, h) followed by one score per class.
// Boxes whose best class score is under thresh are skipped.
func DecodeYOLOv8(data []float32, attrs, count, inputW int, thresh float32) []Candidate {
	if attrs <= 4 || count <= 0 || len(data) < attrs*count {
		return nil
	}

	var out []Candidate
	for i := 0; i < count; i++ {
		best := float32(0)
		classID := 0
		for c := 4; c < attrs; c++ {
			if s := data[c*count+i]; s > best {
				best = s
				classID = c - 4
			}
		}
		if best < thresh {
			continue
		}

		cx := data[0*count+i]
		cy := data[1*count+i]
		w := data[2*count+i]
		h := data[3*count+i]

		out = append(out, Candidate{
			ClassID: classID,
			Score:   best,
			Box:     image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)),
			CenterX: clamp01(float64(cx) / float64(inputW)),
		})
	}
	return out
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
