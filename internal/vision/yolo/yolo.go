// Package yolo detects objects in camera frames with a YOLOv8 ONNX model
// through OpenCV (gocv).
package yolo

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/sweeney/smartcane/internal/fault"
	"github.com/sweeney/smartcane/internal/vision"
)

// Config holds camera and model configuration.
type Config struct {
	// Device is a camera index ("0") or a capture pipeline / file path.
	Device           string
	FrameWidth       int
	FrameHeight      int
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
}

// DefaultConfig returns defaults for YOLOv8n on a 1280x720 camera.
func DefaultConfig() Config {
	return Config{
		Device:           "0",
		FrameWidth:       1280,
		FrameHeight:      720,
		ModelPath:        "models/yolov8n.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

var errNoFrame = errors.New("no frame captured")

// Detector captures frames from a camera and runs YOLO on them.
type Detector struct {
	cfg Config

	mu    sync.Mutex
	cam   *gocv.VideoCapture
	net   gocv.Net
	frame gocv.Mat
}

// Open loads the model and opens the camera.
func Open(cfg Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fault.Hardware("camera", "open", fmt.Errorf("model file: %w", err))
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fault.Hardware("camera", "open", fmt.Errorf("failed to load model from %s", cfg.ModelPath))
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	cam, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		net.Close()
		return nil, fault.Hardware("camera", "open", err)
	}
	if cfg.FrameWidth > 0 {
		cam.Set(gocv.VideoCaptureFrameWidth, float64(cfg.FrameWidth))
	}
	if cfg.FrameHeight > 0 {
		cam.Set(gocv.VideoCaptureFrameHeight, float64(cfg.FrameHeight))
	}

	return &Detector{cfg: cfg, cam: cam, net: net, frame: gocv.NewMat()}, nil
}

// Detect captures one frame and returns the objects in it.
func (d *Detector) Detect(ctx context.Context) ([]vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if ok := d.cam.Read(&d.frame); !ok || d.frame.Empty() {
		return nil, fault.Hardware("camera", "read", errNoFrame)
	}

	size := image.Pt(d.cfg.InputWidth, d.cfg.InputHeight)
	blob := gocv.BlobFromImage(d.frame, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	// YOLOv8 output: [1, 4+classes, boxes]
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	cands := vision.DecodeYOLOv8(data, dims[1], dims[2], d.cfg.InputWidth, d.cfg.ConfidenceThresh)
	if len(cands) == 0 {
		return nil, nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		boxes[i] = c.Box
		scores[i] = c.Score
	}

	var dets []vision.Detection
	for _, idx := range gocv.NMSBoxes(boxes, scores, d.cfg.ConfidenceThresh, d.cfg.NMSThresh) {
		c := cands[idx]
		dets = append(dets, vision.Detection{
			ClassID:    c.ClassID,
			Confidence: float64(c.Score),
			CenterX:    c.CenterX,
		})
	}
	return dets, nil
}

// Close releases the camera and the model.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	if err := d.cam.Close(); err != nil {
		errs = append(errs, fault.Hardware("camera", "close", err))
	}
	if err := d.frame.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.net.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
