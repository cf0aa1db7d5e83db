package cleanup

import (
	"errors"
	"strings"
	"testing"
)

func TestRunIsLIFO(t *testing.T) {
	var s Stack
	var order []string
	for _, name := range []string{"button", "motor", "speech"} {
		name := name
		s.Push(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	if err := s.Run(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(order, ",") != "speech,motor,button" {
		t.Errorf("unexpected order: %v", order)
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	var s Stack
	var ran []string
	s.Push("button", func() error { ran = append(ran, "button"); return nil })
	s.Push("camera", func() error { ran = append(ran, "camera"); return errors.New("device busy") })
	s.Push("motor", func() error { panic("line gone") })

	err := s.Run()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "camera: device busy") || !strings.Contains(err.Error(), "motor: panic: line gone") {
		t.Errorf("unexpected error: %v", err)
	}
	if strings.Join(ran, ",") != "camera,button" {
		t.Errorf("unexpected steps run: %v", ran)
	}
}

func TestRunOnce(t *testing.T) {
	var s Stack
	calls := 0
	s.Push("sensor", func() error { calls++; return nil })

	s.Run()
	s.Push("late", func() error { calls++; return nil })
	if err := s.Run(); err != nil {
		t.Errorf("second run: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if s.Len() != 0 {
		t.Errorf("expected no pending steps, got %d", s.Len())
	}
}
