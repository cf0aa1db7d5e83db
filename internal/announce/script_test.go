package announce

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeScript(t *testing.T, body string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "text_to_speech.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), mode); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestCommandRendererPassesText(t *testing.T) {
	out := filepath.Join(t.TempDir(), "spoken.txt")
	path := writeScript(t, `printf '%s' "$1" > "`+out+`"`, 0o755)

	r := NewCommandRenderer(path)
	if err := r.Render(context.Background(), "Mode walk"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(got) != "Mode walk" {
		t.Errorf("script received %q", got)
	}
}

func TestCommandRendererMakesScriptExecutable(t *testing.T) {
	path := writeScript(t, "exit 0", 0o644)

	r := NewCommandRenderer(path)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("script should be executable, mode %v", info.Mode())
	}
	if err := r.Render(context.Background(), "hello"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCommandRendererFailure(t *testing.T) {
	path := writeScript(t, "echo 'no audio device' >&2; exit 3", 0o755)

	err := NewCommandRenderer(path).Render(context.Background(), "hello")
	var re *RenderError
	if !errors.As(err, &re) {
		t.Fatalf("expected RenderError, got %v", err)
	}
	if re.Text != "hello" {
		t.Errorf("unexpected text %q", re.Text)
	}
	if !strings.Contains(err.Error(), "no audio device") {
		t.Errorf("stderr should be included: %v", err)
	}
}

func TestCommandRendererCancel(t *testing.T) {
	path := writeScript(t, "sleep 5", 0o755)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	begin := time.Now()
	err := NewCommandRenderer(path).Render(ctx, "hello")
	if err == nil {
		t.Fatal("expected error from cancelled render")
	}
	if time.Since(begin) > 3*time.Second {
		t.Error("render did not stop on cancellation")
	}
}

func TestCommandRendererArgs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "args.txt")
	path := writeScript(t, `echo "$@" > "`+out+`"`, 0o755)

	if err := NewCommandRenderer(path, "-v", "en").Render(context.Background(), "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := os.ReadFile(out)
	if strings.TrimSpace(string(got)) != "-v en hi" {
		t.Errorf("unexpected args %q", got)
	}
}
