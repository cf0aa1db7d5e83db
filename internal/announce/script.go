package announce

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/sweeney/smartcane/internal/log"
)

// DefaultScript is the speech script shipped next to the binary.
const DefaultScript = "./text_to_speech.sh"

// CommandRenderer speaks by running an external command with the text as
// its last argument, e.g. a text_to_speech.sh wrapper or espeak-ng.
type CommandRenderer struct {
	command string
	args    []string
	// WaitDelay bounds how long Render waits for the process to exit
	// after its context is cancelled.
	WaitDelay time.Duration
}

// NewCommandRenderer creates a renderer. If command is a file path that is
// not executable, it tries to mark it executable.
func NewCommandRenderer(command string, args ...string) *CommandRenderer {
	if strings.ContainsRune(command, os.PathSeparator) {
		ensureExecutable(command)
	}
	return &CommandRenderer{
		command:   command,
		args:      args,
		WaitDelay: 500 * time.Millisecond,
	}
}

// Render runs the command and waits for it to exit.
func (c *CommandRenderer) Render(ctx context.Context, text string) error {
	args := append(append([]string{}, c.args...), text)
	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.WaitDelay = c.WaitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return &RenderError{Text: text, Err: err}
	}
	return nil
}

func ensureExecutable(path string) {
	info, err := os.Stat(path)
	if err != nil {
		log.Warn("speech command not found", "path", path, "err", err)
		return
	}
	if info.Mode().Perm()&0o111 != 0 {
		return
	}
	if err := os.Chmod(path, 0o755); err != nil {
		log.Warn("could not make speech command executable", "path", path, "err", err)
	}
}
