package repo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"time"

	"minotaur/internal/telemetry"
)

// maskingWriter wraps an io.Writer and masks credentials embedded in URLs.
type maskingWriter struct {
	w io.Writer
}

var (
	reGitHubPAT = regexp.MustCompile(`https://[^@:/]+@github\.com`)
	reBasicAuth = regexp.MustCompile(`https://[^:/]+:[^@/]+@`)
)

func mask(s string) string {
	s = reGitHubPAT.ReplaceAllString(s, "https://[REDACTED]@github.com")
	return reBasicAuth.ReplaceAllString(s, "https://[REDACTED]@")
}

func (mw *maskingWriter) Write(p []byte) (n int, err error) {
	_, err = mw.w.Write([]byte(mask(string(p))))
	return len(p), err
}

// Cloner makes shallow clones into temporary workspaces.
type Cloner struct {
	Timeout time.Duration
	// GitBinary defaults to "git".
	GitBinary string
	// Output receives masked git progress; nil discards it.
	Output io.Writer
}

// NewCloner returns a cloner with the given timeout (0 means 300s).
func NewCloner(timeout time.Duration) *Cloner {
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Cloner{Timeout: timeout, GitBinary: "git"}
}

// Workspace is a temporary directory holding a clone.
type Workspace struct {
	Dir string
}

// Cleanup removes the workspace. It is safe to call more than once.
func (w *Workspace) Cleanup() {
	if w == nil || w.Dir == "" {
		return
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		telemetry.LogWarn("Failed to remove workspace", "dir", w.Dir, "error", err)
	}
	w.Dir = ""
}

// Clone shallow-clones url into a new temporary workspace. The workspace is
// removed when the clone fails or times out.
func (c *Cloner) Clone(ctx context.Context, url string) (*Workspace, error) {
	if err := ValidateGitHubURL(url); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "minotaur_")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}
	ws := &Workspace{Dir: dir}

	cloneCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	telemetry.LogInfo("Cloning repository", "url", mask(url), "dir", dir)
	if err := c.run(cloneCtx, "clone", "--depth", "1", "--quiet", url, dir); err != nil {
		ws.Cleanup()
		if cloneCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, fmt.Errorf("repository cloning timed out after %v", c.Timeout)
		}
		return nil, err
	}
	return ws, nil
}

func (c *Cloner) run(ctx context.Context, args ...string) error {
	bin := c.GitBinary
	if bin == "" {
		bin = "git"
	}
	out := c.Output
	if out == nil {
		out = io.Discard
	}

	var errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	// Enforce no prompting
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0", "GIT_ASKPASS=/bin/true")
	cmd.Stdout = &maskingWriter{w: out}
	cmd.Stderr = &maskingWriter{w: io.MultiWriter(out, &errBuf)}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s failed: %w\nStderr: %s", args[0], err, mask(errBuf.String()))
	}
	return nil
}
