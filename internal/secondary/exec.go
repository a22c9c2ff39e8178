package secondary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// MaxArgPayload is the largest batch payload passed as a single argument.
// Linux rejects longer argv strings (MAX_ARG_STRLEN, 128 KiB with the NUL)
// with E2BIG.
const MaxArgPayload = 128<<10 - 1

var _ Transport = (*ExecTransport)(nil)

// ExecTransport runs the classifier as a child process per batch:
//
//	<command> <script> batch '<json array of {"description": ...}>'
//
// In stdin mode the argument is "-" and the JSON array is written to the
// process's stdin instead. The process prints the JSON result array on
// stdout and exits 0, or prints {"error": "..."} and exits non-zero.
type ExecTransport struct {
	command   string
	script    string
	stdin     bool
	waitDelay time.Duration
}

// NewExecTransport returns a transport running script with command (e.g.
// "node", "scripts/job_analysis.js"). script may be empty when command is
// the classifier itself. With stdin set the batch is piped rather than
// passed on the command line.
func NewExecTransport(command, script string, stdin bool) *ExecTransport {
	return &ExecTransport{command: command, script: script, stdin: stdin, waitDelay: 2 * time.Second}
}

// Name implements Transport.
func (t *ExecTransport) Name() string { return "exec" }

// Probe checks that the command resolves on PATH and the script exists.
func (t *ExecTransport) Probe(_ context.Context) error {
	if _, err := exec.LookPath(t.command); err != nil {
		return fmt.Errorf("find %s: %w", t.command, err)
	}
	if t.script != "" {
		if _, err := os.Stat(t.script); err != nil {
			return fmt.Errorf("classifier script: %w", err)
		}
	}
	return nil
}

// Classify implements Transport. When ctx expires the process is killed and
// its pipes are abandoned after waitDelay.
func (t *ExecTransport) Classify(ctx context.Context, descriptions []string) ([]byte, error) {
	items := make([]classifyRequestItem, len(descriptions))
	for i, d := range descriptions {
		items[i] = classifyRequestItem{Description: d}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal classify request: %w", err)
	}

	var args []string
	if t.script != "" {
		args = append(args, t.script)
	}
	if t.stdin {
		args = append(args, "batch", "-")
	} else {
		if len(payload) > MaxArgPayload {
			return nil, fmt.Errorf("batch payload is %d bytes, over the %d byte argument limit; enable secondary.exec.stdin or lower analysis.batch_size",
				len(payload), MaxArgPayload)
		}
		args = append(args, "batch", string(payload))
	}

	cmd := exec.CommandContext(ctx, t.command, args...)
	cmd.WaitDelay = t.waitDelay
	if t.stdin {
		cmd.Stdin = bytes.NewReader(payload)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", t.command, ctxErr)
		}
		return nil, fmt.Errorf("%s exited with status %d: %s: %w",
			t.command, exitCode(err), processMessage(stdout.Bytes(), stderr.Bytes()), err)
	}
	return stdout.Bytes(), nil
}

// processMessage extracts the most useful failure text from a dead process:
// the {"error": ...} object on stdout if present, else trimmed stderr.
func processMessage(stdout, stderr []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(stdout, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return "no output"
	}
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	return msg
}

// exitCode returns the exit status of a finished process error, or -1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
