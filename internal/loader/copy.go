package loader

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/roach88/tfc/internal/config"
	"github.com/roach88/tfc/internal/param"
)

// CreatedMarker in a copy script's stdout means the copy input was written.
const CreatedMarker = "was created"

// InputSuffix is appended to the entry name to form the copy script's input.
const InputSuffix = ".i"

// CopyRunner runs a copy_test generator script synchronously.
type CopyRunner interface {
	// RunCopy returns the script's stdout. A non-zero exit is reported as
	// an error alongside whatever stdout was produced.
	RunCopy(ctx context.Context, script, input string) ([]byte, error)
}

// ExecCopyRunner runs scripts with os/exec.
type ExecCopyRunner struct{}

func (ExecCopyRunner) RunCopy(ctx context.Context, script, input string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, script, input).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, fmt.Errorf("copy script %s exited %d", script, exitErr.ExitCode())
	}
	if err != nil {
		return out, fmt.Errorf("copy script %s: %w", script, err)
	}
	return out, nil
}

// expandCopy handles a copy_test [extension, script, input_dir] directive.
// It returns the key of the synthesized entry, or "" when no copy was made.
// A malformed directive or a class outside the selected weights is ignored.
func (l *Loader) expandCopy(ctx context.Context, key string, fields *param.Parameter) (string, error) {
	if !fields.Has(copyTestKey) {
		return "", nil
	}
	directive, err := fields.GetStrings(copyTestKey)
	if err != nil || len(directive) != 3 {
		l.logger.Warn("ignoring malformed copy_test", "entry", key)
		return "", nil
	}
	ext, script, inputDir := directive[0], directive[1], directive[2]

	class := config.Short
	if fields.Has("weight_class") {
		s, err := fields.GetString("weight_class")
		if err != nil {
			return "", err
		}
		if class, err = config.ParseWeightClass(s); err != nil {
			return "", err
		}
	}
	if !l.weights.Allows(class) {
		return "", nil
	}

	stdout, runErr := l.copier.RunCopy(ctx, script, inputDir+key+InputSuffix)
	copyKey := ""
	if strings.Contains(string(stdout), CreatedMarker) {
		copyKey = key + ext
		l.logger.Debug("copy test created", "entry", key, "copy", copyKey)
	}
	return copyKey, runErr
}
