package app

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"

	"imageviewer/internal/logging"
)

var (
	errEmptyCommand  = errors.New("empty command")
	errShellOperator = errors.New("shell operators are not supported")
	errNoImage       = errors.New("no image loaded")
)

// quoteArg wraps s in double quotes so shellwords returns it as one argument
func quoteArg(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// expandCommand replaces every %1 in line with the quoted path and splits the
// result into arguments. Nothing is run through a shell.
func expandCommand(line, path string) ([]string, error) {
	expanded := strings.ReplaceAll(line, "%1", quoteArg(path))

	p := shellwords.NewParser()
	args, err := p.Parse(expanded)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", line, err)
	}
	if p.Position >= 0 {
		return nil, fmt.Errorf("parsing %q: %w", line, errShellOperator)
	}
	if len(args) == 0 {
		return nil, errEmptyCommand
	}
	return args, nil
}

// runCommand starts the expanded command without waiting for it. The process
// is reaped in the background.
func runCommand(line, path string) error {
	if path == "" {
		return errNoImage
	}
	args, err := expandCommand(line, path)
	if err != nil {
		return err
	}

	cmd := exec.Command(args[0], args[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", args[0], err)
	}
	logging.Logger().Info("action started", "command", args[0], "pid", cmd.Process.Pid)

	go func() {
		if err := cmd.Wait(); err != nil {
			logging.Logger().Warn("action failed", "command", args[0], "err", err)
		}
	}()
	return nil
}
