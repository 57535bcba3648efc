package hugo

import (
	"bytes"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
)

// Renderer abstracts how the static site render step is performed. This allows
// swapping out the external hugo binary (BinaryRenderer) for alternative
// strategies without changing stage orchestration.
type Renderer interface {
	Execute(siteDir string) error
}

// BinaryRenderer invokes the configured hugo binary found on PATH.
type BinaryRenderer struct {
	Binary string
	Args   []string
}

func (b *BinaryRenderer) binary() string {
	if b.Binary == "" {
		return config.DefaultHugoBinary
	}
	return b.Binary
}

func (b *BinaryRenderer) Execute(siteDir string) error {
	bin := b.binary()
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%w: %w", ErrHugoBinaryNotFound, err)
	}

	cmd := exec.Command(bin, b.Args...)
	cmd.Dir = siteDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("Invoking hugo", "binary", bin, "args", b.Args, "dir", siteDir)

	err := cmd.Run()

	// Hugo writes diagnostics to either stream depending on the failure.
	outStr := stdout.String()
	errStr := stderr.String()
	if outStr != "" {
		slog.Debug("hugo stdout", "output", outStr)
	}
	if errStr != "" {
		slog.Warn("hugo stderr", "error_output", errStr)
	}

	if err != nil {
		output := errStr
		if output == "" {
			output = outStr
		} else if outStr != "" {
			output = outStr + "\n" + errStr
		}
		if output != "" {
			return fmt.Errorf("%w: %w: %s", ErrHugoExecutionFailed, err, strings.TrimSpace(output))
		}
		return fmt.Errorf("%w: %w", ErrHugoExecutionFailed, err)
	}
	return nil
}

// Version returns the first line of `hugo version` output.
func (b *BinaryRenderer) Version() (string, error) {
	bin := b.binary()
	if _, err := exec.LookPath(bin); err != nil {
		return "", fmt.Errorf("%w: %w", ErrHugoBinaryNotFound, err)
	}
	out, err := exec.Command(bin, "version").Output()
	if err != nil {
		return "", fmt.Errorf("query hugo version: %w", err)
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(line), nil
}

// NoopRenderer performs no rendering; useful in tests or when the output is
// already in place.
type NoopRenderer struct{}

func (n *NoopRenderer) Execute(siteDir string) error {
	slog.Debug("NoopRenderer skipping render", "dir", siteDir)
	return nil
}
