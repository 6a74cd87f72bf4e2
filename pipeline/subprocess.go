package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Subprocess runs the PDF step as a separate invocation, passing the artifact
// and output paths as --input and --output after Args.
type Subprocess struct {
	Path   string
	Args   []string
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// Self re-invokes the running binary's pdf command.
func Self() (Subprocess, error) {
	exe, err := os.Executable()
	if err != nil {
		return Subprocess{}, fmt.Errorf("locate executable: %w", err)
	}
	return Subprocess{Path: exe, Args: []string{"pdf"}}, nil
}

func (s Subprocess) Render(ctx context.Context, inputPath, outputPath string) error {
	args := append(append([]string{}, s.Args...), "--input", inputPath, "--output", outputPath)
	cmd := exec.CommandContext(ctx, s.Path, args...)
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pdf subprocess: %w", err)
	}
	return nil
}
