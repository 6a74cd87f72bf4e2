package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helperSubprocess(mode string) Subprocess {
	return Subprocess{
		Path: os.Args[0],
		Args: []string{"-test.run=TestHelperProcess", "--", "pdf"},
		Env:  []string{"GO_WANT_HELPER_PROCESS=" + mode},
	}
}

// TestHelperProcess stands in for the pdf command when re-invoked by the
// tests below.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv("GO_WANT_HELPER_PROCESS")
	if mode == "" {
		return
	}
	if mode == "fail" {
		os.Exit(2)
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) != 5 || args[0] != "pdf" || args[1] != "--input" || args[3] != "--output" {
		os.Exit(3)
	}
	if _, err := os.Stat(args[2]); err != nil {
		os.Exit(4)
	}
	if err := os.WriteFile(args[4], []byte("%PDF-1.3"), 0o644); err != nil {
		os.Exit(5)
	}
	os.Exit(0)
}

func TestSubprocess_Render(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, ArtifactFile)
	output := filepath.Join(dir, PDFFile)
	require.NoError(t, os.WriteFile(input, []byte("[]"), 0o644))

	err := helperSubprocess("ok").Render(context.Background(), input, output)

	require.NoError(t, err)
	assert.FileExists(t, output)
}

func TestSubprocess_Failure(t *testing.T) {
	dir := t.TempDir()

	err := helperSubprocess("fail").Render(context.Background(), filepath.Join(dir, ArtifactFile), filepath.Join(dir, PDFFile))

	assert.Error(t, err)
}

func TestSelf(t *testing.T) {
	s, err := Self()

	require.NoError(t, err)
	assert.NotEmpty(t, s.Path)
	assert.Equal(t, []string{"pdf"}, s.Args)
}
