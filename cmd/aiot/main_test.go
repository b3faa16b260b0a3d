package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_UsageAndUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(nil, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "commands:")

	stderr.Reset()
	assert.Equal(t, 2, run([]string{"bogus"}, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stderr.String(), `unknown command "bogus"`)
}

func TestRun_FormatReadsStdin(t *testing.T) {
	var stdout, stderr bytes.Buffer
	in := `<img src="/uploads/a.jpg">`
	code := run([]string{"format", "--uploads-base", "https://api.example.test"}, strings.NewReader(in), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Equal(t, `<img src="https://api.example.test/uploads/a.jpg">`, stdout.String())
}

func TestRun_CompressWritesOutput(t *testing.T) {
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 200, 100))
	for x := 0; x < 200; x++ {
		for y := 0; y < 100; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	src := filepath.Join(dir, "board.png")
	require.NoError(t, os.WriteFile(src, buf.Bytes(), 0o600))

	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))
	var stdout, stderr bytes.Buffer
	code := run([]string{"compress", "--max-width", "50", "--out", out, src}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), filepath.Join(out, "board.jpg"))

	f, err := os.Open(filepath.Join(out, "board.jpg"))
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 50, cfg.Width)
	assert.Equal(t, 25, cfg.Height)
}

func TestRun_CompressNeedsInput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"compress"}, strings.NewReader(""), &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage: aiot compress")
}
