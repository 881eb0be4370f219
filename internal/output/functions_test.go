package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{18, "18 B"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}

func TestFormatSpeed(t *testing.T) {
	assert.Equal(t, "0 B/s", FormatSpeed(100, 0))
	assert.Equal(t, "512 B/s", FormatSpeed(1024, 2))
}

func TestPrintProgressBarClamps(t *testing.T) {
	full := PrintProgressBar(100, 100, 10)
	assert.Contains(t, full, "100.0%")
	assert.Equal(t, full, PrintProgressBar(150, 100, 10))
	assert.Contains(t, PrintProgressBar(-1, 100, 10), "0.0%")
	assert.Contains(t, PrintProgressBar(5, 0, 10), "100.0%")
}

func TestManagerPipeOutput(t *testing.T) {
	var out bytes.Buffer
	m := NewManager(&out, false)
	m.StartDisplay("Installing bin/gitb")
	m.UpdateProgress(9, 18)
	assert.Empty(t, out.String(), "nothing is redrawn on a pipe")

	m.UpdateProgress(18, 18)
	m.Complete("Downloaded 18 bytes to bin/gitb")
	m.StopDisplay()
	m.StopDisplay()
	assert.Equal(t, 1, strings.Count(out.String(), "Downloaded 18 bytes to bin/gitb"))
}

func TestManagerQuiet(t *testing.T) {
	var out bytes.Buffer
	m := NewManager(&out, true)
	m.StartDisplay("Installing bin/gitb")
	m.ReportError("")
	m.StopDisplay()
	assert.Empty(t, out.String())
}

func TestManagerErrorDefaultsToLabel(t *testing.T) {
	var out bytes.Buffer
	m := NewManager(&out, false)
	m.StartDisplay("Installing bin/gitb")
	m.ReportError("")
	m.StopDisplay()
	assert.Contains(t, out.String(), "Failed Installing bin/gitb")
}
