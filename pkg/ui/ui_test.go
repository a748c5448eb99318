package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCursorProgress(t *testing.T) {
	assert.Equal(t, "[░░░░░░░░░░░░░░░░░░░░] 0.0%", CursorProgress(0, 100))
	assert.Equal(t, "[██████████░░░░░░░░░░] 50.0%", CursorProgress(50, 100))
	assert.Equal(t, "[████████████████████] 100.0%", CursorProgress(120, 100))
	assert.Equal(t, "[████████████████████] 100.0%", CursorProgress(1, 0))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42s", FormatDuration(42*time.Second))
	assert.Equal(t, "3m 5s", FormatDuration(3*time.Minute+5*time.Second))
	assert.Equal(t, "2h 10m", FormatDuration(2*time.Hour+10*time.Minute))
}

func TestQuietModeKeepsErrors(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetColor(false)
	SetQuietMode(true)
	defer func() {
		SetQuietMode(false)
		SetOutput(nil)
	}()

	PrintInfo("Cursor", "10")
	PrintSuccess("done")
	PrintError("Scan failed", "boom")

	assert.Equal(t, "Scan failed: boom\n", buf.String())
}

func TestPrintInfoWithoutColor(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetColor(false)
	defer SetOutput(nil)

	PrintInfo("Upper bound", "25")
	assert.Equal(t, "Upper bound: 25\n", buf.String())
}
