package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	require.NoError(t, p.Print(foundOutcome("Salon", 1, 2)))
	require.NoError(t, p.Print(missingOutcome("Atlantis", 2, 2)))
	require.NoError(t, p.Finish(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "[1/2] ✓ Salon: 45.764043,4.835659", lines[0])
	assert.Equal(t, "[2/2] ✗ Atlantis: not found (nowhere)", lines[1])
	assert.Equal(t, "done, 1 found, 1 not found", lines[2])
}

func TestPlainPrinter_FinishWithError(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	require.NoError(t, p.Finish(context.Canceled))
	assert.Equal(t, "stopped: context canceled, 0 found, 0 not found\n", buf.String())
}

func TestJSONPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := NewJSONPrinter(&buf)

	require.NoError(t, p.Print(foundOutcome("Salon", 1, 2)))
	require.NoError(t, p.Print(missingOutcome("Atlantis", 2, 2)))
	require.NoError(t, p.Finish(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, true, first["found"])
	coord, ok := first["coordinate"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 45.764043, coord["lat"], 1e-9)

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, false, second["found"])
	assert.NotContains(t, second, "coordinate")
}
