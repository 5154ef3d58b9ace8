package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid(t *testing.T) {
	g := newGrid("Purpose", "Calls").alignRight(1)
	g.add("judge", 12)
	g.add("content-text", 3)
	g.total(totalLabel, 15)

	var buf bytes.Buffer
	g.render(&buf)
	out := buf.String()

	for _, want := range []string{"Purpose", "judge", "content-text", totalLabel, "15"} {
		assert.Contains(t, out, want)
	}

	// The last line is the bottom border; the total row sits right above it.
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	footer := lines[len(lines)-2]
	assert.Contains(t, footer, totalLabel)
	assert.Contains(t, footer, "15")
	assert.NotContains(t, footer, "content-text")
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "claude-h…", clip("claude-haiku-4-5", 9))
	assert.Equal(t, "héllo", clip("héllo", 5))
	assert.Equal(t, "…", clip("claude", 1))
	assert.Equal(t, "", clip("claude", 0))
	assert.Equal(t, "", clip("claude", -3))
	assert.Equal(t, "", clip("", 0))
}

func TestUSD(t *testing.T) {
	assert.Equal(t, "$0.00", usd(0))
	assert.Equal(t, "$0.0042", usd(0.0042))
	assert.Equal(t, "$1.25", usd(1.25))
}
