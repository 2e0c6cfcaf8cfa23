package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/lineindex/internal/report"
	"github.com/Sumatoshi-tech/lineindex/pkg/heightcache"
	"github.com/Sumatoshi-tech/lineindex/pkg/textutil"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	root := NewRootCommand()

	var out, errOut bytes.Buffer

	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := root.Execute()

	return out.String(), err
}

func TestStatsCommand(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "doc.txt", "alpha\nbeta\r\ngamma")

	out, err := execute(t, "stats", "--format", "json", path)
	require.NoError(t, err)

	var stats report.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))

	assert.Equal(t, 3, stats.Lines)
	assert.Equal(t, 17, stats.Length)
	assert.True(t, stats.Mixed)
	assert.Equal(t, report.Delimiters{LF: 1, CRLF: 1, None: 1}, stats.Delimiters)

	_, err = execute(t, "stats", "--format", "xml", path)
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestStatsCommand_Stdin(t *testing.T) {
	t.Parallel()

	root := NewRootCommand()

	var out bytes.Buffer

	root.SetIn(strings.NewReader("x\ny\n"))
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"--log-level", "error", "stats", "-f", "yaml", "-"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "lines: 3")
}

func TestLocateCommand(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "doc.txt", "héllo\nworld\n")

	tests := []struct {
		name   string
		args   []string
		row    int
		column int
	}{
		{name: "offset", args: []string{"--offset", "8"}, row: 1, column: 2},
		{name: "row", args: []string{"--row", "1"}, row: 1, column: 0},
		{name: "byte", args: []string{"--byte", "7"}, row: 1, column: 0},
		{name: "y", args: []string{"--y", "13"}, row: 1, column: 0},
		{name: "end", args: []string{"--offset", "12"}, row: 2, column: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, append([]string{"locate", "-f", "json", path}, tt.args...)...)
			require.NoError(t, err)

			var line report.LineReport
			require.NoError(t, json.Unmarshal([]byte(out), &line))

			assert.Equal(t, tt.row, line.Row)
			assert.Equal(t, tt.column, line.Column)
		})
	}

	_, err := execute(t, "locate", path, "--row", "1", "--offset", "2")
	require.ErrorIs(t, err, ErrLocateQuery)

	_, err = execute(t, "locate", path, "--row", "9")
	require.Error(t, err)
}

func TestReplayCommand(t *testing.T) {
	t.Parallel()

	oldPath := writeFile(t, "old.go", "package main\n\nfunc main() {}\n")
	newPath := writeFile(t, "new.go", "package main\n\n// main runs.\nfunc main() {\n\tprintln(1)\n}\n")

	for _, mode := range []string{"chars", "lines"} {
		out, err := execute(t, "replay", "--mode", mode, "--syntax", oldPath, newPath)
		require.NoError(t, err, mode)
		assert.Contains(t, out, "yes")
	}

	_, err := execute(t, "replay", "--mode", "words", oldPath, newPath)
	require.ErrorIs(t, err, ErrUnknownMode)

	txt := writeFile(t, "new.txt", "x")
	_, err = execute(t, "replay", "--syntax", oldPath, txt)
	require.Error(t, err)
}

func TestBenchCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "bench", "--ops", "100", "--seed", "5", "--lines", "20", "--max-insert", "6", "-f", "json")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.InDelta(t, 100, decoded["operations"], 0)
}

func TestChartCommand(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "doc.txt", "a\nbb\nccc")
	output := filepath.Join(t.TempDir(), "chart.html")

	_, err := execute(t, "chart", path, "-o", output)
	require.NoError(t, err)

	html, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Line length distribution")

	_, err = execute(t, "chart", path)
	require.ErrorIs(t, err, ErrNoOutput)
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "lineindex "))
}

func TestMissingFile(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "stats", filepath.Join(t.TempDir(), "missing.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestHeightsCommand(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "doc.txt", strings.Repeat("a", 20)+"\nb")
	snapshot := filepath.Join(t.TempDir(), "heights.lz4")

	out, err := execute(t, "heights", path, "--columns", "10", "--row-height", "10", "-o", snapshot, "-f", "json")
	require.NoError(t, err)

	var summary report.Heights
	require.NoError(t, json.Unmarshal([]byte(out), &summary))

	assert.Equal(t, 2, summary.Lines)
	assert.Equal(t, 2, summary.Applied)
	assert.Equal(t, 1, summary.Wrapped)
	assert.InDelta(t, 30.0, summary.ContentHeight, 1e-9)
	assert.Equal(t, snapshot, summary.Snapshot)

	out, err = execute(t, "stats", "-f", "json", path)
	require.NoError(t, err)

	var stats report.Stats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.InDelta(t, 24.0, stats.Height, 1e-9)

	out, err = execute(t, "stats", "-f", "json", "--heights", snapshot, path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.InDelta(t, 30.0, stats.Height, 1e-9)

	other := writeFile(t, "other.txt", "b\n"+strings.Repeat("a", 20))
	_, err = execute(t, "stats", "--heights", snapshot, other)
	require.ErrorIs(t, err, heightcache.ErrMismatch)
}

func TestHeightsCommand_Table(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "doc.txt", "one\ntwo\n")

	out, err := execute(t, "heights", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Content height")
	assert.Contains(t, out, "36")
}

func TestBinaryFileRejected(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "blob.bin", "abc\x00def")

	_, err := execute(t, "stats", path)
	require.ErrorIs(t, err, textutil.ErrBinary)
}
