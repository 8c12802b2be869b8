package main

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetJSONPath(t *testing.T) {
	assert.Equal(t, filepath.Join("testdata", ".a.js.json"), getJSONPath(filepath.Join("testdata", "a.js"), ""))
	assert.Equal(t, filepath.Join("golden", ".a.js.json"), getJSONPath(filepath.Join("testdata", "a.js"), "golden"))
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.js")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))
	h, err := hashFile(path)
	require.NoError(t, err)
	assert.Equal(t, "44bc2cf5ad770999", h)

	_, err = hashFile(filepath.Join(t.TempDir(), "missing.js"))
	assert.Error(t, err)
}

func TestGoldenHashesAreCurrent(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "testdata", "*.js"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			data, err := os.ReadFile(getJSONPath(file, ""))
			require.NoError(t, err)
			var golden Golden
			require.NoError(t, json.Unmarshal(data, &golden))

			h, err := hashFile(file)
			require.NoError(t, err)
			assert.Len(t, h, 16)
			assert.Equal(t, golden.Hash, h)
		})
	}
}

func TestHashFileKeepsLeadingZeros(t *testing.T) {
	h, err := hashFile(filepath.Join("..", "..", "testdata", "unknown.js"))
	require.NoError(t, err)
	assert.Equal(t, "0409f621e63d399d", h)
}

func TestFilterOutput(t *testing.T) {
	out := "keep\nchecked in 3ms\nalso keep\n"
	assert.Equal(t, "keep\nalso keep\n", filterOutput(out, []string{"checked in"}))
	assert.Equal(t, out, filterOutput(out, nil))
	assert.Equal(t, out, filterOutput(out, []string{""}))
	assert.Nil(t, splitIgnored(""))
	assert.Equal(t, []string{"a", "b"}, splitIgnored("a,b"))
}

func TestCompareExecutions(t *testing.T) {
	golden := &Golden{Result: Execution{Stdout: "[]\n", ExitCode: 0}}

	res := compareExecutions("a.js", golden, &Execution{Stdout: "[]\n", Duration: 42}, nil)
	assert.Equal(t, "PASS", res.Status)

	res = compareExecutions("a.js", golden, &Execution{Stdout: "[1]\n", ExitCode: 1}, nil)
	assert.Equal(t, "FAIL", res.Status)
	assert.Contains(t, res.Diff, "Exit Code mismatch")
	assert.Contains(t, res.Diff, "STDOUT mismatch")
	assert.NotContains(t, res.Diff, "STDERR mismatch")

	res = compareExecutions("a.js", golden, &Execution{Stdout: "[]\n", Stderr: "noise: 1\n"}, []string{"noise"})
	assert.Equal(t, "PASS", res.Status)

	res = compareExecutions("a.js", golden, &Execution{TimedOut: true, ExitCode: -1}, nil)
	assert.Equal(t, "FAIL", res.Status)
	assert.Equal(t, "Checker timed out", res.Message)
}

func TestTestFileWithoutGolden(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.js")
	require.NoError(t, os.WriteFile(src, []byte("f()"), 0o644))
	res := testFile(context.Background(), src)
	assert.Equal(t, "SKIP", res.Status)

	require.NoError(t, os.WriteFile(getJSONPath(src, ""), []byte("{not json"), 0o644))
	res = testFile(context.Background(), src)
	assert.Equal(t, "ERROR", res.Status)
	assert.True(t, strings.HasPrefix(res.Message, "Could not parse golden file"))
}

func TestRunChecker(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no shell available")
	}
	res := runChecker(context.Background(), sh, []string{"-c", `echo "out $1"; echo err >&2; exit 3`, "sh"}, "a.js")
	assert.Equal(t, "out a.js\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
	assert.False(t, res.TimedOut)

	missing := runChecker(context.Background(), filepath.Join(t.TempDir(), "nope"), nil, "a.js")
	assert.Equal(t, -2, missing.ExitCode)
	assert.Contains(t, missing.Stderr, "Execution error")
}

func TestExpandGlobPatterns(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.js", "b.js", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	files, err := expandGlobPatterns(filepath.Join(dir, "*.js") + " " + filepath.Join(dir, "a.*"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.js"), filepath.Join(dir, "b.js")}, files)

	_, err = expandGlobPatterns("[")
	assert.Error(t, err)
}

func TestHasFailures(t *testing.T) {
	assert.False(t, hasFailures(TestSuiteResults{"a": {Status: "PASS"}, "b": {Status: "STALE"}, "c": {Status: "SKIP"}}))
	assert.True(t, hasFailures(TestSuiteResults{"a": {Status: "PASS"}, "b": {Status: "ERROR"}}))
	assert.True(t, hasFailures(TestSuiteResults{"a": {Status: "FAIL"}}))
}

func TestFormatDiff(t *testing.T) {
	assert.Empty(t, formatDiff(""))
	out := formatDiff("- old\n+ new")
	assert.Contains(t, out, cRed+"    - old"+cNone)
	assert.Contains(t, out, cGreen+"    + new"+cNone)
}
