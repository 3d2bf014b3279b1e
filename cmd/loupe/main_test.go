package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jward/loupe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkFixture runs the checker over a single temporary script.
func checkFixture(t *testing.T, src string) []loupe.FileReport {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hook.lua")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	eng, err := loupe.New()
	require.NoError(t, err)
	reports, err := eng.NewChecker(loupe.Request{}).CheckFiles(context.Background(), []string{path})
	require.NoError(t, err)
	return reports
}

func TestValidateFormat_Accepted(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
}

func TestValidateFormat_Rejected(t *testing.T) {
	t.Parallel()
	err := validateFormat("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "yaml"`)
}

func TestParseIntArg(t *testing.T) {
	t.Parallel()
	n, err := parseIntArg("12", "line")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = parseIntArg("abc", "line")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line")

	_, err = parseIntArg("-3", "col")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "col")
}

func TestReportToCLI_ResolvesPositions(t *testing.T) {
	t.Parallel()
	reports := checkFixture(t, "print(\"start\")\nrequire(\"socket\")\n")
	require.Len(t, reports, 1)

	cli := reportToCLI(reports[0])
	require.NotEmpty(t, cli.Findings)
	f := cli.Findings[0]
	assert.Equal(t, 1, f.Line)
	assert.NotEmpty(t, f.Severity)
	assert.NotEmpty(t, f.Code)
	assert.NotEmpty(t, f.Message)
}
