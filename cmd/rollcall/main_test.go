package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seed = `
entities:
  - id: 1
    name: Prashant Kumar
    aliases: [PK]
    attributes: Machine Learning, Compilers
    room: A-204
    activities:
      - {day: Monday, start: "09:00", end: "10:00", label: Compilers}
  - id: 2
    name: Anita Desai
    attributes: Machine Vision
    room: B-110
    activities:
      - {day: Monday, start: "09:30", end: "11:00", label: Vision Lab}
`

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ROLLCALL_CONFIG", "")
	t.Setenv("ROLLCALL_STORAGE_ENGINE", "sqlite")
	t.Setenv("ROLLCALL_DATA_PATH", dir)
	t.Setenv("ROLLCALL_LOG_LEVEL", "error")

	path := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"import", "-f", path}, &out, &bytes.Buffer{}))
	assert.Contains(t, out.String(), "imported 2 entities, 2 new activities")
	return dir
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), args, &out, &bytes.Buffer{})
	return out.String(), err
}

func TestImportWritesEvent(t *testing.T) {
	dir := setup(t)
	entries, err := os.ReadDir(filepath.Join(dir, "events"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSearchCommand(t *testing.T) {
	setup(t)

	out, err := runCmd(t, "search", "prash")
	require.NoError(t, err)
	assert.Contains(t, out, "Prashant Kumar")

	out, err = runCmd(t, "search", "machine")
	require.NoError(t, err)
	assert.Contains(t, out, "Prashant Kumar")
	assert.Contains(t, out, "Anita Desai")

	out, err = runCmd(t, "search", "qqqqqqqq")
	require.NoError(t, err)
	assert.Contains(t, out, "no matches")

	_, err = runCmd(t, "search")
	assert.Error(t, err)
}

func TestFreeCommand(t *testing.T) {
	setup(t)

	out, err := runCmd(t, "free", "--day", "mon", "--ids", "1,2")
	require.NoError(t, err)
	assert.Contains(t, out, "Monday 11:00-17:00 (360 min)")

	_, err = runCmd(t, "free", "--day", "someday", "--ids", "1")
	assert.Error(t, err)
}

func TestRecommendCommand(t *testing.T) {
	setup(t)

	out, err := runCmd(t, "recommend", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Anita Desai")

	_, err = runCmd(t, "recommend", "x")
	assert.Error(t, err)
}

func TestBookCommand(t *testing.T) {
	setup(t)

	out, err := runCmd(t, "book", "--id", "1", "--day", "Mon", "--start", "10:00", "--end", "11:00", "--label", "Office hours")
	require.NoError(t, err)
	assert.Contains(t, out, "booked Monday 10:00-11:00 Office hours")

	_, err = runCmd(t, "book", "--id", "1", "--day", "Mon", "--start", "09:30", "--end", "10:30")
	assert.ErrorContains(t, err, "overlaps")
}

func TestPresenceCommand(t *testing.T) {
	setup(t)

	// 2026-03-02 is a Monday; 04:00Z is 09:30 in Kolkata.
	out, err := runCmd(t, "presence", "1", "--at", "2026-03-02T04:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Monday 09:30: in_activity (Compilers until 10:00); free 10:00-17:00")
}

func TestUnknownCommand(t *testing.T) {
	_, err := runCmd(t, "explode")
	assert.Error(t, err)

	_, err = runCmd(t)
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "help")
	assert.NoError(t, err)
}
