package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgienger/tplan/internal/models"
	"github.com/tgienger/tplan/internal/store"
)

type cli struct {
	t         *testing.T
	configDir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	return &cli{t: t, configDir: t.TempDir()}
}

// run executes one command in a fresh session, the way a shell would.
func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	root, s := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config-dir", c.configDir}, args...))
	err := root.Execute()
	require.NoError(c.t, s.close())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func TestAddListFinish(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("add", "Write", "report")
	assert.Equal(t, "Added task 1: Write report\n", out)
	c.mustRun("add", "Review")

	out = c.mustRun("list")
	assert.Contains(t, out, "TASK NAME")
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "PAUSED")
	assert.Contains(t, out, "2 TASKS")

	out = c.mustRun("finish", "1")
	assert.Contains(t, out, "Finished task 1")

	out = c.mustRun("list")
	assert.NotContains(t, out, "Write report")
	assert.Contains(t, out, "1 TASKS")

	out = c.mustRun("list", "--finished")
	assert.Contains(t, out, "Write report")
	assert.Contains(t, out, "DATE END")

	today := time.Now().Format(models.DayLayout)
	out = c.mustRun("list", "--from", today)
	assert.Contains(t, out, "Write report")
	out = c.mustRun("list", "--from", "01-01-2000", "--to", "02-01-2000")
	assert.NotContains(t, out, "Write report")
}

func TestTrackPausesAfterLimit(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "Focus")

	out := c.mustRun("track", "1", "--for", "50ms")
	assert.Contains(t, out, `Tracking "Focus"`)
	assert.Contains(t, out, `Paused "Focus" at 0:00:10`)

	out = c.mustRun("list")
	assert.Contains(t, out, "PAUSED")
	assert.Contains(t, out, "0:00:10")
}

func TestTrackRefusesFinished(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "Done")
	c.mustRun("finish", "1")

	_, err := c.run("track", "1", "--for", "10ms")
	assert.ErrorContains(t, err, "finished")
}

func TestDelete(t *testing.T) {
	c := newCLI(t)
	c.mustRun("add", "Scratch")

	out := c.mustRun("delete", "1")
	assert.Equal(t, "Deleted task 1\n", out)

	_, err := c.run("delete", "1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestArgumentErrors(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("finish", "one")
	assert.ErrorContains(t, err, "invalid task id")

	_, err = c.run("add", "   ")
	assert.ErrorIs(t, err, store.ErrEmptyName)

	_, err = c.run("list", "--from", "2024-03-01")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	c := newCLI(t)
	out := c.mustRun("version")
	assert.True(t, strings.HasPrefix(out, "tplan dev"))
}
