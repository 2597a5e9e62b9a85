package eventlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempLog(t *testing.T) *Log {
	t.Helper()
	l, err := New(filepath.Join(t.TempDir(), "data", "events.log"), FsyncNever)
	require.NoError(t, err)
	return l
}

func TestAppendAndReplay(t *testing.T) {
	l := tempLog(t)

	require.NoError(t, l.Append([]byte(`{"eventId":"e1"}`)))
	require.NoError(t, l.Append([]byte(`{"eventId":"e2"}`)))

	var lines []string
	require.NoError(t, l.Replay(func(_ int, line []byte) error {
		lines = append(lines, string(line))
		return nil
	}))
	assert.Equal(t, []string{`{"eventId":"e1"}`, `{"eventId":"e2"}`}, lines)
}

func TestAppendCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deeply", "nested", "events.log")
	l, err := New(path, FsyncNever)
	require.NoError(t, err)
	require.NoError(t, l.Append([]byte("x")))
	assert.True(t, l.Exists())
}

func TestAppendRejectsEmbeddedNewline(t *testing.T) {
	l := tempLog(t)
	assert.Error(t, l.Append([]byte("a\nb")))
}

func TestAppendFsyncAlways(t *testing.T) {
	l, err := New(filepath.Join(t.TempDir(), "events.log"), FsyncAlways)
	require.NoError(t, err)
	require.NoError(t, l.Append([]byte("x")))
}

func TestReplayMissingFile(t *testing.T) {
	l := tempLog(t)
	called := false
	require.NoError(t, l.Replay(func(int, []byte) error {
		called = true
		return nil
	}))
	assert.False(t, called)
	assert.False(t, l.Exists())
}

func TestReplaySkipsEmptyLines(t *testing.T) {
	l := tempLog(t)
	require.NoError(t, os.WriteFile(l.Path(), []byte("a\n\n  \nb\n"), 0o640))

	var lines []string
	var lineNos []int
	require.NoError(t, l.Replay(func(n int, line []byte) error {
		lines = append(lines, string(line))
		lineNos = append(lineNos, n)
		return nil
	}))
	assert.Equal(t, []string{"a", "b"}, lines)
	assert.Equal(t, []int{1, 4}, lineNos)
}

func TestReplayDeliversPartialTrailingLine(t *testing.T) {
	l := tempLog(t)
	require.NoError(t, os.WriteFile(l.Path(), []byte("complete\npartial-no-newline"), 0o640))

	var lines []string
	require.NoError(t, l.Replay(func(_ int, line []byte) error {
		lines = append(lines, string(line))
		return nil
	}))
	assert.Equal(t, []string{"complete", "partial-no-newline"}, lines)
}

func TestReplayPropagatesCallbackError(t *testing.T) {
	l := tempLog(t)
	require.NoError(t, l.Append([]byte("a")))

	err := l.Replay(func(int, []byte) error { return os.ErrClosed })
	assert.ErrorIs(t, err, os.ErrClosed)
}

func TestNewEmptyPath(t *testing.T) {
	_, err := New("", FsyncNever)
	assert.Error(t, err)
}
