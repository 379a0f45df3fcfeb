package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type buf struct{ *bytes.Buffer }

func (buf) Close() error { return nil }

func newTestLogger() (*Logger, *bytes.Buffer) {
	b := &bytes.Buffer{}
	return New(buf{b}), b
}

func TestLevelFiltering(t *testing.T) {
	l, out := newTestLogger()
	require.NoError(t, l.SetLevel(WARN))

	l.Info("should not appear", KV("k", "v"))
	require.Empty(t, out.String())

	l.Warn("should appear", KV("k", "v"))
	require.Contains(t, out.String(), "should appear")
	require.Contains(t, out.String(), `k="v"`)
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("debug")
	require.NoError(t, err)
	require.Equal(t, DEBUG, lvl)

	_, err = LevelFromString("bogus")
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestKVErr(t *testing.T) {
	l, out := newTestLogger()
	l.Error("boom", KVErr(errBoom{}))
	require.True(t, strings.Contains(out.String(), "error="))
}

type errBoom struct{}

func (errBoom) Error() string { return "boom happened" }
