package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seriesstats/internal/records"
)

func TestNewUnknownKind(t *testing.T) {
	_, err := New(context.Background(), Config{Kind: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unsupported kind")
}

func TestRegisterAndNew(t *testing.T) {
	called := false
	Register("test-fake", func(_ context.Context, cfg Config) (Source, error) {
		called = true
		return nil, nil
	})

	_, err := New(context.Background(), Config{Kind: "test-fake"})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, Kinds(), "test-fake")
}

func TestRegisterPanics(t *testing.T) {
	assert.Panics(t, func() { Register("", func(context.Context, Config) (Source, error) { return nil, nil }) })
	assert.Panics(t, func() { Register("test-nil", nil) })

	Register("test-dup", func(context.Context, Config) (Source, error) { return nil, nil })
	assert.Panics(t, func() {
		Register("test-dup", func(context.Context, Config) (Source, error) { return nil, nil })
	})
}

func TestStreamWaitDefaultsToNil(t *testing.T) {
	ch := make(chan records.Raw)
	close(ch)

	s := NewStream(ch, nil)
	assert.NoError(t, s.Wait())
}

func TestIsIdent(t *testing.T) {
	for _, ok := range []string{"doc", "series_doc", "T1", "_hidden"} {
		assert.True(t, IsIdent(ok), ok)
	}
	for _, bad := range []string{"", "1doc", "doc-name", "doc name", `doc"; drop table x; --`, "sèries"} {
		assert.False(t, IsIdent(bad), bad)
	}
}
