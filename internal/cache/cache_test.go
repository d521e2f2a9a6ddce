package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(ctx, 0)

	require.NoError(t, m.Set(ctx, "k", payload{Name: "go", Score: 6.5}, time.Minute))

	var got payload
	require.NoError(t, m.Get(ctx, "k", &got))
	assert.Equal(t, payload{Name: "go", Score: 6.5}, got)

	require.NoError(t, m.Delete(ctx, "k"))
	assert.ErrorIs(t, m.Get(ctx, "k", &got), ErrMiss)
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(ctx, 0)
	now := time.Now()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", 1, time.Second))
	now = now.Add(2 * time.Second)

	var v int
	assert.ErrorIs(t, m.Get(ctx, "k", &v), ErrMiss)
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(ctx, 0)
	calls := 0
	load := func() ([]string, error) {
		calls++
		return []string{"x"}, nil
	}

	v, err := GetOrLoad(ctx, m, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, v)

	v, err = GetOrLoad(ctx, m, "k", time.Minute, load)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, v)
	assert.Equal(t, 1, calls)

	_, err = GetOrLoad(ctx, m, "other", time.Minute, func() (int, error) { return 0, errors.New("boom") })
	assert.Error(t, err)
}
