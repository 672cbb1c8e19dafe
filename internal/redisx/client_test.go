package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaim(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	defer rdb.Close()
	ctx := context.Background()

	won, err := Claim(ctx, rdb, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, won)

	won, err = Claim(ctx, rdb, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, won)

	assert.True(t, mr.Exists("k"))
	assert.Equal(t, time.Minute, mr.TTL("k"))
}
