package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amsplayer/pkg/config"
	"amsplayer/pkg/logger"
)

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "***@db:5432/ams", redactDSN("postgres://user:p@ss@db:5432/ams"))
	assert.Equal(t, "postgres://db/ams", redactDSN("postgres://db/ams"))
}

func TestOptionalStoresReturnNil(t *testing.T) {
	assert.Nil(t, MustConnect(config.Config{}, logger.Nop()))
	assert.Nil(t, MustRedis(config.Config{}, logger.Nop()))
}

func TestMustRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cli := MustRedis(config.Config{RedisURL: "redis://" + mr.Addr() + "/0"}, logger.Nop())
	require.NotNil(t, cli)
	defer cli.Close()
	assert.NoError(t, cli.Set(context.Background(), "k", "v", 0).Err())
}
