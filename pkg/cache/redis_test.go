package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/pkg/config"
)

func TestNewRedisDisabled(t *testing.T) {
	client, err := NewRedis(config.RedisConfig{Enabled: false, Host: "localhost", Port: 6379})
	require.NoError(t, err)
	assert.Nil(t, client)
}
