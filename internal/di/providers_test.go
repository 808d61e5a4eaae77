package di

import (
	"testing"

	internalrepo "BoltX/internal/repository"
	"BoltX/internal/services/identity"
	"BoltX/pkg/config"
	applogger "BoltX/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideKafkaProducer_NoBrokers(t *testing.T) {
	p, err := ProvideKafkaProducer(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, p)

	pub := ProvidePredictionPublisher(p, &config.Config{})
	assert.IsType(t, internalrepo.NopPublisher{}, pub)
}

func TestProvideKafkaConsumer_Disabled(t *testing.T) {
	c, err := ProvideKafkaConsumer(&config.Config{}, applogger.Nop())
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestProvideIdentityResolver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Auth.Mode = "header"
	assert.IsType(t, &identity.HeaderResolver{}, ProvideIdentityResolver(cfg))

	cfg.Auth.Mode = "http"
	cfg.Auth.IdentityURL = "http://identity.local/v1/me"
	assert.IsType(t, &identity.HTTPResolver{}, ProvideIdentityResolver(cfg))
}

func TestProvideCache_MemoryWhenRedisDisabled(t *testing.T) {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Redis.Enabled = false

	c, err := ProvideCache(cfg, applogger.Nop())
	require.NoError(t, err)
	defer c.Close()
	assert.NotNil(t, c)
}
