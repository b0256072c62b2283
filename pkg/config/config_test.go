package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_FillsDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Normalize()

	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, time.Minute, cfg.HTTPTimeout)
}

func TestNormalize_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		HTTPTimeout: 10 * time.Second,
	}
	cfg.Normalize()

	assert.Equal(t, 2, cfg.MaxAttempts)
	assert.Equal(t, time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
}
