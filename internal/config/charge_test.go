package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeConfigPartialFileInheritsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "charge.yml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("charge:\n  currency: eur\n"), 0o644))
	t.Chdir(dir)

	holder, err := NewChargeConfigHolder()
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "eur", cfg.Currency)
	assert.Equal(t, DefaultChargeConfig().BatchWorkers, cfg.BatchWorkers, "omitted key falls back to the default")
}

func TestChargeConfigMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	holder, err := NewChargeConfigHolder()
	require.NoError(t, err)
	assert.Equal(t, DefaultChargeConfig(), holder.Get())
}

func TestChargeConfigValidation(t *testing.T) {
	assert.Error(t, validateChargeConfig(ChargeConfig{Currency: "", BatchWorkers: 4}))
	assert.Error(t, validateChargeConfig(ChargeConfig{Currency: "usd", BatchWorkers: 0}))
	assert.NoError(t, validateChargeConfig(ChargeConfig{Currency: "usd", BatchWorkers: 1}))
}
