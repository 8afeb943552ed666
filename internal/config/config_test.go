package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := `{
		"logLevel": "debug",
		"sim": { "dt": 0.05, "generationLimit": 10 },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trafficsim.cfg.json"), []byte(cfg), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, 0.05, viper.GetFloat64("sim.dt"))
	assert.Equal(t, 10, viper.GetInt("sim.generationLimit"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trafficsim.cfg.json"), []byte(`{}`), 0644))

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./simlogs", viper.GetString("logsDir"))
	assert.Equal(t, 1.0/60.0, viper.GetFloat64("sim.dt"))
	assert.Equal(t, 2.0, viper.GetFloat64("sim.collisionRadius"))
	assert.Equal(t, 200, viper.GetInt("sim.actionTicks"))
	assert.Equal(t, 50, viper.GetInt("sim.generationLimit"))
	assert.Equal(t, 50.0, viper.GetFloat64("signal.slowDistance"))
	assert.Equal(t, 0.4, viper.GetFloat64("signal.slowFactor"))
	assert.Equal(t, 15.0, viper.GetFloat64("signal.stopDistance"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, "./episodes", viper.GetString("storage.memory.outputDir"))
	assert.Equal(t, true, viper.GetBool("storage.memory.compressOutput"))
	assert.Equal(t, "localhost", viper.GetString("db.host"))
	assert.Equal(t, "5432", viper.GetString("db.port"))
	assert.Equal(t, "postgres", viper.GetString("db.username"))
	assert.Equal(t, "trafficsim", viper.GetString("db.database"))
	assert.Equal(t, false, viper.GetBool("influx.enabled"))
	assert.Equal(t, "sim_metrics", viper.GetString("influx.bucket"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "localhost:12201", viper.GetString("graylog.address"))
	assert.Equal(t, false, viper.GetBool("otel.enabled"))
	assert.Equal(t, "trafficsim", viper.GetString("otel.serviceName"))
	assert.Equal(t, "5s", viper.GetString("otel.batchTimeout"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
	// Defaults remain usable even when loading fails.
	assert.Equal(t, "info", viper.GetString("logLevel"))
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetFloat64(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testFloat", 2.5)
	assert.Equal(t, 2.5, GetFloat64("testFloat"))
}

func TestGetStorage_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()

	cfg := GetStorage()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./episodes", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
}

func TestGetStorage_Overridden(t *testing.T) {
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("storage.type", "sqlite")
	viper.Set("storage.memory.outputDir", "/data/out")

	cfg := GetStorage()
	assert.Equal(t, "sqlite", cfg.Type)
	assert.Equal(t, "/data/out", cfg.Memory.OutputDir)
}
