package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ggitproject/ggit/internal/utils"
)

type loaderTestConfiguration struct {
	Common struct {
		LogLevel  string `mapstructure:"log_level"`
		LogFormat string `mapstructure:"log_format"`
	} `mapstructure:"common"`
	Tools struct {
		Switch struct {
			SearchLimit int `mapstructure:"search_limit"`
		} `mapstructure:"switch"`
	} `mapstructure:"tools"`
}

func TestLoadConfigurationAppliesDefaultsWithoutFile(testInstance *testing.T) {
	loader := utils.NewConfigurationLoader("config", "yaml", "GGIT", []string{testInstance.TempDir()})

	var configuration loaderTestConfiguration
	defaults := map[string]any{
		"common.log_level":          "info",
		"common.log_format":         "structured",
		"tools.switch.search_limit": 1000,
	}
	loaded, loadError := loader.LoadConfiguration("", defaults, &configuration)
	require.NoError(testInstance, loadError)
	require.Empty(testInstance, loaded.ConfigFileUsed)
	require.Equal(testInstance, "info", configuration.Common.LogLevel)
	require.Equal(testInstance, 1000, configuration.Tools.Switch.SearchLimit)
}

func TestLoadConfigurationReadsFileAndOverridesDefaults(testInstance *testing.T) {
	configurationDirectory := testInstance.TempDir()
	configurationPath := filepath.Join(configurationDirectory, "config.yaml")
	configurationYAML := "common:\n" +
		"  log_level: debug\n" +
		"tools:\n" +
		"  switch:\n" +
		"    search_limit: 50\n"
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte(configurationYAML), 0o644))

	loader := utils.NewConfigurationLoader("config", "yaml", "GGIT", []string{configurationDirectory})

	var configuration loaderTestConfiguration
	defaults := map[string]any{
		"common.log_level":  "info",
		"common.log_format": "structured",
	}
	loaded, loadError := loader.LoadConfiguration("", defaults, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, configurationPath, loaded.ConfigFileUsed)
	require.Equal(testInstance, "debug", configuration.Common.LogLevel)
	require.Equal(testInstance, "structured", configuration.Common.LogFormat)
	require.Equal(testInstance, 50, configuration.Tools.Switch.SearchLimit)
}

func TestLoadConfigurationHonorsEnvironmentOverrides(testInstance *testing.T) {
	testInstance.Setenv("GGIT_COMMON_LOG_LEVEL", "warn")

	loader := utils.NewConfigurationLoader("config", "yaml", "GGIT", []string{testInstance.TempDir()})

	var configuration loaderTestConfiguration
	defaults := map[string]any{"common.log_level": "info"}
	_, loadError := loader.LoadConfiguration("", defaults, &configuration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, "warn", configuration.Common.LogLevel)
}

func TestLoadConfigurationRejectsMalformedFile(testInstance *testing.T) {
	configurationPath := filepath.Join(testInstance.TempDir(), "config.yaml")
	require.NoError(testInstance, os.WriteFile(configurationPath, []byte("common: [\n"), 0o644))

	loader := utils.NewConfigurationLoader("config", "yaml", "GGIT", nil)

	var configuration loaderTestConfiguration
	_, loadError := loader.LoadConfiguration(configurationPath, nil, &configuration)
	require.Error(testInstance, loadError)
}
