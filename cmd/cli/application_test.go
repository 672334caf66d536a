package cli_test

import (
	"strings"
	"testing"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/ggitproject/ggit/cmd/cli"
)

const (
	testConfigurationYAMLConstant = "common:\n" +
		"  log_level: debug\n" +
		"  log_format: console\n" +
		"tools:\n" +
		"  switch:\n" +
		"    search_limit: 250\n" +
		"    strict: true\n"
	testConfigurationTypeConstant = "yaml"
)

var expectedCommandNames = []string{
	"init",
	"clone",
	"switch",
	"sync",
	"push",
	"generate-ignore",
}

func TestNewApplicationRegistersCommands(testInstance *testing.T) {
	application := cli.NewApplication()
	require.NotNil(testInstance, application)

	rootCommand := cli.RootCommandForTesting(application)
	require.NotNil(testInstance, rootCommand)

	registeredNames := map[string]bool{}
	for _, subCommand := range rootCommand.Commands() {
		registeredNames[subCommand.Name()] = true
	}
	for _, expectedName := range expectedCommandNames {
		require.True(testInstance, registeredNames[expectedName], expectedName)
	}
}

func TestApplicationConfigurationDecodesToolSections(testInstance *testing.T) {
	viperInstance := viper.New()
	viperInstance.SetConfigType(testConfigurationTypeConstant)
	require.NoError(testInstance, viperInstance.ReadConfig(strings.NewReader(testConfigurationYAMLConstant)))

	var configuration cli.ApplicationConfiguration
	decoder, decoderError := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "mapstructure", Result: &configuration})
	require.NoError(testInstance, decoderError)
	require.NoError(testInstance, decoder.Decode(viperInstance.AllSettings()))

	require.Equal(testInstance, "debug", configuration.Common.LogLevel)
	require.Equal(testInstance, "console", configuration.Common.LogFormat)
	require.Equal(testInstance, 250, configuration.Tools.Switch.SearchLimit)
	require.True(testInstance, configuration.Tools.Switch.Strict)
	require.False(testInstance, configuration.Tools.Switch.Force)
}
