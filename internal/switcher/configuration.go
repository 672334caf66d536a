package switcher

const (
	defaultSearchLimitConstant          = 1000
	configurationSearchLimitKeyConstant = "search_limit"
	configurationForceKeyConstant       = "force"
	configurationStrictKeyConstant      = "strict"
	configurationKeySeparatorConstant   = "."
)

// CommandConfiguration captures the configurable behavior of the switch command.
type CommandConfiguration struct {
	SearchLimit int  `mapstructure:"search_limit"`
	Force       bool `mapstructure:"force"`
	Strict      bool `mapstructure:"strict"`
}

// DefaultCommandConfiguration returns the baseline switch configuration.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{SearchLimit: defaultSearchLimitConstant}
}

// DefaultConfigurationValues exposes the switch defaults keyed beneath rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		rootKey + configurationKeySeparatorConstant + configurationSearchLimitKeyConstant: defaults.SearchLimit,
		rootKey + configurationKeySeparatorConstant + configurationForceKeyConstant:       defaults.Force,
		rootKey + configurationKeySeparatorConstant + configurationStrictKeyConstant:      defaults.Strict,
	}
}

// Sanitize normalizes configured values, restoring defaults for invalid entries.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	if sanitized.SearchLimit <= 0 {
		sanitized.SearchLimit = defaultSearchLimitConstant
	}
	return sanitized
}
