package cli

import "github.com/spf13/cobra"

// RootCommandForTesting exposes the assembled root command to external tests.
func RootCommandForTesting(application *Application) *cobra.Command {
	return application.rootCommand
}
