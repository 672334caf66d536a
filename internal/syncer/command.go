package syncer

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/dependencies"
)

const (
	commandUseConstant              = "sync"
	commandShortDescriptionConstant = "Fetch new centralized revisions and reconcile fetch configuration"
	commandLongDescriptionConstant  = "sync reads the configuration branch, adds any fetch mappings missing from the repository's local git-svn configuration, and imports new centralized revisions."
	commandExampleConstant          = "ggit sync"
	revisionFlagNameConstant        = "revision"
	revisionFlagDescriptionConstant = "revision range to import, for example 0:HEAD"
	invocationDirectoryConstant     = "."
	syncSuccessTemplateConstant     = "SYNCED: %d configuration change(s), remotes %v\n"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the sync command.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	Executor       bridge.Executor
}

// Build constructs the sync command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUseConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Example: commandExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.run,
	}
	command.Flags().String(revisionFlagNameConstant, "", revisionFlagDescriptionConstant)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	revisionRange, _ := command.Flags().GetString(revisionFlagNameConstant)

	logger := resolveLogger(builder.LoggerProvider)
	executor, executorError := dependencies.ResolveExecutor(builder.Executor, logger)
	if executorError != nil {
		return executorError
	}

	workspace, workspaceError := dependencies.ResolveWorkspace(command.Context(), executor, invocationDirectoryConstant)
	if workspaceError != nil {
		return workspaceError
	}

	engine, engineError := NewEngine(EngineDependencies{Logger: logger, Repository: workspace.Repository})
	if engineError != nil {
		return engineError
	}

	result, syncError := engine.Sync(command.Context(), revisionRange)
	if syncError != nil {
		return syncError
	}

	fmt.Fprintf(command.OutOrStdout(), syncSuccessTemplateConstant, result.ConfigurationMutations, result.Remotes)
	return nil
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
