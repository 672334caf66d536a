package ignore

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/dependencies"
	"github.com/ggitproject/ggit/internal/svnwc"
)

const (
	commandUseConstant              = "generate-ignore"
	commandShortDescriptionConstant = "Print gitignore patterns derived from svn properties"
	commandLongDescriptionConstant  = "generate-ignore merges the centralized repository's ignore properties with its externals and prints the combined pattern list to standard output."
	commandExampleConstant          = "ggit generate-ignore > .gitignore"
	invocationDirectoryConstant     = "."
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the generate-ignore command.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	Executor       bridge.Executor
}

// Build constructs the generate-ignore command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUseConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Example: commandExampleConstant,
		Args:    cobra.NoArgs,
		RunE:    builder.run,
	}
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, _ []string) error {
	logger := resolveLogger(builder.LoggerProvider)
	executor, executorError := dependencies.ResolveExecutor(builder.Executor, logger)
	if executorError != nil {
		return executorError
	}

	workspace, workspaceError := dependencies.ResolveWorkspace(command.Context(), executor, invocationDirectoryConstant)
	if workspaceError != nil {
		return workspaceError
	}

	workingCopy, clientError := svnwc.NewClient(executor, workspace.WorktreePath)
	if clientError != nil {
		return clientError
	}

	generator, generatorError := NewGenerator(GeneratorDependencies{Repository: workspace.Repository, WorkingCopy: workingCopy})
	if generatorError != nil {
		return generatorError
	}

	patterns, generateError := generator.Generate(command.Context())
	if generateError != nil {
		return generateError
	}

	for _, pattern := range patterns {
		fmt.Fprintln(command.OutOrStdout(), pattern)
	}
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
