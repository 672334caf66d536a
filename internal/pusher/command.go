package pusher

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/dependencies"
)

const (
	commandUseConstant              = "push [remote]"
	commandShortDescriptionConstant = "Publish the configuration branch and mirrored branches"
	commandLongDescriptionConstant  = "push sends the configuration branch and every mirrored centralized branch to the shared git remote so other clones can bootstrap from it."
	commandExampleConstant          = "ggit push --force origin"
	forceFlagNameConstant           = "force"
	forceFlagDescriptionConstant    = "overwrite remote refs that have diverged"
	invocationDirectoryConstant     = "."
	pushSuccessTemplateConstant     = "PUSHED: %s\n"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the push command.
type CommandBuilder struct {
	LoggerProvider LoggerProvider
	Executor       bridge.Executor
}

// Build constructs the push command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     commandUseConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Example: commandExampleConstant,
		Args:    cobra.MaximumNArgs(1),
		RunE:    builder.run,
	}
	command.Flags().Bool(forceFlagNameConstant, false, forceFlagDescriptionConstant)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	forcePush, _ := command.Flags().GetBool(forceFlagNameConstant)
	remoteName := bridge.OriginRemoteNameConstant
	if len(arguments) > 0 {
		remoteName = arguments[0]
	}

	logger := resolveLogger(builder.LoggerProvider)
	executor, executorError := dependencies.ResolveExecutor(builder.Executor, logger)
	if executorError != nil {
		return executorError
	}

	workspace, workspaceError := dependencies.ResolveWorkspace(command.Context(), executor, invocationDirectoryConstant)
	if workspaceError != nil {
		return workspaceError
	}

	service, serviceError := NewService(ServiceDependencies{Logger: logger, Repository: workspace.Repository})
	if serviceError != nil {
		return serviceError
	}

	if pushError := service.Push(command.Context(), Options{RemoteName: remoteName, Force: forcePush}); pushError != nil {
		return pushError
	}

	fmt.Fprintf(command.OutOrStdout(), pushSuccessTemplateConstant, remoteName)
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
