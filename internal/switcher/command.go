package switcher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/dependencies"
	"github.com/ggitproject/ggit/internal/marker"
	"github.com/ggitproject/ggit/internal/svnwc"
	"github.com/ggitproject/ggit/internal/workingcopy"
)

const (
	commandUseConstant                 = "switch <branch>"
	commandShortDescriptionConstant    = "Switch the worktree and its svn metadata to a branch"
	commandLongDescriptionConstant     = "switch checks out the requested git branch, atomically re-points the live svn metadata at the branch's storage slot, and updates the svn working copy to the revision recorded in the branch's history."
	commandExampleConstant             = "ggit switch aptrunk"
	forceFlagNameConstant              = "force"
	forceFlagDescriptionConstant       = "switch even when the working tree has uncommitted changes"
	limitFlagNameConstant              = "limit"
	limitFlagDescriptionConstant       = "maximum number of commits inspected while resolving the branch marker"
	strictFlagNameConstant             = "strict"
	strictFlagDescriptionConstant      = "treat stray nested metadata directories as a failure"
	missingBranchMessageConstant       = "branch name is required as the first argument"
	invocationDirectoryConstant        = "."
	switchSuccessTemplateConstant      = "SWITCHED: %s -> r%d (%s)\n"
	strayWarningTemplateConstant       = "WARNING: stray metadata at %s\n"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the switch command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	Executor              bridge.Executor
	ConfigurationProvider func() CommandConfiguration
}

// Build constructs the switch command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	configuration := builder.resolveConfiguration()

	command := &cobra.Command{
		Use:     commandUseConstant,
		Short:   commandShortDescriptionConstant,
		Long:    commandLongDescriptionConstant,
		Example: commandExampleConstant,
		Args:    cobra.MaximumNArgs(1),
		RunE:    builder.run,
	}
	command.Flags().Bool(forceFlagNameConstant, configuration.Force, forceFlagDescriptionConstant)
	command.Flags().Int(limitFlagNameConstant, configuration.SearchLimit, limitFlagDescriptionConstant)
	command.Flags().Bool(strictFlagNameConstant, configuration.Strict, strictFlagDescriptionConstant)
	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 || len(strings.TrimSpace(arguments[0])) == 0 {
		_ = command.Help()
		return errors.New(missingBranchMessageConstant)
	}
	branchRef := strings.TrimSpace(arguments[0])

	forceSwitch, _ := command.Flags().GetBool(forceFlagNameConstant)
	searchLimit, _ := command.Flags().GetInt(limitFlagNameConstant)
	strictMode, _ := command.Flags().GetBool(strictFlagNameConstant)

	logger := resolveLogger(builder.LoggerProvider)
	executor, executorError := dependencies.ResolveExecutor(builder.Executor, logger)
	if executorError != nil {
		return executorError
	}

	workspace, workspaceError := dependencies.ResolveWorkspace(command.Context(), executor, invocationDirectoryConstant)
	if workspaceError != nil {
		return workspaceError
	}

	service, serviceError := buildService(logger, executor, workspace)
	if serviceError != nil {
		return serviceError
	}

	result, switchError := service.Switch(command.Context(), Options{
		BranchRef:   branchRef,
		Force:       forceSwitch,
		SearchLimit: searchLimit,
		Strict:      strictMode,
	})
	if switchError != nil {
		return switchError
	}

	for _, strayPath := range result.StrayMetadataPaths {
		fmt.Fprintf(command.ErrOrStderr(), strayWarningTemplateConstant, strayPath)
	}
	fmt.Fprintf(command.OutOrStdout(), switchSuccessTemplateConstant, result.BranchRef, result.Marker.Revision, result.Marker.URL)
	return nil
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func buildService(logger *zap.Logger, executor bridge.Executor, workspace dependencies.Workspace) (*Service, error) {
	markerScanner, scannerError := marker.NewScanner(executor, workspace.WorktreePath)
	if scannerError != nil {
		return nil, scannerError
	}
	svnClient, clientError := svnwc.NewClient(executor, workspace.WorktreePath)
	if clientError != nil {
		return nil, clientError
	}
	metadataLinker, linkerError := workingcopy.NewLinker(bridge.OSFileSystem{}, svnClient, workspace.WorktreePath, workspace.GitDirPath)
	if linkerError != nil {
		return nil, linkerError
	}
	return NewService(ServiceDependencies{
		Logger:       logger,
		Repository:   workspace.Repository,
		MarkerFinder: markerScanner,
		Linker:       metadataLinker,
	})
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
