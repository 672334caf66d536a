package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/bridgeconf"
	"github.com/ggitproject/ggit/internal/dependencies"
	"github.com/ggitproject/ggit/internal/gitrepo"
	"github.com/ggitproject/ggit/internal/marker"
	"github.com/ggitproject/ggit/internal/svnwc"
	"github.com/ggitproject/ggit/internal/switcher"
	"github.com/ggitproject/ggit/internal/syncer"
	"github.com/ggitproject/ggit/internal/workingcopy"
)

const (
	initCommandUseConstant               = "init <url> <path:branch>..."
	initCommandShortDescriptionConstant  = "Initialize a bridge repository from a centralized repository"
	initCommandLongDescriptionConstant   = "init records the centralized repository url and its path-to-branch mappings on the configuration branch, configures git-svn, and imports the centralized history."
	initCommandExampleConstant           = "ggit init file:///srv/svn trunk/rtos:trunk branches/ap/trunk/rtos:aptrunk"
	cloneCommandUseConstant              = "clone <repository> [directory]"
	cloneCommandShortDescriptionConstant = "Clone an existing bridge repository"
	cloneCommandLongDescriptionConstant  = "clone copies a bridge repository from its shared git remote, replicates the mirrored centralized branches, and attaches a working copy."
	cloneCommandExampleConstant          = "ggit clone git@host:rtos.git"
	revisionFlagNameConstant             = "revision"
	revisionFlagDescriptionConstant      = "first centralized revision to import"
	mappingsFileFlagNameConstant         = "mappings-file"
	mappingsFileFlagDescriptionConstant  = "YAML file declaring the url and path-to-branch mappings"
	configBranchFlagNameConstant         = "config-branch"
	configBranchFlagDescriptionConstant  = "branch carrying the bridge configuration"
	invocationDirectoryConstant          = "."
	gitDirectorySuffixConstant           = ".git"
	initArgumentsMessageConstant         = "provide a url and at least one path:branch mapping, or --mappings-file"
	cloneArgumentsMessageConstant        = "repository location is required as the first argument"
	destinationExistsTemplateConstant    = "destination %s already exists"
	initSuccessTemplateConstant          = "INITIALIZED: %s\n"
	cloneSuccessTemplateConstant         = "CLONED: %s -> %s (%d mirrored branch(es))\n"
	guidanceTemplateConstant             = "%s\n"
)

// LoggerProvider yields a zap logger instance.
type LoggerProvider func() *zap.Logger

// InitCommandBuilder assembles the init command.
type InitCommandBuilder struct {
	LoggerProvider LoggerProvider
	Executor       bridge.Executor
}

// Build constructs the init command.
func (builder *InitCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     initCommandUseConstant,
		Short:   initCommandShortDescriptionConstant,
		Long:    initCommandLongDescriptionConstant,
		Example: initCommandExampleConstant,
		Args:    cobra.ArbitraryArgs,
		RunE:    builder.run,
	}
	command.Flags().String(revisionFlagNameConstant, defaultInitialRevisionConstant, revisionFlagDescriptionConstant)
	command.Flags().String(mappingsFileFlagNameConstant, "", mappingsFileFlagDescriptionConstant)
	command.Flags().String(configBranchFlagNameConstant, bridge.ConfigurationBranchNameConstant, configBranchFlagDescriptionConstant)
	return command, nil
}

func (builder *InitCommandBuilder) run(command *cobra.Command, arguments []string) error {
	initialRevision, _ := command.Flags().GetString(revisionFlagNameConstant)
	mappingsFilePath, _ := command.Flags().GetString(mappingsFileFlagNameConstant)
	configBranch, _ := command.Flags().GetString(configBranchFlagNameConstant)

	logger := resolveLogger(builder.LoggerProvider)
	executor, executorError := dependencies.ResolveExecutor(builder.Executor, logger)
	if executorError != nil {
		return executorError
	}

	repositoryURL, mappings, argumentError := resolveInitInputs(arguments, mappingsFilePath)
	if argumentError != nil {
		_ = command.Help()
		return argumentError
	}

	workspace, workspaceError := dependencies.ResolveWorkspace(command.Context(), executor, invocationDirectoryConstant)
	if workspaceError != nil {
		probeManager, probeError := gitrepo.NewRepositoryManager(executor, invocationDirectoryConstant)
		if probeError != nil {
			return probeError
		}
		if initError := probeManager.InitRepository(command.Context()); initError != nil {
			return initError
		}
		workspace, workspaceError = dependencies.ResolveWorkspace(command.Context(), executor, invocationDirectoryConstant)
		if workspaceError != nil {
			return workspaceError
		}
	}

	service, serviceError := assembleService(logger, executor, workspace, configBranch)
	if serviceError != nil {
		return serviceError
	}

	result, initError := service.Init(command.Context(), InitOptions{
		URL:             repositoryURL,
		Mappings:        mappings,
		InitialRevision: initialRevision,
	})
	if initError != nil {
		return initError
	}

	if len(result.Guidance) > 0 {
		fmt.Fprintf(command.OutOrStdout(), guidanceTemplateConstant, result.Guidance)
	}
	fmt.Fprintf(command.OutOrStdout(), initSuccessTemplateConstant, repositoryURL)
	return nil
}

// CloneCommandBuilder assembles the clone command.
type CloneCommandBuilder struct {
	LoggerProvider LoggerProvider
	Executor       bridge.Executor
	FileSystem     bridge.FileSystem
}

// Build constructs the clone command.
func (builder *CloneCommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:     cloneCommandUseConstant,
		Short:   cloneCommandShortDescriptionConstant,
		Long:    cloneCommandLongDescriptionConstant,
		Example: cloneCommandExampleConstant,
		Args:    cobra.RangeArgs(1, 2),
		RunE:    builder.run,
	}
	command.Flags().String(configBranchFlagNameConstant, bridge.ConfigurationBranchNameConstant, configBranchFlagDescriptionConstant)
	return command, nil
}

func (builder *CloneCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) == 0 || len(strings.TrimSpace(arguments[0])) == 0 {
		_ = command.Help()
		return errors.New(cloneArgumentsMessageConstant)
	}
	configBranch, _ := command.Flags().GetString(configBranchFlagNameConstant)
	repositoryLocation := strings.TrimSpace(arguments[0])
	destination := deriveDestination(repositoryLocation)
	if len(arguments) > 1 && len(strings.TrimSpace(arguments[1])) > 0 {
		destination = strings.TrimSpace(arguments[1])
	}

	logger := resolveLogger(builder.LoggerProvider)
	executor, executorError := dependencies.ResolveExecutor(builder.Executor, logger)
	if executorError != nil {
		return executorError
	}
	fileSystem := builder.FileSystem
	if fileSystem == nil {
		fileSystem = bridge.OSFileSystem{}
	}

	probeManager, probeError := gitrepo.NewRepositoryManager(executor, invocationDirectoryConstant)
	if probeError != nil {
		return probeError
	}
	if bridgeError := EnsureBridgeRemote(command.Context(), probeManager, repositoryLocation, configBranch); bridgeError != nil {
		return bridgeError
	}

	if _, statError := fileSystem.Stat(destination); statError == nil {
		return fmt.Errorf(destinationExistsTemplateConstant, destination)
	} else if !errors.Is(statError, fs.ErrNotExist) {
		return statError
	}

	if cloneError := probeManager.Clone(command.Context(), repositoryLocation, destination); cloneError != nil {
		return cloneError
	}

	workspace, workspaceError := dependencies.ResolveWorkspace(command.Context(), executor, destination)
	if workspaceError != nil {
		return workspaceError
	}

	service, serviceError := assembleService(logger, executor, workspace, configBranch)
	if serviceError != nil {
		return serviceError
	}

	replicated, replicateError := service.ReplicateMirrors(command.Context())
	if replicateError != nil {
		return replicateError
	}

	result := InitResult{}
	if configureError := service.Configure(command.Context(), "", &result); configureError != nil {
		return configureError
	}

	if len(result.Guidance) > 0 {
		fmt.Fprintf(command.OutOrStdout(), guidanceTemplateConstant, result.Guidance)
	}
	fmt.Fprintf(command.OutOrStdout(), cloneSuccessTemplateConstant, repositoryLocation, destination, replicated)
	return nil
}

func resolveInitInputs(arguments []string, mappingsFilePath string) (string, []bridgeconf.FetchMapping, error) {
	if len(strings.TrimSpace(mappingsFilePath)) > 0 {
		fileURL, fileMappings, loadError := LoadMappingsFile(bridge.OSFileSystem{}, mappingsFilePath)
		if loadError != nil {
			return "", nil, loadError
		}
		repositoryURL := fileURL
		if len(arguments) > 0 {
			repositoryURL = strings.TrimSpace(arguments[0])
		}
		if len(repositoryURL) == 0 {
			return "", nil, errors.New(initArgumentsMessageConstant)
		}
		return repositoryURL, fileMappings, nil
	}

	if len(arguments) < 2 {
		return "", nil, errors.New(initArgumentsMessageConstant)
	}
	mappings, parseError := ParseMappingArguments(arguments[1:])
	if parseError != nil {
		return "", nil, parseError
	}
	return strings.TrimSpace(arguments[0]), mappings, nil
}

func deriveDestination(repositoryLocation string) string {
	trimmedLocation := strings.TrimSuffix(repositoryLocation, "/")
	baseName := path.Base(trimmedLocation)
	return strings.TrimSuffix(baseName, gitDirectorySuffixConstant)
}

func assembleService(logger *zap.Logger, executor bridge.Executor, workspace dependencies.Workspace, configBranch string) (*Service, error) {
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
	syncEngine, engineError := syncer.NewEngine(syncer.EngineDependencies{Logger: logger, Repository: workspace.Repository, ConfigBranch: configBranch})
	if engineError != nil {
		return nil, engineError
	}
	branchSwitcher, switcherError := switcher.NewService(switcher.ServiceDependencies{
		Logger:       logger,
		Repository:   workspace.Repository,
		MarkerFinder: markerScanner,
		Linker:       metadataLinker,
		ConfigBranch: configBranch,
	})
	if switcherError != nil {
		return nil, switcherError
	}
	return NewService(ServiceDependencies{
		Logger:       logger,
		FileSystem:   bridge.OSFileSystem{},
		Repository:   workspace.Repository,
		SyncEngine:   syncEngine,
		Switcher:     branchSwitcher,
		MarkerFinder: markerScanner,
		WorktreePath: workspace.WorktreePath,
		GitDirPath:   workspace.GitDirPath,
		ConfigBranch: configBranch,
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
