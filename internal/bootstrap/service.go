package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/bridgeconf"
	"github.com/ggitproject/ggit/internal/marker"
	"github.com/ggitproject/ggit/internal/switcher"
	"github.com/ggitproject/ggit/internal/syncer"
)

const (
	gitRepositoryMissingMessageConstant  = "git repository not configured"
	fileSystemMissingMessageConstant     = "file system not configured"
	syncEngineMissingMessageConstant     = "sync engine not configured"
	branchSwitcherMissingMessageConstant = "branch switcher not configured"
	markerFinderMissingMessageConstant   = "marker finder not configured"
	urlRequiredMessageConstant           = "centralized repository url must be provided"
	mappingsRequiredMessageConstant      = "at least one path:branch mapping must be provided"
	stagingDirtyMessageConstant          = "index has staged changes; commit or reset them first"
	defaultRemoteNameConstant            = "svn"
	configCommitMessageConstant          = "ggit-autocommit: Create config file"
	infoDirectoryNameConstant            = "info"
	excludeFileNameConstant              = "exclude"
	liveMetadataExcludeLineConstant      = ".svn"
	excludePermissionsConstant           = fs.FileMode(0o644)
	directoryPermissionsConstant         = fs.FileMode(0o755)
	initialRevisionRangeTemplateConstant = "%s:HEAD"
	defaultInitialRevisionConstant       = "0"
	initialSearchLimitConstant           = 1
	excludeWriteFailureTemplateConstant  = "failed to record metadata exclusion: %w"
	configWriteFailureTemplateConstant   = "failed to write configuration file: %w"
	initCompletedLogMessageConstant      = "bridge repository initialized"
	remoteLogFieldConstant               = "remote"
	urlLogFieldConstant                  = "url"
	mappingsLogFieldConstant             = "mappings"
	branchLogFieldConstant               = "branch"
	missingMirrorLogMessageConstant      = "mirrored branch missing from remote"
	localBranchPrefixConstant            = "refs/heads/"
	mirrorFetchRefspecTemplateConstant   = "refs/heads/%s:%s%s"
	missingConfigBranchTemplateConstant  = "remote %s does not advertise configuration branch %s"
)

// GuidanceDetachedHead is printed when the checked-out history carries no
// marker and the initial switch is skipped.
const GuidanceDetachedHead = "The current HEAD does not carry centralized history.\n" +
	"Check out a mirrored branch and run 'ggit switch <branch>' to attach the working copy."

// ErrGitRepositoryNotConfigured indicates the git repository dependency was missing.
var ErrGitRepositoryNotConfigured = errors.New(gitRepositoryMissingMessageConstant)

// ErrFileSystemNotConfigured indicates the file system dependency was missing.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// ErrSyncEngineNotConfigured indicates the sync engine dependency was missing.
var ErrSyncEngineNotConfigured = errors.New(syncEngineMissingMessageConstant)

// ErrBranchSwitcherNotConfigured indicates the branch switcher dependency was missing.
var ErrBranchSwitcherNotConfigured = errors.New(branchSwitcherMissingMessageConstant)

// ErrMarkerFinderNotConfigured indicates the marker finder dependency was missing.
var ErrMarkerFinderNotConfigured = errors.New(markerFinderMissingMessageConstant)

// ErrURLRequired indicates an empty centralized repository url was supplied.
var ErrURLRequired = errors.New(urlRequiredMessageConstant)

// ErrMappingsRequired indicates init was invoked without any mappings.
var ErrMappingsRequired = errors.New(mappingsRequiredMessageConstant)

// ErrStagingDirty indicates staged changes blocked the configuration commit.
var ErrStagingDirty = errors.New(stagingDirtyMessageConstant)

// GitRepository exposes the git operations the service needs.
type GitRepository interface {
	CurrentBranch(executionContext context.Context) (string, error)
	BranchExists(executionContext context.Context, branchName string) (bool, error)
	Checkout(executionContext context.Context, reference string, force bool) error
	CheckoutOrphan(executionContext context.Context, branchName string) error
	Reset(executionContext context.Context) error
	StagingIsDirty(executionContext context.Context) (bool, error)
	StageFile(executionContext context.Context, filePath string) error
	Commit(executionContext context.Context, message string) error
	ShowBlob(executionContext context.Context, branchName string, filePath string) (string, error)
	RefExistsOnRemote(executionContext context.Context, remoteLocation string, reference string) (bool, error)
	Fetch(executionContext context.Context, remoteName string, refspecs ...string) error
}

// SyncEngine reconciles fetch configuration and imports centralized revisions.
type SyncEngine interface {
	Sync(executionContext context.Context, revisionRange string) (syncer.Result, error)
}

// BranchSwitcher performs a full branch switch.
type BranchSwitcher interface {
	Switch(executionContext context.Context, options switcher.Options) (switcher.Result, error)
}

// MarkerFinder recovers centralized coordinates for a git reference.
type MarkerFinder interface {
	FindMarker(executionContext context.Context, reference string, searchLimit int) (marker.Marker, error)
}

// ServiceDependencies enumerates collaborators required by the service.
// ConfigBranch defaults to the standard configuration branch when empty.
type ServiceDependencies struct {
	Logger       *zap.Logger
	FileSystem   bridge.FileSystem
	Repository   GitRepository
	SyncEngine   SyncEngine
	Switcher     BranchSwitcher
	MarkerFinder MarkerFinder
	WorktreePath string
	GitDirPath   string
	ConfigBranch string
}

// InitOptions configure repository initialization.
type InitOptions struct {
	URL             string
	Mappings        []bridgeconf.FetchMapping
	InitialRevision string
}

// InitResult captures the outcome of an initialization.
type InitResult struct {
	ConfigurationCommitted bool
	InitialSwitch          *switcher.Result
	Guidance               string
}

// Service builds bridge repositories.
type Service struct {
	logger       *zap.Logger
	fileSystem   bridge.FileSystem
	repository   GitRepository
	syncEngine   SyncEngine
	switcher     BranchSwitcher
	markerFinder MarkerFinder
	worktreePath string
	gitDirPath   string
	configBranch string
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Repository == nil {
		return nil, ErrGitRepositoryNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if dependencies.SyncEngine == nil {
		return nil, ErrSyncEngineNotConfigured
	}
	if dependencies.Switcher == nil {
		return nil, ErrBranchSwitcherNotConfigured
	}
	if dependencies.MarkerFinder == nil {
		return nil, ErrMarkerFinderNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	configBranch := dependencies.ConfigBranch
	if len(configBranch) == 0 {
		configBranch = bridge.ConfigurationBranchNameConstant
	}
	return &Service{
		logger:       logger,
		fileSystem:   dependencies.FileSystem,
		repository:   dependencies.Repository,
		syncEngine:   dependencies.SyncEngine,
		switcher:     dependencies.Switcher,
		markerFinder: dependencies.MarkerFinder,
		worktreePath: dependencies.WorktreePath,
		gitDirPath:   dependencies.GitDirPath,
		configBranch: configBranch,
	}, nil
}

// Init writes the bridge configuration onto the configuration branch,
// configures git-svn, and imports the centralized history.
func (service *Service) Init(executionContext context.Context, options InitOptions) (InitResult, error) {
	trimmedURL := strings.TrimSpace(options.URL)
	if len(trimmedURL) == 0 {
		return InitResult{}, ErrURLRequired
	}
	if len(options.Mappings) == 0 {
		return InitResult{}, ErrMappingsRequired
	}

	stagingDirty, stagingError := service.repository.StagingIsDirty(executionContext)
	if stagingError != nil {
		return InitResult{}, stagingError
	}
	if stagingDirty {
		return InitResult{}, ErrStagingDirty
	}

	configuration := bridgeconf.Configuration{Remotes: []bridgeconf.Remote{{
		Name:          defaultRemoteNameConstant,
		URL:           trimmedURL,
		FetchMappings: options.Mappings,
	}}}

	committed, commitError := service.commitConfiguration(executionContext, configuration)
	if commitError != nil {
		return InitResult{}, commitError
	}

	result := InitResult{ConfigurationCommitted: committed}

	if configureError := service.Configure(executionContext, resolveRevisionRange(options.InitialRevision), &result); configureError != nil {
		return result, configureError
	}

	service.logger.Info(
		initCompletedLogMessageConstant,
		zap.String(remoteLogFieldConstant, defaultRemoteNameConstant),
		zap.String(urlLogFieldConstant, trimmedURL),
		zap.Int(mappingsLogFieldConstant, len(options.Mappings)),
	)
	return result, nil
}

// Configure excludes the live metadata from git, reconciles fetch
// configuration, imports revisions, and performs the initial switch when the
// checked-out history carries a marker.
func (service *Service) Configure(executionContext context.Context, revisionRange string, result *InitResult) error {
	if excludeError := service.writeMetadataExclusion(); excludeError != nil {
		return fmt.Errorf(excludeWriteFailureTemplateConstant, excludeError)
	}

	if _, syncError := service.syncEngine.Sync(executionContext, revisionRange); syncError != nil {
		return syncError
	}

	currentBranch, branchError := service.repository.CurrentBranch(executionContext)
	if branchError != nil {
		return branchError
	}

	if _, markerError := service.markerFinder.FindMarker(executionContext, currentBranch, initialSearchLimitConstant); markerError != nil {
		result.Guidance = GuidanceDetachedHead
		return nil
	}

	switchResult, switchError := service.switcher.Switch(executionContext, switcher.Options{BranchRef: currentBranch, Force: true})
	if switchError != nil {
		return switchError
	}
	result.InitialSwitch = &switchResult
	return nil
}

func (service *Service) commitConfiguration(executionContext context.Context, configuration bridgeconf.Configuration) (bool, error) {
	branchExists, existsError := service.repository.BranchExists(executionContext, service.configBranch)
	if existsError != nil {
		return false, existsError
	}

	previousBranch, previousBranchError := service.repository.CurrentBranch(executionContext)
	if previousBranchError != nil {
		previousBranch = ""
	}

	if branchExists {
		if checkoutError := service.repository.Checkout(executionContext, service.configBranch, false); checkoutError != nil {
			return false, checkoutError
		}
	} else {
		if orphanError := service.repository.CheckoutOrphan(executionContext, service.configBranch); orphanError != nil {
			return false, orphanError
		}
	}
	if resetError := service.repository.Reset(executionContext); resetError != nil {
		return false, resetError
	}

	configPath := filepath.Join(service.worktreePath, bridge.ConfigurationBlobNameConstant)
	if writeError := service.fileSystem.WriteFile(configPath, []byte(bridgeconf.Serialize(configuration)), excludePermissionsConstant); writeError != nil {
		return false, fmt.Errorf(configWriteFailureTemplateConstant, writeError)
	}
	if stageError := service.repository.StageFile(executionContext, bridge.ConfigurationBlobNameConstant); stageError != nil {
		return false, stageError
	}

	stagingDirty, stagingError := service.repository.StagingIsDirty(executionContext)
	if stagingError != nil {
		return false, stagingError
	}

	committed := false
	if stagingDirty {
		if commitError := service.repository.Commit(executionContext, configCommitMessageConstant); commitError != nil {
			return false, commitError
		}
		committed = true
	} else {
		if resetError := service.repository.Reset(executionContext); resetError != nil {
			return false, resetError
		}
	}

	if len(previousBranch) > 0 && previousBranch != service.configBranch {
		if returnError := service.repository.Checkout(executionContext, previousBranch, false); returnError != nil {
			return committed, returnError
		}
	}
	return committed, nil
}

func (service *Service) writeMetadataExclusion() error {
	infoDirectory := filepath.Join(service.gitDirPath, infoDirectoryNameConstant)
	if makeError := service.fileSystem.MkdirAll(infoDirectory, directoryPermissionsConstant); makeError != nil {
		return makeError
	}

	excludePath := filepath.Join(infoDirectory, excludeFileNameConstant)
	existingContents, readError := service.fileSystem.ReadFile(excludePath)
	if readError != nil && !errors.Is(readError, fs.ErrNotExist) {
		return readError
	}

	for _, line := range strings.Split(string(existingContents), "\n") {
		if strings.TrimSpace(line) == liveMetadataExcludeLineConstant {
			return nil
		}
	}

	updatedContents := string(existingContents)
	if len(updatedContents) > 0 && !strings.HasSuffix(updatedContents, "\n") {
		updatedContents += "\n"
	}
	updatedContents += liveMetadataExcludeLineConstant + "\n"
	return service.fileSystem.WriteFile(excludePath, []byte(updatedContents), excludePermissionsConstant)
}

// ReplicateMirrors fetches every mirrored branch the shared remote advertises
// into the local mirror refs. Branches missing from the remote are logged and
// skipped.
func (service *Service) ReplicateMirrors(executionContext context.Context) (int, error) {
	configuration, configurationError := bridgeconf.LoadFromBranch(
		executionContext,
		service.repository,
		service.configBranch,
		bridge.ConfigurationBlobNameConstant,
	)
	if configurationError != nil {
		if errors.Is(configurationError, bridgeconf.ErrMalformedConfiguration) {
			return 0, bridge.NewOperationError(bridge.FailureKindMalformedConfig, "", configurationError)
		}
		return 0, bridge.NewOperationError(bridge.FailureKindNotABridgeRepository, "", configurationError)
	}

	replicated := 0
	for _, remote := range configuration.Remotes {
		for _, mapping := range remote.FetchMappings {
			branchReference := localBranchPrefixConstant + mapping.BranchRef
			advertised, advertisedError := service.repository.RefExistsOnRemote(executionContext, bridge.OriginRemoteNameConstant, branchReference)
			if advertisedError != nil {
				return replicated, advertisedError
			}
			if !advertised {
				service.logger.Warn(missingMirrorLogMessageConstant, zap.String(branchLogFieldConstant, mapping.BranchRef))
				continue
			}
			refspec := fmt.Sprintf(mirrorFetchRefspecTemplateConstant, mapping.BranchRef, bridge.MirrorReferencePrefixConstant, mapping.BranchRef)
			if fetchError := service.repository.Fetch(executionContext, bridge.OriginRemoteNameConstant, refspec); fetchError != nil {
				return replicated, fetchError
			}
			replicated++
		}
	}
	return replicated, nil
}

// EnsureBridgeRemote verifies the remote carries the configuration branch
// before any clone work starts. An empty configBranch means the standard one.
func EnsureBridgeRemote(executionContext context.Context, prober RemoteProber, remoteLocation string, configBranch string) error {
	if len(configBranch) == 0 {
		configBranch = bridge.ConfigurationBranchNameConstant
	}
	advertised, probeError := prober.RefExistsOnRemote(executionContext, remoteLocation, localBranchPrefixConstant+configBranch)
	if probeError != nil {
		return probeError
	}
	if !advertised {
		return bridge.NewOperationError(
			bridge.FailureKindNotABridgeRepository,
			"",
			fmt.Errorf(missingConfigBranchTemplateConstant, remoteLocation, configBranch),
		)
	}
	return nil
}

// RemoteProber answers whether a remote advertises a reference.
type RemoteProber interface {
	RefExistsOnRemote(executionContext context.Context, remoteLocation string, reference string) (bool, error)
}

func resolveRevisionRange(initialRevision string) string {
	trimmedRevision := strings.TrimSpace(initialRevision)
	if len(trimmedRevision) == 0 {
		trimmedRevision = defaultInitialRevisionConstant
	}
	return fmt.Sprintf(initialRevisionRangeTemplateConstant, trimmedRevision)
}
