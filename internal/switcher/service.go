package switcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/bridgeconf"
	"github.com/ggitproject/ggit/internal/marker"
)

const (
	branchRefRequiredMessageConstant      = "branch ref must be provided"
	gitRepositoryMissingMessageConstant   = "git repository not configured"
	markerFinderMissingMessageConstant    = "marker finder not configured"
	metadataLinkerMissingMessageConstant  = "metadata linker not configured"
	dirtyWorktreeMessageConstant          = "working tree has uncommitted changes; commit, stash, or pass force"
	unknownReferenceMessageConstant       = "reference does not name a commit"
	unknownReferenceDetailTemplateConst   = "%w: %s"
	strayMetadataMessageTemplateConstant  = "stray metadata directories found: %s"
	strayMetadataLogMessageConstant       = "stray metadata directories detected; a later centralized commit may pick up stale state"
	strayScanPathsLogFieldConstant        = "paths"
	switchBranchLogFieldConstant          = "branch"
	switchRevisionLogFieldConstant        = "revision"
	switchURLLogFieldConstant             = "url"
	switchCompletedLogMessageConstant     = "switch completed"
	markerMismatchLogMessageConstant      = "marker url differs from the configured branch url"
	configuredURLLogFieldConstant         = "configured_url"
	markerURLLogFieldConstant             = "marker_url"
	strayPathsSeparatorConstant           = ", "
)

// State identifies how far a switch progressed.
type State string

// Switch progression states. Failed is reachable from any non-terminal state.
const (
	StateIdle       State = "Idle"
	StateResolving  State = "Resolving"
	StateCheckedOut State = "CheckedOut"
	StateRelinked   State = "Relinked"
	StateSynced     State = "Synced"
	StateFailed     State = "Failed"
)

// ErrBranchRefRequired indicates an empty branch ref was supplied.
var ErrBranchRefRequired = errors.New(branchRefRequiredMessageConstant)

// ErrGitRepositoryNotConfigured indicates the git repository dependency was missing.
var ErrGitRepositoryNotConfigured = errors.New(gitRepositoryMissingMessageConstant)

// ErrMarkerFinderNotConfigured indicates the marker finder dependency was missing.
var ErrMarkerFinderNotConfigured = errors.New(markerFinderMissingMessageConstant)

// ErrMetadataLinkerNotConfigured indicates the metadata linker dependency was missing.
var ErrMetadataLinkerNotConfigured = errors.New(metadataLinkerMissingMessageConstant)

// ErrDirtyWorkingTree indicates uncommitted changes blocked the checkout.
var ErrDirtyWorkingTree = errors.New(dirtyWorktreeMessageConstant)

// ErrUnknownReference indicates the requested reference resolves to no commit.
var ErrUnknownReference = errors.New(unknownReferenceMessageConstant)

// GitRepository exposes the git operations the orchestrator needs.
type GitRepository interface {
	ShowBlob(executionContext context.Context, branchName string, filePath string) (string, error)
	CommitExists(executionContext context.Context, reference string) (bool, error)
	IsWorkingTreeDirty(executionContext context.Context) (bool, error)
	Checkout(executionContext context.Context, reference string, force bool) error
}

// MarkerFinder recovers centralized coordinates for a git reference.
type MarkerFinder interface {
	FindMarker(executionContext context.Context, reference string, searchLimit int) (marker.Marker, error)
}

// MetadataLinker manages the per-branch svn metadata slots.
type MetadataLinker interface {
	Activate(branchRef string) error
	UpdateToRevision(executionContext context.Context, targetURL string, revision int64) error
	ScanForStrayMetadata() ([]string, error)
}

// ServiceDependencies enumerates collaborators required by the service.
// ConfigBranch defaults to the standard configuration branch when empty.
type ServiceDependencies struct {
	Logger       *zap.Logger
	Repository   GitRepository
	MarkerFinder MarkerFinder
	Linker       MetadataLinker
	ConfigBranch string
}

// Options configure one switch invocation.
type Options struct {
	BranchRef   string
	Force       bool
	SearchLimit int
	Strict      bool
}

// Result captures the outcome of a switch.
type Result struct {
	BranchRef          string
	State              State
	Marker             marker.Marker
	StrayMetadataPaths []string
}

// Service performs branch switches. Nothing is cached between invocations;
// every switch re-derives the marker and re-reads the configuration.
type Service struct {
	logger       *zap.Logger
	repository   GitRepository
	markerFinder MarkerFinder
	linker       MetadataLinker
	configBranch string
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Repository == nil {
		return nil, ErrGitRepositoryNotConfigured
	}
	if dependencies.MarkerFinder == nil {
		return nil, ErrMarkerFinderNotConfigured
	}
	if dependencies.Linker == nil {
		return nil, ErrMetadataLinkerNotConfigured
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
		repository:   dependencies.Repository,
		markerFinder: dependencies.MarkerFinder,
		linker:       dependencies.Linker,
		configBranch: configBranch,
	}, nil
}

// Switch moves the worktree and its svn metadata to the requested branch.
//
// The sequence never rolls back: a checkout that succeeded stays checked out
// even when a later step fails, because undoing it could discard uncommitted
// work. Each failure leaves the repository in a state a retry can complete
// from.
func (service *Service) Switch(executionContext context.Context, options Options) (Result, error) {
	trimmedBranchRef := strings.TrimSpace(options.BranchRef)
	if len(trimmedBranchRef) == 0 {
		return Result{State: StateIdle}, ErrBranchRefRequired
	}
	searchLimit := options.SearchLimit
	if searchLimit <= 0 {
		searchLimit = defaultSearchLimitConstant
	}

	result := Result{BranchRef: trimmedBranchRef, State: StateResolving}

	configuration, configurationError := bridgeconf.LoadFromBranch(
		executionContext,
		service.repository,
		service.configBranch,
		bridge.ConfigurationBlobNameConstant,
	)
	if configurationError != nil {
		return service.fail(&result, classifyConfigurationFailure(configurationError), configurationError)
	}

	commitKnown, commitError := service.repository.CommitExists(executionContext, trimmedBranchRef)
	if commitError != nil {
		return service.fail(&result, bridge.FailureKindCheckoutBlocked, commitError)
	}
	if !commitKnown {
		return service.fail(&result, bridge.FailureKindCheckoutBlocked, fmt.Errorf(unknownReferenceDetailTemplateConst, ErrUnknownReference, trimmedBranchRef))
	}

	foundMarker, markerError := service.markerFinder.FindMarker(executionContext, trimmedBranchRef, searchLimit)
	if markerError != nil {
		return service.fail(&result, bridge.FailureKindNoBridgeMarker, markerError)
	}
	result.Marker = foundMarker
	service.warnOnConfigurationMismatch(configuration, trimmedBranchRef, foundMarker)

	if !options.Force {
		worktreeDirty, dirtyError := service.repository.IsWorkingTreeDirty(executionContext)
		if dirtyError != nil {
			return service.fail(&result, bridge.FailureKindCheckoutBlocked, dirtyError)
		}
		if worktreeDirty {
			return service.fail(&result, bridge.FailureKindCheckoutBlocked, ErrDirtyWorkingTree)
		}
	}

	if checkoutError := service.repository.Checkout(executionContext, trimmedBranchRef, options.Force); checkoutError != nil {
		return service.fail(&result, bridge.FailureKindCheckoutBlocked, checkoutError)
	}
	result.State = StateCheckedOut

	if activateError := service.linker.Activate(trimmedBranchRef); activateError != nil {
		return service.fail(&result, bridge.FailureKindLinkError, activateError)
	}
	result.State = StateRelinked

	if updateError := service.linker.UpdateToRevision(executionContext, foundMarker.URL, foundMarker.Revision); updateError != nil {
		return service.fail(&result, bridge.FailureKindRevisionUnavailable, updateError)
	}

	// The svn update rewrites tracked files; a forced checkout restores git
	// as the source of truth for file contents.
	if restoreError := service.repository.Checkout(executionContext, trimmedBranchRef, true); restoreError != nil {
		return service.fail(&result, bridge.FailureKindCheckoutBlocked, restoreError)
	}

	strayPaths, scanError := service.linker.ScanForStrayMetadata()
	if scanError != nil {
		return service.fail(&result, bridge.FailureKindPartialSwitchWarning, scanError)
	}
	result.StrayMetadataPaths = strayPaths

	if len(strayPaths) > 0 {
		strayFailure := fmt.Errorf(strayMetadataMessageTemplateConstant, strings.Join(strayPaths, strayPathsSeparatorConstant))
		if options.Strict {
			return service.fail(&result, bridge.FailureKindPartialSwitchWarning, strayFailure)
		}
		service.logger.Warn(
			strayMetadataLogMessageConstant,
			zap.Strings(strayScanPathsLogFieldConstant, strayPaths),
		)
	}

	result.State = StateSynced
	service.logger.Info(
		switchCompletedLogMessageConstant,
		zap.String(switchBranchLogFieldConstant, trimmedBranchRef),
		zap.Int64(switchRevisionLogFieldConstant, foundMarker.Revision),
		zap.String(switchURLLogFieldConstant, foundMarker.URL),
	)
	return result, nil
}

// warnOnConfigurationMismatch flags a marker URL that disagrees with the URL
// the configuration maps the branch to. Cherry-picks and rewritten history
// carry markers from other branches; the switch still trusts the marker.
func (service *Service) warnOnConfigurationMismatch(configuration bridgeconf.Configuration, branchRef string, foundMarker marker.Marker) {
	configuredRemote, _, mappingFound := configuration.MappingForBranch(branchRef)
	if !mappingFound {
		return
	}
	configuredURL, urlFound := configuredRemote.BranchURL(branchRef)
	if !urlFound || configuredURL == foundMarker.URL {
		return
	}
	service.logger.Warn(
		markerMismatchLogMessageConstant,
		zap.String(switchBranchLogFieldConstant, branchRef),
		zap.String(configuredURLLogFieldConstant, configuredURL),
		zap.String(markerURLLogFieldConstant, foundMarker.URL),
	)
}

func (service *Service) fail(result *Result, kind bridge.FailureKind, cause error) (Result, error) {
	reachedState := result.State
	result.State = StateFailed
	return *result, bridge.NewOperationError(kind, string(reachedState), cause)
}

func classifyConfigurationFailure(candidate error) bridge.FailureKind {
	if errors.Is(candidate, bridgeconf.ErrMalformedConfiguration) {
		return bridge.FailureKindMalformedConfig
	}
	return bridge.FailureKindNotABridgeRepository
}
