package syncer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/bridgeconf"
)

const (
	gitRepositoryMissingMessageConstant = "git repository not configured"
	remoteURLKeyTemplateConstant        = "svn-remote.%s.url"
	remoteFetchKeyTemplateConstant      = "svn-remote.%s.fetch"
	fetchValueTemplateConstant          = "%s:%s%s"
	syncCompletedLogMessageConstant     = "sync completed"
	mutationsLogFieldConstant           = "configuration_mutations"
	remotesLogFieldConstant             = "remotes"
)

// ErrGitRepositoryNotConfigured indicates the git repository dependency was missing.
var ErrGitRepositoryNotConfigured = errors.New(gitRepositoryMissingMessageConstant)

// GitRepository exposes the git operations the engine needs.
type GitRepository interface {
	ShowBlob(executionContext context.Context, branchName string, filePath string) (string, error)
	ConfigValues(executionContext context.Context, key string) ([]string, error)
	ConfigSet(executionContext context.Context, key string, value string) error
	ConfigAdd(executionContext context.Context, key string, value string) error
	SVNFetch(executionContext context.Context, revisionRange string) error
}

// EngineDependencies enumerates collaborators required by the engine.
// ConfigBranch defaults to the standard configuration branch when empty.
type EngineDependencies struct {
	Logger       *zap.Logger
	Repository   GitRepository
	ConfigBranch string
}

// Result captures the outcome of a sync.
type Result struct {
	ConfigurationMutations int
	Remotes                []string
}

// Engine brings local git-svn configuration in line with the configuration
// branch and fetches new revisions. Reconciliation only ever adds missing
// entries; a second run against an unchanged configuration mutates nothing.
type Engine struct {
	logger       *zap.Logger
	repository   GitRepository
	configBranch string
}

// NewEngine constructs an Engine from the provided dependencies.
func NewEngine(dependencies EngineDependencies) (*Engine, error) {
	if dependencies.Repository == nil {
		return nil, ErrGitRepositoryNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	configBranch := dependencies.ConfigBranch
	if len(configBranch) == 0 {
		configBranch = bridge.ConfigurationBranchNameConstant
	}
	return &Engine{logger: logger, repository: dependencies.Repository, configBranch: configBranch}, nil
}

// Sync reconciles fetch configuration and imports centralized revisions.
// An empty revisionRange fetches everything the remote advertises past the
// last imported revision.
func (engine *Engine) Sync(executionContext context.Context, revisionRange string) (Result, error) {
	configuration, configurationError := bridgeconf.LoadFromBranch(
		executionContext,
		engine.repository,
		engine.configBranch,
		bridge.ConfigurationBlobNameConstant,
	)
	if configurationError != nil {
		return Result{}, bridge.NewOperationError(classifyConfigurationFailure(configurationError), "", configurationError)
	}

	result := Result{}
	for _, remote := range bridgeconf.RemoteSections(configuration) {
		result.Remotes = append(result.Remotes, remote.Name)

		mutations, reconcileError := engine.reconcileRemote(executionContext, remote)
		if reconcileError != nil {
			return result, reconcileError
		}
		result.ConfigurationMutations += mutations
	}

	if fetchError := engine.repository.SVNFetch(executionContext, revisionRange); fetchError != nil {
		return result, fetchError
	}

	engine.logger.Info(
		syncCompletedLogMessageConstant,
		zap.Int(mutationsLogFieldConstant, result.ConfigurationMutations),
		zap.Strings(remotesLogFieldConstant, result.Remotes),
	)
	return result, nil
}

func (engine *Engine) reconcileRemote(executionContext context.Context, remote bridgeconf.Remote) (int, error) {
	mutations := 0

	urlKey := fmt.Sprintf(remoteURLKeyTemplateConstant, remote.Name)
	existingURLs, urlReadError := engine.repository.ConfigValues(executionContext, urlKey)
	if urlReadError != nil {
		return mutations, urlReadError
	}
	if !containsValue(existingURLs, remote.URL) {
		if setError := engine.repository.ConfigSet(executionContext, urlKey, remote.URL); setError != nil {
			return mutations, setError
		}
		mutations++
	}

	fetchKey := fmt.Sprintf(remoteFetchKeyTemplateConstant, remote.Name)
	existingFetches, fetchReadError := engine.repository.ConfigValues(executionContext, fetchKey)
	if fetchReadError != nil {
		return mutations, fetchReadError
	}
	for _, mapping := range remote.FetchMappings {
		desiredValue := fmt.Sprintf(fetchValueTemplateConstant, mapping.SVNPath, bridge.MirrorReferencePrefixConstant, mapping.BranchRef)
		if containsValue(existingFetches, desiredValue) {
			continue
		}
		if addError := engine.repository.ConfigAdd(executionContext, fetchKey, desiredValue); addError != nil {
			return mutations, addError
		}
		mutations++
	}

	return mutations, nil
}

func containsValue(values []string, candidate string) bool {
	for _, value := range values {
		if value == candidate {
			return true
		}
	}
	return false
}

func classifyConfigurationFailure(candidate error) bridge.FailureKind {
	if errors.Is(candidate, bridgeconf.ErrMalformedConfiguration) {
		return bridge.FailureKindMalformedConfig
	}
	return bridge.FailureKindNotABridgeRepository
}
