package pusher

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
)

const (
	gitRepositoryMissingMessageConstant = "git repository not configured"
	mirrorRefspecConstant               = "refs/remotes/git-svn/*:refs/heads/*"
	pushCompletedLogMessageConstant     = "push completed"
	remoteLogFieldConstant              = "remote"
	forcedLogFieldConstant              = "forced"
)

// ErrGitRepositoryNotConfigured indicates the git repository dependency was missing.
var ErrGitRepositoryNotConfigured = errors.New(gitRepositoryMissingMessageConstant)

// GitRepository exposes the git operations the service needs.
type GitRepository interface {
	Push(executionContext context.Context, remoteName string, refspec string, force bool) error
}

// ServiceDependencies enumerates collaborators required by the service.
type ServiceDependencies struct {
	Logger     *zap.Logger
	Repository GitRepository
}

// Options configure one push invocation.
type Options struct {
	RemoteName string
	Force      bool
}

// Service pushes the bridge's shared state: the configuration branch and
// every mirrored centralized branch.
type Service struct {
	logger     *zap.Logger
	repository GitRepository
}

// NewService constructs a Service from the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.Repository == nil {
		return nil, ErrGitRepositoryNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, repository: dependencies.Repository}, nil
}

// Push publishes the configuration branch and the mirror refs to the remote.
func (service *Service) Push(executionContext context.Context, options Options) error {
	remoteName := strings.TrimSpace(options.RemoteName)
	if len(remoteName) == 0 {
		remoteName = bridge.OriginRemoteNameConstant
	}

	if pushError := service.repository.Push(executionContext, remoteName, bridge.ConfigurationBranchNameConstant, options.Force); pushError != nil {
		return pushError
	}
	if pushError := service.repository.Push(executionContext, remoteName, mirrorRefspecConstant, options.Force); pushError != nil {
		return pushError
	}

	service.logger.Info(
		pushCompletedLogMessageConstant,
		zap.String(remoteLogFieldConstant, remoteName),
		zap.Bool(forcedLogFieldConstant, options.Force),
	)
	return nil
}
