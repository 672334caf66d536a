package dependencies

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/execshell"
	"github.com/ggitproject/ggit/internal/gitrepo"
)

const loggerMissingMessageConstant = "logger not configured"

// ErrLoggerNotConfigured indicates executor resolution was attempted without a logger.
var ErrLoggerNotConfigured = errors.New(loggerMissingMessageConstant)

// ResolveExecutor returns the provided executor or constructs one backed by the
// operating system shell.
func ResolveExecutor(existing bridge.Executor, logger *zap.Logger) (bridge.Executor, error) {
	if existing != nil {
		return existing, nil
	}
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	return execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
}

// Workspace binds a resolved worktree to its repository manager.
type Workspace struct {
	WorktreePath string
	GitDirPath   string
	Repository   *gitrepo.RepositoryManager
}

// ResolveWorkspace locates the worktree root and git directory enclosing the
// given directory and returns a repository manager bound to the root.
func ResolveWorkspace(executionContext context.Context, executor bridge.GitExecutor, workingDirectory string) (Workspace, error) {
	probeManager, probeError := gitrepo.NewRepositoryManager(executor, workingDirectory)
	if probeError != nil {
		return Workspace{}, probeError
	}

	worktreePath, toplevelError := probeManager.Toplevel(executionContext)
	if toplevelError != nil {
		return Workspace{}, toplevelError
	}
	gitDirPath, gitDirError := probeManager.GitDir(executionContext)
	if gitDirError != nil {
		return Workspace{}, gitDirError
	}

	rootManager, managerError := gitrepo.NewRepositoryManager(executor, worktreePath)
	if managerError != nil {
		return Workspace{}, managerError
	}

	return Workspace{WorktreePath: worktreePath, GitDirPath: gitDirPath, Repository: rootManager}, nil
}
