package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/execshell"
)

const (
	revParseSubcommandConstant        = "rev-parse"
	showToplevelFlagConstant          = "--show-toplevel"
	absoluteGitDirFlagConstant        = "--absolute-git-dir"
	abbreviatedReferenceFlagConstant  = "--abbrev-ref"
	headReferenceConstant             = "HEAD"
	statusSubcommandConstant          = "status"
	porcelainFlagConstant             = "--porcelain"
	catFileSubcommandConstant         = "cat-file"
	existenceCheckFlagConstant        = "-e"
	commitPeelSuffixConstant          = "^{commit}"
	lsRemoteSubcommandConstant        = "ls-remote"
	exitCodeFlagConstant              = "--exit-code"
	showSubcommandConstant            = "show"
	showRefSubcommandConstant         = "show-ref"
	verifyFlagConstant                = "--verify"
	quietFlagConstant                 = "--quiet"
	localBranchPrefixConstant         = "refs/heads/"
	checkoutSubcommandConstant        = "checkout"
	forceFlagConstant                 = "--force"
	orphanFlagConstant                = "--orphan"
	initSubcommandConstant            = "init"
	resetSubcommandConstant           = "reset"
	diffSubcommandConstant            = "diff"
	cachedFlagConstant                = "--cached"
	addSubcommandConstant             = "add"
	commitSubcommandConstant          = "commit"
	messageFlagConstant               = "-m"
	allowEmptyFlagConstant            = "--allow-empty"
	configSubcommandConstant          = "config"
	getAllFlagConstant                = "--get-all"
	addConfigFlagConstant             = "--add"
	fetchSubcommandConstant           = "fetch"
	pushSubcommandConstant            = "push"
	cloneSubcommandConstant           = "clone"
	svnSubcommandConstant             = "svn"
	showIgnoreSubcommandConstant      = "show-ignore"
	revisionRangeFlagConstant         = "-r"
	blobReferenceTemplateConstant     = "%s:%s"
	executorMissingMessageConstant    = "git executor not configured"
	repositoryPathMissingMessageConst = "repository path must be provided"
	toplevelFailureTemplateConstant   = "failed to resolve worktree root: %w"
	gitDirFailureTemplateConstant     = "failed to resolve git directory: %w"
	statusFailureTemplateConstant     = "failed to read worktree status: %w"
	currentBranchFailureTemplateConst = "failed to resolve current branch: %w"
	showBlobFailureTemplateConstant   = "failed to read %s: %w"
	checkoutFailureTemplateConstant   = "failed to check out %s: %w"
	stageFailureTemplateConstant      = "failed to stage %s: %w"
	commitFailureTemplateConstant     = "failed to commit: %w"
	configReadFailureTemplateConstant = "failed to read configuration key %s: %w"
	configAddFailureTemplateConstant  = "failed to add configuration key %s: %w"
	fetchFailureTemplateConstant      = "failed to fetch from %s: %w"
	pushFailureTemplateConstant       = "failed to push to %s: %w"
	cloneFailureTemplateConstant      = "failed to clone %s: %w"
	svnFetchFailureTemplateConstant   = "failed to fetch svn revisions: %w"
	showIgnoreFailureTemplateConstant = "failed to read svn ignore patterns: %w"
	initFailureTemplateConstant       = "failed to initialize repository: %w"
	resetFailureTemplateConstant      = "failed to reset index: %w"
)

// ErrGitExecutorNotConfigured indicates the manager was constructed without an executor.
var ErrGitExecutorNotConfigured = errors.New(executorMissingMessageConstant)

// ErrRepositoryPathRequired indicates an empty repository path was supplied.
var ErrRepositoryPathRequired = errors.New(repositoryPathMissingMessageConst)

// RepositoryManager executes git commands against a single repository.
type RepositoryManager struct {
	executor       bridge.GitExecutor
	repositoryPath string
}

// NewRepositoryManager constructs a RepositoryManager bound to a repository path.
func NewRepositoryManager(executor bridge.GitExecutor, repositoryPath string) (*RepositoryManager, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if len(strings.TrimSpace(repositoryPath)) == 0 {
		return nil, ErrRepositoryPathRequired
	}
	return &RepositoryManager{executor: executor, repositoryPath: repositoryPath}, nil
}

// RepositoryPath returns the path the manager operates on.
func (manager *RepositoryManager) RepositoryPath() string {
	return manager.repositoryPath
}

// Toplevel resolves the worktree root of the repository.
func (manager *RepositoryManager) Toplevel(executionContext context.Context) (string, error) {
	executionResult, executionError := manager.run(executionContext, revParseSubcommandConstant, showToplevelFlagConstant)
	if executionError != nil {
		return "", fmt.Errorf(toplevelFailureTemplateConstant, executionError)
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// GitDir resolves the absolute path of the repository's git directory.
func (manager *RepositoryManager) GitDir(executionContext context.Context) (string, error) {
	executionResult, executionError := manager.run(executionContext, revParseSubcommandConstant, absoluteGitDirFlagConstant)
	if executionError != nil {
		return "", fmt.Errorf(gitDirFailureTemplateConstant, executionError)
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// CurrentBranch resolves the abbreviated name of the checked-out branch.
func (manager *RepositoryManager) CurrentBranch(executionContext context.Context) (string, error) {
	executionResult, executionError := manager.run(executionContext, revParseSubcommandConstant, abbreviatedReferenceFlagConstant, headReferenceConstant)
	if executionError != nil {
		return "", fmt.Errorf(currentBranchFailureTemplateConst, executionError)
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// IsWorkingTreeDirty reports whether the worktree holds uncommitted changes.
func (manager *RepositoryManager) IsWorkingTreeDirty(executionContext context.Context) (bool, error) {
	executionResult, executionError := manager.run(executionContext, statusSubcommandConstant, porcelainFlagConstant)
	if executionError != nil {
		return false, fmt.Errorf(statusFailureTemplateConstant, executionError)
	}
	return len(strings.TrimSpace(executionResult.StandardOutput)) > 0, nil
}

// CommitExists reports whether the reference resolves to a commit object.
func (manager *RepositoryManager) CommitExists(executionContext context.Context, reference string) (bool, error) {
	_, executionError := manager.run(executionContext, catFileSubcommandConstant, existenceCheckFlagConstant, reference+commitPeelSuffixConstant)
	return interpretPredicateOutcome(executionError)
}

// BranchExists reports whether a local branch with the given name exists.
func (manager *RepositoryManager) BranchExists(executionContext context.Context, branchName string) (bool, error) {
	_, executionError := manager.run(executionContext, showRefSubcommandConstant, verifyFlagConstant, quietFlagConstant, localBranchPrefixConstant+branchName)
	return interpretPredicateOutcome(executionError)
}

// RefExistsOnRemote reports whether the remote advertises the given reference.
func (manager *RepositoryManager) RefExistsOnRemote(executionContext context.Context, remoteLocation string, reference string) (bool, error) {
	_, executionError := manager.run(executionContext, lsRemoteSubcommandConstant, exitCodeFlagConstant, remoteLocation, reference)
	return interpretPredicateOutcome(executionError)
}

// ShowBlob reads the contents of a file as committed on the given branch.
func (manager *RepositoryManager) ShowBlob(executionContext context.Context, branchName string, filePath string) (string, error) {
	blobReference := fmt.Sprintf(blobReferenceTemplateConstant, branchName, filePath)
	executionResult, executionError := manager.run(executionContext, showSubcommandConstant, blobReference)
	if executionError != nil {
		return "", fmt.Errorf(showBlobFailureTemplateConstant, blobReference, executionError)
	}
	return executionResult.StandardOutput, nil
}

// Checkout switches the worktree to the given reference.
func (manager *RepositoryManager) Checkout(executionContext context.Context, reference string, force bool) error {
	arguments := []string{checkoutSubcommandConstant}
	if force {
		arguments = append(arguments, forceFlagConstant)
	}
	arguments = append(arguments, reference)
	_, executionError := manager.run(executionContext, arguments...)
	if executionError != nil {
		return fmt.Errorf(checkoutFailureTemplateConstant, reference, executionError)
	}
	return nil
}

// CheckoutOrphan creates and switches to a branch with no history.
func (manager *RepositoryManager) CheckoutOrphan(executionContext context.Context, branchName string) error {
	_, executionError := manager.run(executionContext, checkoutSubcommandConstant, orphanFlagConstant, branchName)
	if executionError != nil {
		return fmt.Errorf(checkoutFailureTemplateConstant, branchName, executionError)
	}
	return nil
}

// InitRepository creates an empty git repository at the manager's path.
func (manager *RepositoryManager) InitRepository(executionContext context.Context) error {
	_, executionError := manager.run(executionContext, initSubcommandConstant)
	if executionError != nil {
		return fmt.Errorf(initFailureTemplateConstant, executionError)
	}
	return nil
}

// Reset unstages every index entry without touching the worktree.
func (manager *RepositoryManager) Reset(executionContext context.Context) error {
	_, executionError := manager.run(executionContext, resetSubcommandConstant)
	if executionError != nil {
		return fmt.Errorf(resetFailureTemplateConstant, executionError)
	}
	return nil
}

// StagingIsDirty reports whether the index differs from HEAD.
func (manager *RepositoryManager) StagingIsDirty(executionContext context.Context) (bool, error) {
	_, executionError := manager.run(executionContext, diffSubcommandConstant, cachedFlagConstant, quietFlagConstant)
	clean, predicateError := interpretPredicateOutcome(executionError)
	return !clean, predicateError
}

// StageFile adds a file to the index.
func (manager *RepositoryManager) StageFile(executionContext context.Context, filePath string) error {
	_, executionError := manager.run(executionContext, addSubcommandConstant, filePath)
	if executionError != nil {
		return fmt.Errorf(stageFailureTemplateConstant, filePath, executionError)
	}
	return nil
}

// Commit records the staged changes with the given message.
func (manager *RepositoryManager) Commit(executionContext context.Context, message string) error {
	_, executionError := manager.run(executionContext, commitSubcommandConstant, allowEmptyFlagConstant, messageFlagConstant, message)
	if executionError != nil {
		return fmt.Errorf(commitFailureTemplateConstant, executionError)
	}
	return nil
}

// ConfigValues returns every value recorded for a configuration key.
// An unset key yields an empty slice without an error.
func (manager *RepositoryManager) ConfigValues(executionContext context.Context, key string) ([]string, error) {
	executionResult, executionError := manager.run(executionContext, configSubcommandConstant, getAllFlagConstant, key)
	if executionError != nil {
		if isCommandExitFailure(executionError) {
			return nil, nil
		}
		return nil, fmt.Errorf(configReadFailureTemplateConstant, key, executionError)
	}

	values := []string{}
	for _, line := range strings.Split(executionResult.StandardOutput, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if len(trimmedLine) > 0 {
			values = append(values, trimmedLine)
		}
	}
	return values, nil
}

// ConfigAdd appends a value to a multi-valued configuration key.
func (manager *RepositoryManager) ConfigAdd(executionContext context.Context, key string, value string) error {
	_, executionError := manager.run(executionContext, configSubcommandConstant, addConfigFlagConstant, key, value)
	if executionError != nil {
		return fmt.Errorf(configAddFailureTemplateConstant, key, executionError)
	}
	return nil
}

// ConfigSet assigns a single-valued configuration key.
func (manager *RepositoryManager) ConfigSet(executionContext context.Context, key string, value string) error {
	_, executionError := manager.run(executionContext, configSubcommandConstant, key, value)
	if executionError != nil {
		return fmt.Errorf(configAddFailureTemplateConstant, key, executionError)
	}
	return nil
}

// Fetch retrieves references from a remote, optionally restricted to refspecs.
func (manager *RepositoryManager) Fetch(executionContext context.Context, remoteName string, refspecs ...string) error {
	arguments := append([]string{fetchSubcommandConstant, remoteName}, refspecs...)
	_, executionError := manager.run(executionContext, arguments...)
	if executionError != nil {
		return fmt.Errorf(fetchFailureTemplateConstant, remoteName, executionError)
	}
	return nil
}

// Push sends references to a remote using the given refspec.
func (manager *RepositoryManager) Push(executionContext context.Context, remoteName string, refspec string, force bool) error {
	arguments := []string{pushSubcommandConstant}
	if force {
		arguments = append(arguments, forceFlagConstant)
	}
	arguments = append(arguments, remoteName, refspec)
	_, executionError := manager.run(executionContext, arguments...)
	if executionError != nil {
		return fmt.Errorf(pushFailureTemplateConstant, remoteName, executionError)
	}
	return nil
}

// SVNFetch imports centralized revisions through git svn, optionally bounded to a range.
func (manager *RepositoryManager) SVNFetch(executionContext context.Context, revisionRange string) error {
	arguments := []string{svnSubcommandConstant, fetchSubcommandConstant}
	if len(revisionRange) > 0 {
		arguments = append(arguments, revisionRangeFlagConstant, revisionRange)
	}
	_, executionError := manager.run(executionContext, arguments...)
	if executionError != nil {
		return fmt.Errorf(svnFetchFailureTemplateConstant, executionError)
	}
	return nil
}

// SVNShowIgnore renders the svn:ignore properties of the tracked tree as
// gitignore-style patterns.
func (manager *RepositoryManager) SVNShowIgnore(executionContext context.Context) (string, error) {
	executionResult, executionError := manager.run(executionContext, svnSubcommandConstant, showIgnoreSubcommandConstant)
	if executionError != nil {
		return "", fmt.Errorf(showIgnoreFailureTemplateConstant, executionError)
	}
	return executionResult.StandardOutput, nil
}

// Clone copies a repository into the destination path. The command runs in the
// parent directory supplied at construction time.
func (manager *RepositoryManager) Clone(executionContext context.Context, sourceLocation string, destinationPath string) error {
	_, executionError := manager.run(executionContext, cloneSubcommandConstant, sourceLocation, destinationPath)
	if executionError != nil {
		return fmt.Errorf(cloneFailureTemplateConstant, sourceLocation, executionError)
	}
	return nil
}

func (manager *RepositoryManager) run(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return manager.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: manager.repositoryPath,
	})
}

func interpretPredicateOutcome(executionError error) (bool, error) {
	if executionError == nil {
		return true, nil
	}
	if isCommandExitFailure(executionError) {
		return false, nil
	}
	return false, executionError
}

func isCommandExitFailure(candidate error) bool {
	var commandFailure execshell.CommandFailedError
	return errors.As(candidate, &commandFailure)
}
