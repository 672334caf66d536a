package svnwc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/execshell"
)

const (
	infoSubcommandConstant            = "info"
	showItemFlagConstant              = "--show-item"
	urlItemNameConstant               = "url"
	updateSubcommandConstant          = "update"
	forceFlagConstant                 = "--force"
	acceptFlagConstant                = "--accept"
	acceptWorkingValueConstant        = "working"
	setDepthFlagConstant              = "--set-depth=infinity"
	revisionFlagConstant              = "-r"
	relocateSubcommandConstant        = "relocate"
	checkoutSubcommandConstant        = "checkout"
	depthEmptyFlagConstant            = "--depth=empty"
	revertSubcommandConstant          = "revert"
	recursiveFlagConstant             = "-R"
	currentDirectoryConstant          = "."
	cleanupSubcommandConstant         = "cleanup"
	statusSubcommandConstant          = "status"
	propgetSubcommandConstant         = "propget"
	ignorePropertyNameConstant        = "svn:ignore"
	globalIgnoresPropertyNameConstant = "svn:global-ignores"
	executorMissingMessageConstant    = "svn executor not configured"
	workingCopyPathMissingMessage     = "working copy path must be provided"
	noSuchRevisionFragmentConstant    = "no such revision"
	infoFailureTemplateConstant       = "failed to read working copy info: %w"
	updateFailureTemplateConstant     = "failed to update working copy to revision %d: %w"
	relocateFailureTemplateConstant   = "failed to relocate working copy to %s: %w"
	checkoutFailureTemplateConstant   = "failed to check out %s into %s: %w"
	revertFailureTemplateConstant     = "failed to revert working copy: %w"
	cleanupFailureTemplateConstant    = "failed to clean up working copy: %w"
	statusFailureTemplateConstant     = "failed to read working copy status: %w"
	propertyFailureTemplateConstant   = "failed to read property %s: %w"
	revisionUnavailableTemplateConst  = "revision %d not available at %s"
)

// ErrSVNExecutorNotConfigured indicates the client was constructed without an executor.
var ErrSVNExecutorNotConfigured = errors.New(executorMissingMessageConstant)

// ErrWorkingCopyPathRequired indicates an empty working copy path was supplied.
var ErrWorkingCopyPathRequired = errors.New(workingCopyPathMissingMessage)

// RevisionUnavailableError reports an update request for a revision the
// centralized repository does not serve at the working copy's URL.
type RevisionUnavailableError struct {
	Revision int64
	URL      string
	Cause    error
}

// Error describes the unavailable revision.
func (failure *RevisionUnavailableError) Error() string {
	return fmt.Sprintf(revisionUnavailableTemplateConst, failure.Revision, failure.URL)
}

// Unwrap exposes the underlying svn failure.
func (failure *RevisionUnavailableError) Unwrap() error {
	return failure.Cause
}

// Client executes svn commands against one working copy root.
type Client struct {
	executor        bridge.SVNExecutor
	workingCopyPath string
}

// NewClient constructs a Client bound to a working copy path.
func NewClient(executor bridge.SVNExecutor, workingCopyPath string) (*Client, error) {
	if executor == nil {
		return nil, ErrSVNExecutorNotConfigured
	}
	if len(strings.TrimSpace(workingCopyPath)) == 0 {
		return nil, ErrWorkingCopyPathRequired
	}
	return &Client{executor: executor, workingCopyPath: workingCopyPath}, nil
}

// URL reads the repository URL the working copy currently points at.
func (client *Client) URL(executionContext context.Context) (string, error) {
	executionResult, executionError := client.run(executionContext, infoSubcommandConstant, showItemFlagConstant, urlItemNameConstant)
	if executionError != nil {
		return "", fmt.Errorf(infoFailureTemplateConstant, executionError)
	}
	return strings.TrimSpace(executionResult.StandardOutput), nil
}

// UpdateToRevision brings the working copy to the given revision, keeping
// local file contents on conflict so git remains the source of truth.
func (client *Client) UpdateToRevision(executionContext context.Context, revision int64) error {
	_, executionError := client.run(
		executionContext,
		updateSubcommandConstant,
		forceFlagConstant,
		acceptFlagConstant,
		acceptWorkingValueConstant,
		setDepthFlagConstant,
		revisionFlagConstant,
		fmt.Sprintf("%d", revision),
	)
	if executionError == nil {
		return nil
	}
	if indicatesMissingRevision(executionError) {
		workingCopyURL, urlError := client.URL(executionContext)
		if urlError != nil {
			workingCopyURL = client.workingCopyPath
		}
		return &RevisionUnavailableError{Revision: revision, URL: workingCopyURL, Cause: executionError}
	}
	return fmt.Errorf(updateFailureTemplateConstant, revision, executionError)
}

// CheckoutEmpty checks out targetURL into destinationPath at empty depth.
// The resulting directory carries valid metadata for the URL but no files,
// which is exactly what a dormant metadata slot needs before its first update.
func (client *Client) CheckoutEmpty(executionContext context.Context, targetURL string, destinationPath string) error {
	_, executionError := client.run(executionContext, checkoutSubcommandConstant, depthEmptyFlagConstant, targetURL, destinationPath)
	if executionError != nil {
		return fmt.Errorf(checkoutFailureTemplateConstant, targetURL, destinationPath, executionError)
	}
	return nil
}

// Relocate re-points the working copy metadata at a different repository URL.
func (client *Client) Relocate(executionContext context.Context, targetURL string) error {
	_, executionError := client.run(executionContext, relocateSubcommandConstant, targetURL)
	if executionError != nil {
		return fmt.Errorf(relocateFailureTemplateConstant, targetURL, executionError)
	}
	return nil
}

// RevertAll discards every local svn modification recursively.
func (client *Client) RevertAll(executionContext context.Context) error {
	_, executionError := client.run(executionContext, revertSubcommandConstant, recursiveFlagConstant, currentDirectoryConstant)
	if executionError != nil {
		return fmt.Errorf(revertFailureTemplateConstant, executionError)
	}
	return nil
}

// Cleanup releases stale working copy locks left by interrupted operations.
func (client *Client) Cleanup(executionContext context.Context) error {
	_, executionError := client.run(executionContext, cleanupSubcommandConstant)
	if executionError != nil {
		return fmt.Errorf(cleanupFailureTemplateConstant, executionError)
	}
	return nil
}

// Status returns the raw status output for the working copy.
func (client *Client) Status(executionContext context.Context) (string, error) {
	executionResult, executionError := client.run(executionContext, statusSubcommandConstant)
	if executionError != nil {
		return "", fmt.Errorf(statusFailureTemplateConstant, executionError)
	}
	return executionResult.StandardOutput, nil
}

// IgnoreProperty reads the svn:ignore property values for the working copy root.
func (client *Client) IgnoreProperty(executionContext context.Context) ([]string, error) {
	return client.property(executionContext, ignorePropertyNameConstant)
}

// GlobalIgnoresProperty reads the svn:global-ignores property values for the working copy root.
func (client *Client) GlobalIgnoresProperty(executionContext context.Context) ([]string, error) {
	return client.property(executionContext, globalIgnoresPropertyNameConstant)
}

func (client *Client) property(executionContext context.Context, propertyName string) ([]string, error) {
	executionResult, executionError := client.run(executionContext, propgetSubcommandConstant, propertyName, currentDirectoryConstant)
	if executionError != nil {
		if isCommandExitFailure(executionError) {
			return nil, nil
		}
		return nil, fmt.Errorf(propertyFailureTemplateConstant, propertyName, executionError)
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

func (client *Client) run(executionContext context.Context, arguments ...string) (execshell.ExecutionResult, error) {
	return client.executor.ExecuteSVN(executionContext, execshell.CommandDetails{
		Arguments:        arguments,
		WorkingDirectory: client.workingCopyPath,
	})
}

func indicatesMissingRevision(candidate error) bool {
	var commandFailure execshell.CommandFailedError
	if !errors.As(candidate, &commandFailure) {
		return false
	}
	return strings.Contains(strings.ToLower(commandFailure.Result.StandardError), noSuchRevisionFragmentConstant)
}

func isCommandExitFailure(candidate error) bool {
	var commandFailure execshell.CommandFailedError
	return errors.As(candidate, &commandFailure)
}
