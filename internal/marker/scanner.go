package marker

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/execshell"
)

const (
	gitLogSubcommandConstant             = "log"
	gitFirstParentFlagConstant           = "--first-parent"
	gitMaxCountFlagTemplateConstant      = "--max-count=%d"
	gitBodyFormatFlagConstant            = "--format=%B%x1e"
	commitMessageSeparatorConstant       = "\x1e"
	markerNotFoundMessageConstant        = "no bridge marker found within the search limit"
	referenceRequiredMessageConstant     = "reference must be provided"
	searchLimitPositiveMessageConstant   = "search limit must be positive"
	gitExecutorMissingMessageConstant    = "git executor not configured"
	logReadFailureTemplateConstant       = "failed to read log for %s: %w"
	markerLinePatternConstant            = `(?m)^\s*git-svn-id:\s+(?P<url>\S+)@(?P<revision>\d+)\s+[0-9a-f-]+\s*$`
	markerPatternURLGroupIndexConstant   = 1
	markerPatternRevisionGroupIndexConst = 2
)

// ErrMarkerNotFound indicates no commit within the search limit carried a marker.
var ErrMarkerNotFound = errors.New(markerNotFoundMessageConstant)

// ErrReferenceRequired indicates an empty reference was supplied.
var ErrReferenceRequired = errors.New(referenceRequiredMessageConstant)

// ErrSearchLimitNotPositive indicates a non-positive search limit was supplied.
var ErrSearchLimitNotPositive = errors.New(searchLimitPositiveMessageConstant)

// ErrGitExecutorNotConfigured indicates the git executor dependency was missing.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

var markerLineExpression = regexp.MustCompile(markerLinePatternConstant)

// Marker binds a git reference to centralized repository coordinates.
type Marker struct {
	URL      string
	Revision int64
}

// Scanner walks first-parent ancestry looking for the most recent bridge marker.
//
// Known limitation: a commit cherry-picked from another bridged branch carries
// the source branch's marker verbatim, and the most recent match wins. The
// scanner does not attempt disambiguation; a rebase across bridged branches
// reintroduces the same ambiguity regardless.
type Scanner struct {
	executor       bridge.GitExecutor
	repositoryPath string
}

// NewScanner constructs a Scanner bound to a repository path.
func NewScanner(executor bridge.GitExecutor, repositoryPath string) (*Scanner, error) {
	if executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	return &Scanner{executor: executor, repositoryPath: repositoryPath}, nil
}

// FindMarker returns the marker of the most recent first-parent ancestor of
// reference whose message embeds one, inspecting at most searchLimit commits.
func (scanner *Scanner) FindMarker(executionContext context.Context, reference string, searchLimit int) (Marker, error) {
	trimmedReference := strings.TrimSpace(reference)
	if len(trimmedReference) == 0 {
		return Marker{}, ErrReferenceRequired
	}
	if searchLimit <= 0 {
		return Marker{}, ErrSearchLimitNotPositive
	}

	executionResult, executionError := scanner.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments: []string{
			gitLogSubcommandConstant,
			gitFirstParentFlagConstant,
			fmt.Sprintf(gitMaxCountFlagTemplateConstant, searchLimit),
			gitBodyFormatFlagConstant,
			trimmedReference,
		},
		WorkingDirectory: scanner.repositoryPath,
	})
	if executionError != nil {
		return Marker{}, fmt.Errorf(logReadFailureTemplateConstant, trimmedReference, executionError)
	}

	for _, commitMessage := range strings.Split(executionResult.StandardOutput, commitMessageSeparatorConstant) {
		foundMarker, matched := ExtractMarker(commitMessage)
		if matched {
			return foundMarker, nil
		}
	}

	return Marker{}, ErrMarkerNotFound
}

// ExtractMarker attempts to read a bridge marker from a single commit message.
func ExtractMarker(commitMessage string) (Marker, bool) {
	match := markerLineExpression.FindStringSubmatch(commitMessage)
	if match == nil {
		return Marker{}, false
	}

	revision, revisionError := strconv.ParseInt(match[markerPatternRevisionGroupIndexConst], 10, 64)
	if revisionError != nil || revision < 0 {
		return Marker{}, false
	}

	return Marker{URL: match[markerPatternURLGroupIndexConstant], Revision: revision}, true
}
