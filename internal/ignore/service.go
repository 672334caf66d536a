package ignore

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
)

const (
	gitRepositoryMissingMessageConstant   = "git repository not configured"
	workingCopyMissingMessageConstant     = "svn working copy not configured"
	commentPrefixConstant                 = "#"
	externalStatusLinePatternConstant     = `^\s*X\s+(.*)$`
	externalStatusPathGroupIndexConstant  = 1
)

// ErrGitRepositoryNotConfigured indicates the git repository dependency was missing.
var ErrGitRepositoryNotConfigured = errors.New(gitRepositoryMissingMessageConstant)

// ErrWorkingCopyNotConfigured indicates the svn working copy dependency was missing.
var ErrWorkingCopyNotConfigured = errors.New(workingCopyMissingMessageConstant)

var externalStatusLineExpression = regexp.MustCompile(externalStatusLinePatternConstant)

// GitRepository exposes the git operations the generator needs.
type GitRepository interface {
	SVNShowIgnore(executionContext context.Context) (string, error)
}

// WorkingCopy exposes the svn operations the generator needs.
type WorkingCopy interface {
	Status(executionContext context.Context) (string, error)
	IgnoreProperty(executionContext context.Context) ([]string, error)
	GlobalIgnoresProperty(executionContext context.Context) ([]string, error)
}

// GeneratorDependencies enumerates collaborators required by the generator.
type GeneratorDependencies struct {
	Repository  GitRepository
	WorkingCopy WorkingCopy
}

// Generator merges svn ignore properties with svn externals into one sorted
// pattern list suitable for a gitignore file.
type Generator struct {
	repository  GitRepository
	workingCopy WorkingCopy
}

// NewGenerator constructs a Generator from the provided dependencies.
func NewGenerator(dependencies GeneratorDependencies) (*Generator, error) {
	if dependencies.Repository == nil {
		return nil, ErrGitRepositoryNotConfigured
	}
	if dependencies.WorkingCopy == nil {
		return nil, ErrWorkingCopyNotConfigured
	}
	return &Generator{repository: dependencies.Repository, workingCopy: dependencies.WorkingCopy}, nil
}

// Generate returns the sorted, deduplicated union of the centralized ignore
// patterns, the working copy root's ignore properties, and externals paths.
func (generator *Generator) Generate(executionContext context.Context) ([]string, error) {
	statusOutput, statusError := generator.workingCopy.Status(executionContext)
	if statusError != nil {
		return nil, statusError
	}
	ignoreOutput, ignoreError := generator.repository.SVNShowIgnore(executionContext)
	if ignoreError != nil {
		return nil, ignoreError
	}
	rootIgnores, rootIgnoreError := generator.workingCopy.IgnoreProperty(executionContext)
	if rootIgnoreError != nil {
		return nil, rootIgnoreError
	}
	globalIgnores, globalIgnoreError := generator.workingCopy.GlobalIgnoresProperty(executionContext)
	if globalIgnoreError != nil {
		return nil, globalIgnoreError
	}

	patternSet := map[string]bool{}
	for _, propertyValue := range rootIgnores {
		patternSet[propertyValue] = true
	}
	for _, propertyValue := range globalIgnores {
		patternSet[propertyValue] = true
	}
	for _, statusLine := range strings.Split(statusOutput, "\n") {
		match := externalStatusLineExpression.FindStringSubmatch(statusLine)
		if match != nil {
			patternSet[strings.TrimSpace(match[externalStatusPathGroupIndexConstant])] = true
		}
	}
	for _, ignoreLine := range strings.Split(ignoreOutput, "\n") {
		trimmedLine := strings.TrimSpace(ignoreLine)
		if len(trimmedLine) == 0 || strings.HasPrefix(trimmedLine, commentPrefixConstant) {
			continue
		}
		patternSet[trimmedLine] = true
	}

	patterns := make([]string, 0, len(patternSet))
	for pattern := range patternSet {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	return patterns, nil
}
