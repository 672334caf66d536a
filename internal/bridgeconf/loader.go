package bridgeconf

import (
	"context"
	"errors"
	"fmt"
)

const (
	configurationUnavailableMessageConstant  = "bridge configuration branch unavailable"
	configurationReadFailureTemplateConstant = "%w: %v"
)

// ErrConfigurationUnavailable indicates the configuration blob could not be read,
// typically because the repository was never initialized as a bridge.
var ErrConfigurationUnavailable = errors.New(configurationUnavailableMessageConstant)

// BlobReader reads a committed file from a branch without checking it out.
type BlobReader interface {
	ShowBlob(executionContext context.Context, branchName string, filePath string) (string, error)
}

// LoadFromBranch reads and parses the configuration blob committed on the
// given branch. The blob is read fresh on every call; the configuration
// branch advances independently of the worktree.
func LoadFromBranch(executionContext context.Context, reader BlobReader, branchName string, blobName string) (Configuration, error) {
	configurationText, readError := reader.ShowBlob(executionContext, branchName, blobName)
	if readError != nil {
		return Configuration{}, fmt.Errorf(configurationReadFailureTemplateConstant, ErrConfigurationUnavailable, readError)
	}
	return Parse(configurationText)
}
