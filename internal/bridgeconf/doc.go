// Package bridgeconf parses and serializes the bridge configuration stored
// on the dedicated configuration branch. The format is the git configuration
// file syntax; only svn-remote sections are interpreted, other sections are
// tolerated because the file format is shared with git itself.
package bridgeconf
