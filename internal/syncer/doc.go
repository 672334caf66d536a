// Package syncer reconciles the repository's local git-svn fetch
// configuration with the bridge configuration branch and imports new
// centralized revisions.
package syncer
