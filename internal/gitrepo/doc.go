// Package gitrepo wraps the git invocations the bridge relies on behind a
// RepositoryManager so services can be exercised against recorded executors.
package gitrepo
