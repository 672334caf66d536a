// Package marker recovers the svn coordinates a git reference represents by
// scanning commit messages for the marker line git-svn embeds on import.
// Markers are recomputed on every invocation; git history is mutable, so any
// cached value could silently desynchronize after a rebase or cherry-pick.
package marker
