// Package svnwc drives the svn client against the working copy that shares
// the worktree with git.
package svnwc
