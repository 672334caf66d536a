// Package workingcopy manages the per-branch svn metadata slots stored under
// the git directory and the symbolic link that activates one of them in the
// worktree root.
package workingcopy
