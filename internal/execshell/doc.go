// Package execshell wraps external process execution for the git and svn
// binaries behind typed commands, structured logging, and observable events.
package execshell
