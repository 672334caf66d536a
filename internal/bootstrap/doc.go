// Package bootstrap creates bridge repositories: init builds one from a
// centralized repository URL, clone reproduces an existing bridge from its
// shared git remote.
package bootstrap
