// Package dependencies resolves the collaborators commands share: the shell
// executor and the repository workspace derived from the invocation directory.
package dependencies
