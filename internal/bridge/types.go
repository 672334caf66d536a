package bridge

import (
	"context"
	"io/fs"

	"github.com/ggitproject/ggit/internal/execshell"
)

const (
	// ConfigurationBranchNameConstant names the branch carrying the bridge configuration blob.
	ConfigurationBranchNameConstant = "ggit-config"
	// ConfigurationBlobNameConstant names the configuration file stored on the configuration branch.
	ConfigurationBlobNameConstant = "config"
	// ReservedStorageDirectoryNameConstant is the directory under .git holding bridge state.
	ReservedStorageDirectoryNameConstant = "ggit"
	// MirrorReferencePrefixConstant prefixes the refs mirroring svn branches.
	MirrorReferencePrefixConstant = "refs/remotes/git-svn/"
	// OriginRemoteNameConstant identifies the default git remote.
	OriginRemoteNameConstant = "origin"
)

// GitExecutor exposes the subset of shell execution used to drive git.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// SVNExecutor exposes the subset of shell execution used to drive svn.
type SVNExecutor interface {
	ExecuteSVN(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Executor combines the git and svn execution surfaces.
type Executor interface {
	GitExecutor
	SVNExecutor
}

// FileSystem exposes the filesystem operations required by the working-copy linker.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	Readlink(path string) (string, error)
	Symlink(target string, linkPath string) error
	Rename(oldPath string, newPath string) error
	Remove(path string) error
	MkdirAll(path string, permissions fs.FileMode) error
	ReadDir(path string) ([]fs.DirEntry, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
}
