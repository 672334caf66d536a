// Package bridge defines the failure taxonomy and collaborator contracts
// shared by the git-svn bridge services.
package bridge
