// Package switcher orchestrates branch switches: it resolves the target
// branch's centralized coordinates, checks out the branch, re-points the live
// svn metadata, and updates the working copy to the recorded revision.
package switcher
