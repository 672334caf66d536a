package workingcopy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ggitproject/ggit/internal/bridge"
)

const (
	storageSubdirectoryNameConstant      = "svn"
	liveMetadataNameConstant             = ".svn"
	gitMetadataNameConstant              = ".git"
	temporaryLinkNameConstant            = ".svn.ggit-tmp"
	slotNameTemplateConstant             = "%s-%s"
	seedStagingSuffixConstant            = ".seed"
	slotDigestLengthConstant             = 12
	storagePermissionsConstant           = fs.FileMode(0o755)
	fileSystemMissingMessageConstant     = "file system not configured"
	updaterMissingMessageConstant        = "working copy updater not configured"
	worktreePathMissingMessageConstant   = "worktree path must be provided"
	gitDirPathMissingMessageConstant     = "git directory path must be provided"
	branchRefMissingMessageConstant      = "branch ref must be provided"
	slotOccupiedMessageConstant          = "metadata slot already populated"
	slotCreateFailureTemplateConstant    = "failed to create metadata slot for %s: %w"
	adoptFailureTemplateConstant         = "failed to adopt existing metadata into slot %s: %w"
	slotSeedFailureTemplateConstant      = "failed to seed metadata slot %s: %w"
	liveInspectFailureTemplateConstant   = "failed to inspect live metadata link: %w"
	linkReplaceFailureTemplateConstant   = "failed to replace live metadata link: %w"
	relocateCheckFailureTemplateConst    = "failed to determine working copy location: %w"
	strayScanFailureTemplateConstant     = "failed to scan %s for stray metadata: %w"
	slotConflictDetailTemplateConstant   = "%w: %s holds metadata while a real %s directory exists in the worktree"
	unsafeSlotCharacterSetConstant       = "/\\:"
	unsafeSlotReplacementConstant        = "_"
)

// ErrFileSystemNotConfigured indicates the linker was constructed without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// ErrUpdaterNotConfigured indicates the linker was constructed without an svn updater.
var ErrUpdaterNotConfigured = errors.New(updaterMissingMessageConstant)

// ErrWorktreePathRequired indicates an empty worktree path was supplied.
var ErrWorktreePathRequired = errors.New(worktreePathMissingMessageConstant)

// ErrGitDirPathRequired indicates an empty git directory path was supplied.
var ErrGitDirPathRequired = errors.New(gitDirPathMissingMessageConstant)

// ErrBranchRefRequired indicates an empty branch ref was supplied.
var ErrBranchRefRequired = errors.New(branchRefMissingMessageConstant)

// ErrSlotOccupied indicates both a populated slot and a real metadata directory exist.
var ErrSlotOccupied = errors.New(slotOccupiedMessageConstant)

// Updater exposes the svn operations the linker needs to re-point a working copy.
type Updater interface {
	URL(executionContext context.Context) (string, error)
	CheckoutEmpty(executionContext context.Context, targetURL string, destinationPath string) error
	Relocate(executionContext context.Context, targetURL string) error
	Cleanup(executionContext context.Context) error
	UpdateToRevision(executionContext context.Context, revision int64) error
	RevertAll(executionContext context.Context) error
}

// Linker maintains the metadata slot arena and the live metadata link.
type Linker struct {
	fileSystem   bridge.FileSystem
	updater      Updater
	worktreePath string
	gitDirPath   string
}

// NewLinker constructs a Linker validating its collaborators.
func NewLinker(fileSystem bridge.FileSystem, updater Updater, worktreePath string, gitDirPath string) (*Linker, error) {
	if fileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}
	if updater == nil {
		return nil, ErrUpdaterNotConfigured
	}
	if len(strings.TrimSpace(worktreePath)) == 0 {
		return nil, ErrWorktreePathRequired
	}
	if len(strings.TrimSpace(gitDirPath)) == 0 {
		return nil, ErrGitDirPathRequired
	}
	return &Linker{fileSystem: fileSystem, updater: updater, worktreePath: worktreePath, gitDirPath: gitDirPath}, nil
}

// SlotName derives the deterministic storage slot name for a branch ref.
func SlotName(branchRef string) string {
	digest := sha256.Sum256([]byte(branchRef))
	sanitized := branchRef
	for _, unsafeCharacter := range unsafeSlotCharacterSetConstant {
		sanitized = strings.ReplaceAll(sanitized, string(unsafeCharacter), unsafeSlotReplacementConstant)
	}
	return fmt.Sprintf(slotNameTemplateConstant, sanitized, hex.EncodeToString(digest[:])[:slotDigestLengthConstant])
}

// StorageArena returns the directory holding every metadata slot.
func (linker *Linker) StorageArena() string {
	return filepath.Join(linker.gitDirPath, bridge.ReservedStorageDirectoryNameConstant, storageSubdirectoryNameConstant)
}

// StorageDirFor returns the slot path for a branch ref, creating it on first use.
func (linker *Linker) StorageDirFor(branchRef string) (string, error) {
	if len(strings.TrimSpace(branchRef)) == 0 {
		return "", ErrBranchRefRequired
	}
	slotPath := filepath.Join(linker.StorageArena(), SlotName(branchRef))
	if makeError := linker.fileSystem.MkdirAll(slotPath, storagePermissionsConstant); makeError != nil {
		return "", fmt.Errorf(slotCreateFailureTemplateConstant, branchRef, makeError)
	}
	return slotPath, nil
}

// Activate re-points the worktree's live metadata link at the branch's slot.
// The link is replaced atomically: a temporary link is created and renamed
// over the live name, so a reader never observes a missing link.
//
// A real metadata directory found at the live name is adopted into the slot
// when the slot is still empty; this happens once after the initial checkout.
func (linker *Linker) Activate(branchRef string) error {
	if len(strings.TrimSpace(branchRef)) == 0 {
		return ErrBranchRefRequired
	}

	slotPath := filepath.Join(linker.StorageArena(), SlotName(branchRef))
	livePath := filepath.Join(linker.worktreePath, liveMetadataNameConstant)

	liveInfo, liveError := linker.fileSystem.Lstat(livePath)
	if liveError != nil && !errors.Is(liveError, fs.ErrNotExist) {
		return fmt.Errorf(liveInspectFailureTemplateConstant, liveError)
	}

	if liveError == nil && liveInfo.Mode()&fs.ModeSymlink == 0 {
		if _, slotError := linker.fileSystem.Stat(slotPath); slotError == nil {
			return fmt.Errorf(slotConflictDetailTemplateConstant, ErrSlotOccupied, slotPath, liveMetadataNameConstant)
		}
		if makeError := linker.fileSystem.MkdirAll(filepath.Dir(slotPath), storagePermissionsConstant); makeError != nil {
			return fmt.Errorf(slotCreateFailureTemplateConstant, branchRef, makeError)
		}
		if adoptError := linker.fileSystem.Rename(livePath, slotPath); adoptError != nil {
			return fmt.Errorf(adoptFailureTemplateConstant, slotPath, adoptError)
		}
	}

	if _, slotError := linker.StorageDirFor(branchRef); slotError != nil {
		return slotError
	}

	temporaryPath := filepath.Join(linker.worktreePath, temporaryLinkNameConstant)
	if removeError := linker.fileSystem.Remove(temporaryPath); removeError != nil && !errors.Is(removeError, fs.ErrNotExist) {
		return fmt.Errorf(linkReplaceFailureTemplateConstant, removeError)
	}
	if linkError := linker.fileSystem.Symlink(slotPath, temporaryPath); linkError != nil {
		return fmt.Errorf(linkReplaceFailureTemplateConstant, linkError)
	}
	if renameError := linker.fileSystem.Rename(temporaryPath, livePath); renameError != nil {
		return fmt.Errorf(linkReplaceFailureTemplateConstant, renameError)
	}
	return nil
}

// ActiveSlot reports the slot the live metadata link currently targets.
func (linker *Linker) ActiveSlot() (string, error) {
	livePath := filepath.Join(linker.worktreePath, liveMetadataNameConstant)
	target, readError := linker.fileSystem.Readlink(livePath)
	if readError != nil {
		return "", fmt.Errorf(liveInspectFailureTemplateConstant, readError)
	}
	return target, nil
}

// UpdateToRevision brings the live working copy to the marker coordinates.
// A never-used slot is seeded with an empty-depth checkout first, the working
// copy is relocated when its recorded URL differs from the marker URL, and a
// cleanup releases any locks an interrupted run left behind before the update.
func (linker *Linker) UpdateToRevision(executionContext context.Context, targetURL string, revision int64) error {
	if seedError := linker.seedActiveSlotIfEmpty(executionContext, targetURL); seedError != nil {
		return seedError
	}
	recordedURL, urlError := linker.updater.URL(executionContext)
	if urlError != nil {
		return fmt.Errorf(relocateCheckFailureTemplateConst, urlError)
	}
	if recordedURL != targetURL {
		if relocateError := linker.updater.Relocate(executionContext, targetURL); relocateError != nil {
			return relocateError
		}
	}
	if cleanupError := linker.updater.Cleanup(executionContext); cleanupError != nil {
		return cleanupError
	}
	if updateError := linker.updater.UpdateToRevision(executionContext, revision); updateError != nil {
		return updateError
	}
	return linker.updater.RevertAll(executionContext)
}

// seedActiveSlotIfEmpty fills a never-used metadata slot for targetURL. A
// fresh slot is an empty directory and svn cannot answer any question about
// it, so an empty-depth checkout is produced in a staging directory beside the
// slot and its metadata moved into place.
func (linker *Linker) seedActiveSlotIfEmpty(executionContext context.Context, targetURL string) error {
	slotPath, activeError := linker.ActiveSlot()
	if activeError != nil {
		return activeError
	}
	slotEntries, readError := linker.fileSystem.ReadDir(slotPath)
	if readError != nil {
		return fmt.Errorf(slotSeedFailureTemplateConstant, slotPath, readError)
	}
	if len(slotEntries) > 0 {
		return nil
	}

	stagingPath := slotPath + seedStagingSuffixConstant
	if makeError := linker.fileSystem.MkdirAll(stagingPath, storagePermissionsConstant); makeError != nil {
		return fmt.Errorf(slotSeedFailureTemplateConstant, slotPath, makeError)
	}
	if checkoutError := linker.updater.CheckoutEmpty(executionContext, targetURL, stagingPath); checkoutError != nil {
		return checkoutError
	}
	if removeError := linker.fileSystem.Remove(slotPath); removeError != nil {
		return fmt.Errorf(slotSeedFailureTemplateConstant, slotPath, removeError)
	}
	if renameError := linker.fileSystem.Rename(filepath.Join(stagingPath, liveMetadataNameConstant), slotPath); renameError != nil {
		return fmt.Errorf(slotSeedFailureTemplateConstant, slotPath, renameError)
	}
	if removeError := linker.fileSystem.Remove(stagingPath); removeError != nil {
		return fmt.Errorf(slotSeedFailureTemplateConstant, slotPath, removeError)
	}
	return nil
}

// ScanForStrayMetadata walks the worktree and reports nested metadata
// directories other than the root's live link. Stray directories appear when
// an earlier switch was interrupted mid-update and silently corrupt later
// centralized commits if left in place.
func (linker *Linker) ScanForStrayMetadata() ([]string, error) {
	strayPaths := []string{}
	walkError := linker.walkForStrays(linker.worktreePath, true, &strayPaths)
	if walkError != nil {
		return nil, walkError
	}
	sort.Strings(strayPaths)
	return strayPaths, nil
}

func (linker *Linker) walkForStrays(directoryPath string, isRoot bool, strayPaths *[]string) error {
	entries, readError := linker.fileSystem.ReadDir(directoryPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) || errors.Is(readError, os.ErrPermission) {
			return nil
		}
		return fmt.Errorf(strayScanFailureTemplateConstant, directoryPath, readError)
	}

	for _, entry := range entries {
		entryPath := filepath.Join(directoryPath, entry.Name())
		if entry.Name() == gitMetadataNameConstant {
			continue
		}
		if entry.Name() == liveMetadataNameConstant {
			if isRoot {
				continue
			}
			*strayPaths = append(*strayPaths, entryPath)
			continue
		}
		if entry.IsDir() {
			if walkError := linker.walkForStrays(entryPath, false, strayPaths); walkError != nil {
				return walkError
			}
		}
	}
	return nil
}
