package workingcopy_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/workingcopy"
)

const (
	testBranchRefConstant      = "aptrunk"
	testOtherBranchRefConstant = "trunk"
	testMarkerURLConstant      = "file:///srv/svn/branches/ap/trunk/rtos"
)

type stubUpdater struct {
	recordedCalls []string
	currentURL    string
	updateError   error
}

func (updater *stubUpdater) URL(context.Context) (string, error) {
	updater.recordedCalls = append(updater.recordedCalls, "url")
	return updater.currentURL, nil
}

func (updater *stubUpdater) CheckoutEmpty(_ context.Context, targetURL string, destinationPath string) error {
	updater.recordedCalls = append(updater.recordedCalls, "checkout-empty "+targetURL)
	metadataPath := filepath.Join(destinationPath, ".svn")
	if makeError := os.MkdirAll(metadataPath, 0o755); makeError != nil {
		return makeError
	}
	updater.currentURL = targetURL
	return os.WriteFile(filepath.Join(metadataPath, "wc.db"), []byte("seeded"), 0o644)
}

func (updater *stubUpdater) Relocate(_ context.Context, targetURL string) error {
	updater.recordedCalls = append(updater.recordedCalls, "relocate "+targetURL)
	updater.currentURL = targetURL
	return nil
}

func (updater *stubUpdater) Cleanup(context.Context) error {
	updater.recordedCalls = append(updater.recordedCalls, "cleanup")
	return nil
}

func (updater *stubUpdater) UpdateToRevision(_ context.Context, revision int64) error {
	updater.recordedCalls = append(updater.recordedCalls, "update")
	return updater.updateError
}

func (updater *stubUpdater) RevertAll(context.Context) error {
	updater.recordedCalls = append(updater.recordedCalls, "revert")
	return nil
}

func newTestLinker(testInstance *testing.T) (*workingcopy.Linker, string, string, *stubUpdater) {
	worktreePath := testInstance.TempDir()
	gitDirPath := filepath.Join(worktreePath, ".git")
	require.NoError(testInstance, os.MkdirAll(gitDirPath, 0o755))

	updater := &stubUpdater{currentURL: testMarkerURLConstant}
	linker, creationError := workingcopy.NewLinker(bridge.OSFileSystem{}, updater, worktreePath, gitDirPath)
	require.NoError(testInstance, creationError)
	return linker, worktreePath, gitDirPath, updater
}

func TestNewLinkerValidatesDependencies(testInstance *testing.T) {
	_, creationError := workingcopy.NewLinker(nil, &stubUpdater{}, "/w", "/w/.git")
	require.ErrorIs(testInstance, creationError, workingcopy.ErrFileSystemNotConfigured)

	_, creationError = workingcopy.NewLinker(bridge.OSFileSystem{}, nil, "/w", "/w/.git")
	require.ErrorIs(testInstance, creationError, workingcopy.ErrUpdaterNotConfigured)

	_, creationError = workingcopy.NewLinker(bridge.OSFileSystem{}, &stubUpdater{}, " ", "/w/.git")
	require.ErrorIs(testInstance, creationError, workingcopy.ErrWorktreePathRequired)

	_, creationError = workingcopy.NewLinker(bridge.OSFileSystem{}, &stubUpdater{}, "/w", "")
	require.ErrorIs(testInstance, creationError, workingcopy.ErrGitDirPathRequired)
}

func TestSlotNameIsDeterministicAndSanitized(testInstance *testing.T) {
	require.Equal(testInstance, workingcopy.SlotName("feature/x"), workingcopy.SlotName("feature/x"))
	require.NotEqual(testInstance, workingcopy.SlotName("feature/x"), workingcopy.SlotName("feature/y"))
	require.NotContains(testInstance, workingcopy.SlotName("feature/x"), "/")
}

func TestFirstActivationCreatesOneSlotAndOneLink(testInstance *testing.T) {
	linker, worktreePath, _, _ := newTestLinker(testInstance)

	require.NoError(testInstance, linker.Activate(testBranchRefConstant))

	arenaEntries, readError := os.ReadDir(linker.StorageArena())
	require.NoError(testInstance, readError)
	require.Len(testInstance, arenaEntries, 1)

	livePath := filepath.Join(worktreePath, ".svn")
	liveInfo, lstatError := os.Lstat(livePath)
	require.NoError(testInstance, lstatError)
	require.NotZero(testInstance, liveInfo.Mode()&os.ModeSymlink)

	activeSlot, activeError := linker.ActiveSlot()
	require.NoError(testInstance, activeError)
	require.Equal(testInstance, filepath.Join(linker.StorageArena(), workingcopy.SlotName(testBranchRefConstant)), activeSlot)
}

func TestReactivationReusesTheExistingSlot(testInstance *testing.T) {
	linker, _, _, _ := newTestLinker(testInstance)

	require.NoError(testInstance, linker.Activate(testBranchRefConstant))
	firstSlot, firstError := linker.ActiveSlot()
	require.NoError(testInstance, firstError)

	require.NoError(testInstance, linker.Activate(testOtherBranchRefConstant))
	require.NoError(testInstance, linker.Activate(testBranchRefConstant))

	secondSlot, secondError := linker.ActiveSlot()
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, firstSlot, secondSlot)

	arenaEntries, readError := os.ReadDir(linker.StorageArena())
	require.NoError(testInstance, readError)
	require.Len(testInstance, arenaEntries, 2)
}

func TestActivateAdoptsARealMetadataDirectory(testInstance *testing.T) {
	linker, worktreePath, _, _ := newTestLinker(testInstance)

	livePath := filepath.Join(worktreePath, ".svn")
	require.NoError(testInstance, os.MkdirAll(livePath, 0o755))
	sentinelPath := filepath.Join(livePath, "wc.db")
	require.NoError(testInstance, os.WriteFile(sentinelPath, []byte("metadata"), 0o644))

	require.NoError(testInstance, linker.Activate(testBranchRefConstant))

	activeSlot, activeError := linker.ActiveSlot()
	require.NoError(testInstance, activeError)
	adoptedContents, readError := os.ReadFile(filepath.Join(activeSlot, "wc.db"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "metadata", string(adoptedContents))
}

func TestActivateRepairsALinkPointingAtTheWrongSlot(testInstance *testing.T) {
	linker, worktreePath, _, _ := newTestLinker(testInstance)

	require.NoError(testInstance, linker.Activate(testBranchRefConstant))
	expectedSlot, slotError := linker.ActiveSlot()
	require.NoError(testInstance, slotError)

	// A run that stopped between re-linking and the update leaves the live
	// link at another branch's slot.
	strandedSlot := filepath.Join(linker.StorageArena(), workingcopy.SlotName(testOtherBranchRefConstant))
	livePath := filepath.Join(worktreePath, ".svn")
	require.NoError(testInstance, os.Remove(livePath))
	require.NoError(testInstance, os.Symlink(strandedSlot, livePath))

	require.NoError(testInstance, linker.Activate(testBranchRefConstant))
	repairedSlot, repairedError := linker.ActiveSlot()
	require.NoError(testInstance, repairedError)
	require.Equal(testInstance, expectedSlot, repairedSlot)
}

func TestActivateRejectsConflictingMetadata(testInstance *testing.T) {
	linker, worktreePath, _, _ := newTestLinker(testInstance)

	require.NoError(testInstance, linker.Activate(testBranchRefConstant))

	livePath := filepath.Join(worktreePath, ".svn")
	require.NoError(testInstance, os.Remove(livePath))
	require.NoError(testInstance, os.MkdirAll(livePath, 0o755))

	activationError := linker.Activate(testBranchRefConstant)
	require.ErrorIs(testInstance, activationError, workingcopy.ErrSlotOccupied)
}

func populateActiveSlot(testInstance *testing.T, linker *workingcopy.Linker) {
	activeSlot, activeError := linker.ActiveSlot()
	require.NoError(testInstance, activeError)
	require.NoError(testInstance, os.WriteFile(filepath.Join(activeSlot, "wc.db"), []byte("metadata"), 0o644))
}

func TestUpdateToRevisionCleansUpBeforeUpdating(testInstance *testing.T) {
	linker, _, _, updater := newTestLinker(testInstance)
	require.NoError(testInstance, linker.Activate(testBranchRefConstant))
	populateActiveSlot(testInstance, linker)

	require.NoError(testInstance, linker.UpdateToRevision(context.Background(), testMarkerURLConstant, 42))
	require.Equal(testInstance, []string{"url", "cleanup", "update", "revert"}, updater.recordedCalls)
}

func TestUpdateToRevisionRelocatesOnlyOnURLChange(testInstance *testing.T) {
	linker, _, _, updater := newTestLinker(testInstance)
	require.NoError(testInstance, linker.Activate(testBranchRefConstant))
	populateActiveSlot(testInstance, linker)

	require.NoError(testInstance, linker.UpdateToRevision(context.Background(), testMarkerURLConstant, 42))
	require.Equal(testInstance, []string{"url", "cleanup", "update", "revert"}, updater.recordedCalls)

	updater.recordedCalls = nil
	otherURL := "file:///srv/svn/trunk/rtos"
	require.NoError(testInstance, linker.UpdateToRevision(context.Background(), otherURL, 42))
	require.Equal(testInstance, []string{"url", "relocate " + otherURL, "cleanup", "update", "revert"}, updater.recordedCalls)
}

func TestUpdateToRevisionSeedsAFreshSlot(testInstance *testing.T) {
	linker, _, _, updater := newTestLinker(testInstance)
	updater.currentURL = ""
	require.NoError(testInstance, linker.Activate(testBranchRefConstant))

	require.NoError(testInstance, linker.UpdateToRevision(context.Background(), testMarkerURLConstant, 42))
	require.Equal(
		testInstance,
		[]string{"checkout-empty " + testMarkerURLConstant, "url", "cleanup", "update", "revert"},
		updater.recordedCalls,
	)

	activeSlot, activeError := linker.ActiveSlot()
	require.NoError(testInstance, activeError)
	seededContents, readError := os.ReadFile(filepath.Join(activeSlot, "wc.db"))
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "seeded", string(seededContents))

	arenaEntries, arenaError := os.ReadDir(linker.StorageArena())
	require.NoError(testInstance, arenaError)
	require.Len(testInstance, arenaEntries, 1)

	updater.recordedCalls = nil
	require.NoError(testInstance, linker.UpdateToRevision(context.Background(), testMarkerURLConstant, 43))
	require.Equal(testInstance, []string{"url", "cleanup", "update", "revert"}, updater.recordedCalls)
}

func TestScanForStrayMetadataFindsNestedDirectories(testInstance *testing.T) {
	linker, worktreePath, _, _ := newTestLinker(testInstance)

	require.NoError(testInstance, linker.Activate(testBranchRefConstant))
	nestedPath := filepath.Join(worktreePath, "drivers", "net", ".svn")
	require.NoError(testInstance, os.MkdirAll(nestedPath, 0o755))

	strayPaths, scanError := linker.ScanForStrayMetadata()
	require.NoError(testInstance, scanError)
	require.Equal(testInstance, []string{nestedPath}, strayPaths)
}

func TestScanForStrayMetadataIgnoresTheRootLink(testInstance *testing.T) {
	linker, _, _, _ := newTestLinker(testInstance)

	require.NoError(testInstance, linker.Activate(testBranchRefConstant))

	strayPaths, scanError := linker.ScanForStrayMetadata()
	require.NoError(testInstance, scanError)
	require.Empty(testInstance, strayPaths)
}
