package syncer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ggitproject/ggit/internal/bridge"
	"github.com/ggitproject/ggit/internal/syncer"
)

const validConfigurationConstant = "[svn-remote \"svn\"]\n" +
	"\turl = file:///srv/svn\n" +
	"\tfetch = trunk/rtos:trunk\n" +
	"\tfetch = branches/ap/trunk/rtos:aptrunk\n"

type stubRepository struct {
	configurationText string
	configurationErr  error
	configValues      map[string][]string
	fetchCalls        []string
}

func newStubRepository() *stubRepository {
	return &stubRepository{configurationText: validConfigurationConstant, configValues: map[string][]string{}}
}

func (repository *stubRepository) ShowBlob(context.Context, string, string) (string, error) {
	return repository.configurationText, repository.configurationErr
}

func (repository *stubRepository) ConfigValues(_ context.Context, key string) ([]string, error) {
	return repository.configValues[key], nil
}

func (repository *stubRepository) ConfigSet(_ context.Context, key string, value string) error {
	repository.configValues[key] = []string{value}
	return nil
}

func (repository *stubRepository) ConfigAdd(_ context.Context, key string, value string) error {
	repository.configValues[key] = append(repository.configValues[key], value)
	return nil
}

func (repository *stubRepository) SVNFetch(_ context.Context, revisionRange string) error {
	repository.fetchCalls = append(repository.fetchCalls, revisionRange)
	return nil
}

func newEngine(testInstance *testing.T, repository *stubRepository) *syncer.Engine {
	engine, creationError := syncer.NewEngine(syncer.EngineDependencies{Logger: zap.NewNop(), Repository: repository})
	require.NoError(testInstance, creationError)
	return engine
}

func TestNewEngineValidatesDependencies(testInstance *testing.T) {
	_, creationError := syncer.NewEngine(syncer.EngineDependencies{})
	require.ErrorIs(testInstance, creationError, syncer.ErrGitRepositoryNotConfigured)
}

func TestSyncAddsMissingFetchConfiguration(testInstance *testing.T) {
	repository := newStubRepository()
	engine := newEngine(testInstance, repository)

	result, syncError := engine.Sync(context.Background(), "")
	require.NoError(testInstance, syncError)
	require.Equal(testInstance, 3, result.ConfigurationMutations)
	require.Equal(testInstance, []string{"svn"}, result.Remotes)

	require.Equal(testInstance, []string{"file:///srv/svn"}, repository.configValues["svn-remote.svn.url"])
	require.Equal(
		testInstance,
		[]string{
			"trunk/rtos:refs/remotes/git-svn/trunk",
			"branches/ap/trunk/rtos:refs/remotes/git-svn/aptrunk",
		},
		repository.configValues["svn-remote.svn.fetch"],
	)
	require.Equal(testInstance, []string{""}, repository.fetchCalls)
}

func TestSyncIsIdempotentForUnchangedConfiguration(testInstance *testing.T) {
	repository := newStubRepository()
	engine := newEngine(testInstance, repository)

	firstResult, firstError := engine.Sync(context.Background(), "")
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, 3, firstResult.ConfigurationMutations)

	secondResult, secondError := engine.Sync(context.Background(), "")
	require.NoError(testInstance, secondError)
	require.Zero(testInstance, secondResult.ConfigurationMutations)
	require.Len(testInstance, repository.fetchCalls, 2)
}

func TestSyncForwardsTheRevisionRange(testInstance *testing.T) {
	repository := newStubRepository()
	engine := newEngine(testInstance, repository)

	_, syncError := engine.Sync(context.Background(), "0:HEAD")
	require.NoError(testInstance, syncError)
	require.Equal(testInstance, []string{"0:HEAD"}, repository.fetchCalls)
}

func TestSyncClassifiesConfigurationFailures(testInstance *testing.T) {
	repository := newStubRepository()
	repository.configurationErr = errors.New("fatal: invalid object name 'ggit-config'")
	engine := newEngine(testInstance, repository)

	_, syncError := engine.Sync(context.Background(), "")
	failureKind, kindFound := bridge.KindOf(syncError)
	require.True(testInstance, kindFound)
	require.Equal(testInstance, bridge.FailureKindNotABridgeRepository, failureKind)

	repository.configurationErr = nil
	repository.configurationText = "[svn-remote \"svn\"]\n\tfetch = a:b\n"
	_, syncError = engine.Sync(context.Background(), "")
	failureKind, kindFound = bridge.KindOf(syncError)
	require.True(testInstance, kindFound)
	require.Equal(testInstance, bridge.FailureKindMalformedConfig, failureKind)
}
