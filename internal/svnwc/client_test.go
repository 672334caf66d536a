package svnwc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ggitproject/ggit/internal/execshell"
	"github.com/ggitproject/ggit/internal/svnwc"
)

const testWorkingCopyPathConstant = "/workspace/rtos"

type scriptedResponse struct {
	result execshell.ExecutionResult
	err    error
}

type stubSVNExecutor struct {
	recorded  []execshell.CommandDetails
	responses []scriptedResponse
}

func (executor *stubSVNExecutor) ExecuteSVN(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.recorded = append(executor.recorded, details)
	if len(executor.responses) == 0 {
		return execshell.ExecutionResult{}, nil
	}
	response := executor.responses[0]
	executor.responses = executor.responses[1:]
	return response.result, response.err
}

func exitFailure(standardError string) error {
	return execshell.CommandFailedError{
		Command: execshell.ShellCommand{Name: execshell.CommandSVN},
		Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: standardError},
	}
}

func newClient(testInstance *testing.T, executor *stubSVNExecutor) *svnwc.Client {
	client, creationError := svnwc.NewClient(executor, testWorkingCopyPathConstant)
	require.NoError(testInstance, creationError)
	return client
}

func TestNewClientValidatesDependencies(testInstance *testing.T) {
	_, creationError := svnwc.NewClient(nil, testWorkingCopyPathConstant)
	require.ErrorIs(testInstance, creationError, svnwc.ErrSVNExecutorNotConfigured)

	_, creationError = svnwc.NewClient(&stubSVNExecutor{}, "")
	require.ErrorIs(testInstance, creationError, svnwc.ErrWorkingCopyPathRequired)
}

func TestUpdateToRevisionBuildsForcedInvocation(testInstance *testing.T) {
	executor := &stubSVNExecutor{}
	client := newClient(testInstance, executor)

	require.NoError(testInstance, client.UpdateToRevision(context.Background(), 274190))

	require.Len(testInstance, executor.recorded, 1)
	require.Equal(
		testInstance,
		[]string{"update", "--force", "--accept", "working", "--set-depth=infinity", "-r", "274190"},
		executor.recorded[0].Arguments,
	)
	require.Equal(testInstance, testWorkingCopyPathConstant, executor.recorded[0].WorkingDirectory)
}

func TestUpdateToRevisionReportsUnavailableRevisions(testInstance *testing.T) {
	executor := &stubSVNExecutor{responses: []scriptedResponse{
		{err: exitFailure("svn: E160006: No such revision 999999")},
		{result: execshell.ExecutionResult{StandardOutput: "file:///srv/svn/trunk/rtos\n"}},
	}}
	client := newClient(testInstance, executor)

	updateError := client.UpdateToRevision(context.Background(), 999999)
	require.Error(testInstance, updateError)

	var unavailable *svnwc.RevisionUnavailableError
	require.ErrorAs(testInstance, updateError, &unavailable)
	require.Equal(testInstance, int64(999999), unavailable.Revision)
	require.Equal(testInstance, "file:///srv/svn/trunk/rtos", unavailable.URL)
}

func TestURLReadsInfoItem(testInstance *testing.T) {
	executor := &stubSVNExecutor{responses: []scriptedResponse{
		{result: execshell.ExecutionResult{StandardOutput: "file:///srv/svn/branches/ap/trunk/rtos\n"}},
	}}
	client := newClient(testInstance, executor)

	workingCopyURL, urlError := client.URL(context.Background())
	require.NoError(testInstance, urlError)
	require.Equal(testInstance, "file:///srv/svn/branches/ap/trunk/rtos", workingCopyURL)
	require.Equal(testInstance, []string{"info", "--show-item", "url"}, executor.recorded[0].Arguments)
}

func TestCheckoutEmptyBuildsDepthEmptyInvocation(testInstance *testing.T) {
	executor := &stubSVNExecutor{}
	client := newClient(testInstance, executor)

	checkoutError := client.CheckoutEmpty(context.Background(), "file:///srv/svn/trunk/rtos", "/workspace/rtos/.git/ggit/svn/trunk-abc")
	require.NoError(testInstance, checkoutError)

	require.Len(testInstance, executor.recorded, 1)
	require.Equal(
		testInstance,
		[]string{"checkout", "--depth=empty", "file:///srv/svn/trunk/rtos", "/workspace/rtos/.git/ggit/svn/trunk-abc"},
		executor.recorded[0].Arguments,
	)
}

func TestMaintenanceCommands(testInstance *testing.T) {
	executor := &stubSVNExecutor{}
	client := newClient(testInstance, executor)

	require.NoError(testInstance, client.RevertAll(context.Background()))
	require.NoError(testInstance, client.Cleanup(context.Background()))
	require.NoError(testInstance, client.Relocate(context.Background(), "file:///srv/svn/trunk/rtos"))

	require.Equal(testInstance, []string{"revert", "-R", "."}, executor.recorded[0].Arguments)
	require.Equal(testInstance, []string{"cleanup"}, executor.recorded[1].Arguments)
	require.Equal(testInstance, []string{"relocate", "file:///srv/svn/trunk/rtos"}, executor.recorded[2].Arguments)
}

func TestIgnorePropertiesTolerateMissingValues(testInstance *testing.T) {
	executor := &stubSVNExecutor{responses: []scriptedResponse{
		{result: execshell.ExecutionResult{StandardOutput: "build\n*.o\n"}},
		{err: exitFailure("svn: warning: W200017: Property 'svn:global-ignores' not found")},
	}}
	client := newClient(testInstance, executor)

	ignoreValues, ignoreError := client.IgnoreProperty(context.Background())
	require.NoError(testInstance, ignoreError)
	require.Equal(testInstance, []string{"build", "*.o"}, ignoreValues)

	globalValues, globalError := client.GlobalIgnoresProperty(context.Background())
	require.NoError(testInstance, globalError)
	require.Empty(testInstance, globalValues)
}
