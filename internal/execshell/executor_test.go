package execshell_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ggitproject/ggit/internal/execshell"
)

const (
	testExecutionSuccessCaseNameConstant     = "success"
	testExecutionFailureCaseNameConstant     = "failure_exit_code"
	testExecutionRunnerErrorCaseNameConstant = "runner_error"
	testCommandArgumentConstant              = "--version"
	testWorkingDirectoryConstant             = "."
	testStandardErrorOutputConstant          = "failure"
)

type recordingCommandRunner struct {
	executionResult  execshell.ExecutionResult
	executionError   error
	recordedCommands []execshell.ShellCommand
}

func (runner *recordingCommandRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.recordedCommands = append(runner.recordedCommands, command)
	return runner.executionResult, runner.executionError
}

func TestShellExecutorInitializationValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		runner        execshell.CommandRunner
		expectError   error
		expectSuccess bool
	}{
		{
			name:        "logger_validation",
			logger:      nil,
			runner:      &recordingCommandRunner{},
			expectError: execshell.ErrLoggerNotConfigured,
		},
		{
			name:        "runner_validation",
			logger:      zap.NewNop(),
			runner:      nil,
			expectError: execshell.ErrCommandRunnerNotConfigured,
		},
		{
			name:          "successful_initialization",
			logger:        zap.NewNop(),
			runner:        &recordingCommandRunner{},
			expectSuccess: true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor, creationError := execshell.NewShellExecutor(testCase.logger, testCase.runner)
			if testCase.expectSuccess {
				require.NoError(testInstance, creationError)
				require.NotNil(testInstance, executor)
			} else {
				require.Error(testInstance, creationError)
				require.ErrorIs(testInstance, creationError, testCase.expectError)
			}
		})
	}
}

func TestShellExecutorExecuteBehavior(testInstance *testing.T) {
	testCases := []struct {
		name             string
		runnerResult     execshell.ExecutionResult
		runnerError      error
		expectErrorType  any
		expectedLogCount int
	}{
		{
			name: testExecutionSuccessCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardOutput: "ok",
				ExitCode:       0,
			},
			expectedLogCount: 2,
		},
		{
			name: testExecutionFailureCaseNameConstant,
			runnerResult: execshell.ExecutionResult{
				StandardError: testStandardErrorOutputConstant,
				ExitCode:      1,
			},
			expectErrorType:  execshell.CommandFailedError{},
			expectedLogCount: 2,
		},
		{
			name:             testExecutionRunnerErrorCaseNameConstant,
			runnerError:      errors.New("runner failure"),
			expectErrorType:  execshell.CommandExecutionError{},
			expectedLogCount: 2,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			observerCore, observerLogs := observer.New(zap.DebugLevel)
			logger := zap.New(observerCore)

			recordingRunner := &recordingCommandRunner{
				executionResult: testCase.runnerResult,
				executionError:  testCase.runnerError,
			}

			shellExecutor, creationError := execshell.NewShellExecutor(logger, recordingRunner)
			require.NoError(testInstance, creationError)

			commandDetails := execshell.CommandDetails{Arguments: []string{testCommandArgumentConstant}, WorkingDirectory: testWorkingDirectoryConstant}
			executionResult, executionError := shellExecutor.ExecuteGit(context.Background(), commandDetails)

			if testCase.expectErrorType != nil {
				require.Error(testInstance, executionError)
				require.IsType(testInstance, testCase.expectErrorType, executionError)
				require.Empty(testInstance, executionResult.StandardOutput)
			} else {
				require.NoError(testInstance, executionError)
				require.Equal(testInstance, testCase.runnerResult.StandardOutput, executionResult.StandardOutput)
			}

			require.Len(testInstance, observerLogs.All(), testCase.expectedLogCount)
		})
	}
}

type recordingEventObserver struct {
	startedCommands  []execshell.ShellCommand
	finishedResults  []execshell.ExecutionResult
	finishedFailures []error
}

func (eventObserver *recordingEventObserver) CommandStarted(command execshell.ShellCommand) {
	eventObserver.startedCommands = append(eventObserver.startedCommands, command)
}

func (eventObserver *recordingEventObserver) CommandFinished(_ execshell.ShellCommand, result execshell.ExecutionResult, failure error) {
	eventObserver.finishedResults = append(eventObserver.finishedResults, result)
	eventObserver.finishedFailures = append(eventObserver.finishedFailures, failure)
}

func TestShellExecutorNotifiesTheCommandEventObserver(testInstance *testing.T) {
	recordingRunner := &recordingCommandRunner{
		executionResult: execshell.ExecutionResult{StandardOutput: "ok"},
	}
	executor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner)
	require.NoError(testInstance, creationError)

	eventObserver := &recordingEventObserver{}
	executor.SetCommandEventObserver(eventObserver)

	_, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{Arguments: []string{testCommandArgumentConstant}})
	require.NoError(testInstance, executionError)
	require.Len(testInstance, eventObserver.startedCommands, 1)
	require.Len(testInstance, eventObserver.finishedResults, 1)
	require.Equal(testInstance, "ok", eventObserver.finishedResults[0].StandardOutput)
	require.NoError(testInstance, eventObserver.finishedFailures[0])

	recordingRunner.executionError = errors.New("runner failure")
	_, executionError = executor.ExecuteGit(context.Background(), execshell.CommandDetails{})
	require.Error(testInstance, executionError)
	require.Len(testInstance, eventObserver.finishedFailures, 2)
	require.Error(testInstance, eventObserver.finishedFailures[1])
}

func TestShellExecutorWrappersSetCommandNames(testInstance *testing.T) {
	testCases := []struct {
		name            string
		invoke          func(executor *execshell.ShellExecutor) error
		expectedCommand execshell.CommandName
	}{
		{
			name: "git_wrapper",
			invoke: func(executor *execshell.ShellExecutor) error {
				_, executionError := executor.ExecuteGit(context.Background(), execshell.CommandDetails{})
				return executionError
			},
			expectedCommand: execshell.CommandGit,
		},
		{
			name: "svn_wrapper",
			invoke: func(executor *execshell.ShellExecutor) error {
				_, executionError := executor.ExecuteSVN(context.Background(), execshell.CommandDetails{})
				return executionError
			},
			expectedCommand: execshell.CommandSVN,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			recordingRunner := &recordingCommandRunner{
				executionResult: execshell.ExecutionResult{ExitCode: 1},
			}

			executor, creationError := execshell.NewShellExecutor(zap.NewNop(), recordingRunner)
			require.NoError(testInstance, creationError)

			executionError := testCase.invoke(executor)
			require.Error(testInstance, executionError)
			require.Len(testInstance, recordingRunner.recordedCommands, 1)
			require.Equal(testInstance, testCase.expectedCommand, recordingRunner.recordedCommands[0].Name)
		})
	}
}
