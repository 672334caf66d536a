package execshell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	gitToolNameConstant                        = "git"
	svnToolNameConstant                        = "svn"
	loggerNotConfiguredMessageConstant         = "logger not configured"
	commandRunnerNotConfiguredMessageConstant  = "command runner not configured"
	commandFailureTemplateConstant             = "%s exited with code %d%s"
	commandExecutionFailureTemplateConstant    = "%s could not be executed: %v"
	standardErrorDetailTemplateConstant        = ": %s"
	commandStartedLogMessageConstant           = "external command started"
	commandCompletedLogMessageConstant         = "external command completed"
	commandFailedLogMessageConstant            = "external command failed"
	logFieldCommandNameConstant                = "command"
	logFieldCommandArgumentsConstant           = "arguments"
	logFieldWorkingDirectoryConstant           = "working_directory"
	logFieldExitCodeConstant                   = "exit_code"
	logFieldStandardErrorConstant              = "standard_error"
)

// ErrLoggerNotConfigured indicates the executor was constructed without a logger.
var ErrLoggerNotConfigured = errors.New(loggerNotConfiguredMessageConstant)

// ErrCommandRunnerNotConfigured indicates the executor was constructed without a runner.
var ErrCommandRunnerNotConfigured = errors.New(commandRunnerNotConfiguredMessageConstant)

// CommandName identifies a supported executable.
type CommandName string

// Supported executables.
const (
	CommandGit CommandName = CommandName(gitToolNameConstant)
	CommandSVN CommandName = CommandName(svnToolNameConstant)
)

// CommandDetails describes a single invocation of an external tool.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand combines a CommandName with invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable outputs of a completed command.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes shell commands and reports their results.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// CommandFailedError reports a command that ran to completion with a non-zero exit code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

// Error describes the failed command including trailing standard error output.
func (failure CommandFailedError) Error() string {
	standardErrorDetail := ""
	trimmedStandardError := strings.TrimSpace(failure.Result.StandardError)
	if len(trimmedStandardError) > 0 {
		standardErrorDetail = fmt.Sprintf(standardErrorDetailTemplateConstant, trimmedStandardError)
	}
	return fmt.Sprintf(commandFailureTemplateConstant, describeCommand(failure.Command), failure.Result.ExitCode, standardErrorDetail)
}

// CommandExecutionError reports a command that could not be executed at all.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

// Error describes the execution failure.
func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf(commandExecutionFailureTemplateConstant, describeCommand(failure.Command), failure.Cause)
}

// Unwrap exposes the underlying cause.
func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}

// ShellExecutor coordinates command execution, logging, and event observation.
type ShellExecutor struct {
	logger   *zap.Logger
	runner   CommandRunner
	observer CommandEventObserver
}

// NewShellExecutor constructs an executor validating its collaborators.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{logger: logger, runner: runner, observer: discardingObserver{}}, nil
}

// SetCommandEventObserver replaces the observer notified about command lifecycle events.
func (executor *ShellExecutor) SetCommandEventObserver(observer CommandEventObserver) {
	if observer == nil {
		executor.observer = discardingObserver{}
		return
	}
	executor.observer = observer
}

// ExecuteGit runs git with the provided details.
func (executor *ShellExecutor) ExecuteGit(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandGit, Details: details})
}

// ExecuteSVN runs svn with the provided details.
func (executor *ShellExecutor) ExecuteSVN(executionContext context.Context, details CommandDetails) (ExecutionResult, error) {
	return executor.Execute(executionContext, ShellCommand{Name: CommandSVN, Details: details})
}

// Execute runs the supplied command, logging start and completion.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	executor.logger.Debug(
		commandStartedLogMessageConstant,
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Strings(logFieldCommandArgumentsConstant, command.Details.Arguments),
		zap.String(logFieldWorkingDirectoryConstant, command.Details.WorkingDirectory),
	)
	executor.observer.CommandStarted(command)

	executionResult, runError := executor.runner.Run(executionContext, command)
	if runError != nil {
		executor.logger.Error(
			commandFailedLogMessageConstant,
			zap.String(logFieldCommandNameConstant, string(command.Name)),
			zap.Error(runError),
		)
		executor.observer.CommandFinished(command, ExecutionResult{}, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandFinished(command, executionResult, nil)

	if executionResult.ExitCode != 0 {
		executor.logger.Debug(
			commandCompletedLogMessageConstant,
			zap.String(logFieldCommandNameConstant, string(command.Name)),
			zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
			zap.String(logFieldStandardErrorConstant, strings.TrimSpace(executionResult.StandardError)),
		)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: executionResult}
	}

	executor.logger.Debug(
		commandCompletedLogMessageConstant,
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Int(logFieldExitCodeConstant, executionResult.ExitCode),
	)
	return executionResult, nil
}

func describeCommand(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = commandLabel + " " + strings.Join(command.Details.Arguments, " ")
	}
	return commandLabel
}
