package execshell

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
)

// OSCommandRunner runs commands through os/exec, capturing both output
// streams in full before returning.
type OSCommandRunner struct{}

// NewOSCommandRunner constructs a runner backed by the operating system.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{}
}

// Run executes the command and reports its captured output. A non-zero exit
// is not an error at this layer; it comes back as an ExecutionResult carrying
// the exit code. Only a process that could not run at all yields an error.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	process := exec.CommandContext(executionContext, string(command.Name), command.Details.Arguments...)
	process.Dir = command.Details.WorkingDirectory
	process.Env = mergedEnvironment(command.Details.EnvironmentVariables)
	if len(command.Details.StandardInput) > 0 {
		process.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	var standardOutput strings.Builder
	var standardError strings.Builder
	process.Stdout = &standardOutput
	process.Stderr = &standardError

	runError := process.Run()
	capturedResult := ExecutionResult{
		StandardOutput: standardOutput.String(),
		StandardError:  standardError.String(),
	}

	var exitFailure *exec.ExitError
	if errors.As(runError, &exitFailure) {
		capturedResult.ExitCode = exitFailure.ExitCode()
		return capturedResult, nil
	}
	if runError != nil {
		return ExecutionResult{}, runError
	}
	return capturedResult, nil
}

// mergedEnvironment layers command-specific variables over the inherited
// environment. A nil result keeps os/exec's default inheritance.
func mergedEnvironment(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}
	environment := os.Environ()
	for variableName, variableValue := range overrides {
		environment = append(environment, variableName+"="+variableValue)
	}
	return environment
}
