package execshell

// CommandEventObserver is notified as external commands run. The executor
// invokes observers inline, so implementations must return quickly.
type CommandEventObserver interface {
	// CommandStarted fires immediately before the runner receives the command.
	CommandStarted(command ShellCommand)
	// CommandFinished fires exactly once per started command. failure is
	// non-nil only when the command could not be run at all; a non-zero exit
	// still counts as finished and arrives through result.
	CommandFinished(command ShellCommand, result ExecutionResult, failure error)
}

type discardingObserver struct{}

func (discardingObserver) CommandStarted(ShellCommand) {}

func (discardingObserver) CommandFinished(ShellCommand, ExecutionResult, error) {}
