package errors

type ExitCode int

const (
	// Generic failure not covered by a more specific code.
	GenericFailureExitCode ExitCode = 1

	// Configuration or flag parsing failed.
	ConfigFailureExitCode ExitCode = 70

	// The persistent store could not be opened or locked.
	StoreOpenFailureExitCode ExitCode = 80

	// Snapshotting inputs or outputs failed.
	SnapshotFailureExitCode ExitCode = 90

	// Reading or writing task history failed.
	HistoryFailureExitCode ExitCode = 100

	// The wrapped command could not be started.
	CouldNotExecExitCode ExitCode = 110

	// The wrapped command ran and exited non-zero. The command's own code is used when known.
	CommandFailureExitCode ExitCode = 120
)
