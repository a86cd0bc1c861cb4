// Package exitcode maps errors to process exit codes so scripts can
// distinguish failure classes without parsing output.
package exitcode

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/venturelab/compass/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// GateLocked indicates a stage was blocked by the gate policy or tier
	GateLocked = 3

	// SynthError indicates a synthesis provider failure
	SynthError = 4

	// AuthError indicates an authentication or licensing failure
	AuthError = 5

	// StoreError indicates a persistence failure
	StoreError = 6

	// Interrupted indicates the user cancelled the operation
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit
// code. Coded errors map by their code family; everything else falls
// back to a couple of textual hints and then to GeneralError.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var ce *errors.CompassError
	if stderrors.As(err, &ce) {
		switch {
		case strings.HasPrefix(string(ce.Code), "GATE-"),
			ce.Code == errors.ErrCodeStageLocked:
			return GateLocked
		case ce.Code == errors.ErrCodeSynthAuth,
			strings.HasPrefix(string(ce.Code), "LICENSE-"):
			return AuthError
		case strings.HasPrefix(string(ce.Code), "SYNTH-"):
			return SynthError
		case strings.HasPrefix(string(ce.Code), "STORE-"):
			return StoreError
		}
		return GeneralError
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "unknown command") || strings.Contains(errMsg, "required flag") {
		return UsageError
	}
	return GeneralError
}

// Description returns a human-readable description of an exit code
func Description(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case GateLocked:
		return "Stage locked by gate policy"
	case SynthError:
		return "Synthesis provider failure"
	case AuthError:
		return "Authentication or licensing error"
	case StoreError:
		return "Persistence failure"
	case Interrupted:
		return "Cancelled by user"
	default:
		return "Unknown error"
	}
}
