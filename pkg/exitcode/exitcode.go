// Package exitcode defines the fixed exit-code contract for ctxtidy.
//
// The four classes are mutually exclusive and evaluated in the order
// runtime error > policy invalid > findings present > ok, so a run
// that both fails and has findings always reports the failure.
package exitcode

const (
	// Success means nothing notable happened.
	Success = 0
	// RuntimeError covers I/O failures, parse failures and any other
	// unexpected fault.
	RuntimeError = 1
	// PolicyError means the authorization policy was missing, malformed,
	// or carried an unknown schema version. Always an abort, never a skip.
	PolicyError = 2
	// FindingsPresent means the run completed without error but surfaced
	// findings. CI can gate on this without treating it as a failure.
	FindingsPresent = 3
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case RuntimeError:
		return "Runtime error"
	case PolicyError:
		return "Policy invalid or missing"
	case FindingsPresent:
		return "Findings present"
	default:
		return "Unknown error"
	}
}

// Resolve collapses a run outcome into a single exit code honoring the
// precedence contract.
func Resolve(runtimeErr, policyErr, findings bool) int {
	switch {
	case runtimeErr:
		return RuntimeError
	case policyErr:
		return PolicyError
	case findings:
		return FindingsPresent
	default:
		return Success
	}
}
