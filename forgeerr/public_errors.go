package forgeerr

// This file defines user-facing error messages for well-known terminal
// failures. Callers may override these variables at process startup (before
// the first run starts) to customize UX text without forking Forge.
//
// Contract:
// - These messages are intended to be rendered directly in UIs.
// - Do not mutate these values concurrently with active runs.
var (
	// PublicMessageMaxIterations is shown when a run fails because it exceeded
	// its iteration guard.
	PublicMessageMaxIterations = "The run exceeded its step limit. Please retry or simplify the request."

	// PublicMessageInternal is shown when a run fails for an unclassified reason.
	PublicMessageInternal = "The run failed unexpectedly. Please retry."

	// PublicMessageCanceled is shown when a run is canceled by its caller.
	PublicMessageCanceled = "The run was canceled."
)
