package domain

// Experiment cohorts a browser session can be assigned to. The assignment is
// made once per session and persisted locally.
const (
	CohortTest    = "test"
	CohortControl = "control"
)
