package report

import "time"

// Analysis is the envelope stored and served for one completed analysis.
// The report fields are flattened into the JSON object.
type Analysis struct {
	ID        string    `json:"report_id"`
	RepoURL   string    `json:"repo_url"`
	Timestamp time.Time `json:"analysis_timestamp"`
	// Duration is in seconds.
	Duration float64 `json:"analysis_duration"`
	Report
}

// HasRealThreats reports whether any finding is EXPLOITABLE.
func (a Analysis) HasRealThreats() bool {
	return a.RealThreats > 0
}
