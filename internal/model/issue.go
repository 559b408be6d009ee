package model

// IssueKind classifies a per-item problem absorbed by the pipeline.
type IssueKind string

const (
	IssueManifestParse IssueKind = "manifest_parse_error"
	IssueUnsupported   IssueKind = "unsupported_artifact"
	IssueTruncated     IssueKind = "dependencies_truncated"
	IssueMatcher       IssueKind = "matcher_error"
	IssueTriage        IssueKind = "triage_error"
	IssueDeadline      IssueKind = "deadline_exceeded"
	IssueNotification  IssueKind = "notification_error"
)

// Issue is the data form of a recoverable error: it is surfaced in the
// report instead of failing the analysis.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Scope   string    `json:"scope"`
	Message string    `json:"message"`
}
