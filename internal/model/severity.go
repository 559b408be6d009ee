package model

import (
	"fmt"
	"strings"
)

// Severity is the advisory severity on an ordinal scale.
type Severity string

const (
	SeverityUnknown  Severity = "UNKNOWN"
	SeverityNone     Severity = "NONE"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns an integer rank for comparison (Unknown=0, Critical=5).
func (s Severity) Rank() int {
	switch s {
	case SeverityNone:
		return 1
	case SeverityLow:
		return 2
	case SeverityMedium:
		return 3
	case SeverityHigh:
		return 4
	case SeverityCritical:
		return 5
	default:
		return 0
	}
}

func (s Severity) String() string {
	if s == "" {
		return string(SeverityUnknown)
	}
	return string(s)
}

// ParseSeverity parses a severity string case-insensitively.
// Accepts "moderate" as MEDIUM. Unrecognized input yields SeverityUnknown and an error.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return SeverityNone, nil
	case "low":
		return SeverityLow, nil
	case "medium", "moderate":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	case "unknown", "":
		return SeverityUnknown, nil
	default:
		return SeverityUnknown, fmt.Errorf("invalid severity: %s", s)
	}
}

// SeverityFromCVSSScore buckets a CVSS v3 base score using the FIRST qualitative scale.
func SeverityFromCVSSScore(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score > 0:
		return SeverityLow
	case score == 0:
		return SeverityNone
	default:
		return SeverityUnknown
	}
}
