package model

import "strings"

// ThreatLevel is the ranked bucket assigned to a finalized finding.
type ThreatLevel string

const (
	ThreatCritical      ThreatLevel = "CRITICAL"
	ThreatHigh          ThreatLevel = "HIGH"
	ThreatMedium        ThreatLevel = "MEDIUM"
	ThreatLow           ThreatLevel = "LOW"
	ThreatInformational ThreatLevel = "INFORMATIONAL"
)

// ThreatLevels lists every level from most to least severe.
var ThreatLevels = []ThreatLevel{ThreatCritical, ThreatHigh, ThreatMedium, ThreatLow, ThreatInformational}

// Rank returns an integer rank for comparison (Informational=1, Critical=5).
func (t ThreatLevel) Rank() int {
	switch t {
	case ThreatCritical:
		return 5
	case ThreatHigh:
		return 4
	case ThreatMedium:
		return 3
	case ThreatLow:
		return 2
	case ThreatInformational:
		return 1
	default:
		return 0
	}
}

// ParseThreatLevel parses a threat level case-insensitively ("info" is accepted).
func ParseThreatLevel(s string) (ThreatLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return ThreatCritical, true
	case "HIGH":
		return ThreatHigh, true
	case "MEDIUM":
		return ThreatMedium, true
	case "LOW":
		return ThreatLow, true
	case "INFORMATIONAL", "INFO":
		return ThreatInformational, true
	default:
		return "", false
	}
}

// DeriveThreatLevel maps severity × verdict × confidence to a threat level.
//
//	verdict            severity                 level
//	TRIAGE_ERROR       any                      INFORMATIONAL
//	NOT_EXPLOITABLE    any                      LOW
//	EXPLOITABLE*       CRITICAL, HIGH           CRITICAL
//	EXPLOITABLE*       MEDIUM                   HIGH
//	EXPLOITABLE*       LOW, UNKNOWN             MEDIUM
//	EXPLOITABLE*       NONE                     LOW
//	UNCERTAIN          range-only match         INFORMATIONAL
//	UNCERTAIN          CRITICAL                 HIGH
//	UNCERTAIN          HIGH                     MEDIUM
//	UNCERTAIN          MEDIUM, LOW, UNKNOWN     LOW
//	UNCERTAIN          NONE                     INFORMATIONAL
//
// * EXPLOITABLE only counts when confidence >= threshold; otherwise the row
// for UNCERTAIN applies.
func DeriveThreatLevel(sev Severity, verdict Verdict, confidence, threshold float64, kind MatchKind) ThreatLevel {
	confidence = ClampConfidence(confidence)
	if verdict == VerdictExploitable && confidence < threshold {
		verdict = VerdictUncertain
	}

	switch verdict {
	case VerdictTriageError:
		return ThreatInformational
	case VerdictNotExploitable:
		return ThreatLow
	case VerdictExploitable:
		switch sev {
		case SeverityCritical, SeverityHigh:
			return ThreatCritical
		case SeverityMedium:
			return ThreatHigh
		case SeverityNone:
			return ThreatLow
		default:
			return ThreatMedium
		}
	}

	if kind == MatchRangeOnly {
		return ThreatInformational
	}
	switch sev {
	case SeverityCritical:
		return ThreatHigh
	case SeverityHigh:
		return ThreatMedium
	case SeverityNone:
		return ThreatInformational
	default:
		return ThreatLow
	}
}
