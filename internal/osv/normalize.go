package osv

import (
	"strings"

	"minotaur/internal/model"

	gocvss20 "github.com/pandatix/go-cvss/20"
	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"
)

// normalize converts an OSV record into the pipeline's vulnerability record.
func normalize(v osvVuln) model.VulnerabilityRecord {
	rec := model.VulnerabilityRecord{
		ID:        v.ID,
		Aliases:   v.Aliases,
		Summary:   v.Summary,
		Details:   v.Details,
		Severity:  severityOf(v),
		Published: v.Published,
		Modified:  v.Modified,
	}
	if rec.Summary == "" {
		rec.Summary = firstLine(v.Details)
	}
	for _, ref := range v.References {
		if ref.URL != "" {
			rec.References = append(rec.References, ref.URL)
		}
	}
	for _, a := range v.Affected {
		pkg := model.AffectedPackage{
			Ecosystem: a.Package.Ecosystem,
			Name:      a.Package.Name,
			Versions:  a.Versions,
		}
		for _, r := range a.Ranges {
			ar := model.AffectedRange{Type: r.Type}
			for _, e := range r.Events {
				ar.Events = append(ar.Events, model.RangeEvent{
					Introduced:   e.Introduced,
					Fixed:        e.Fixed,
					LastAffected: e.LastAffected,
					Limit:        e.Limit,
				})
			}
			pkg.Ranges = append(pkg.Ranges, ar)
		}
		rec.Affected = append(rec.Affected, pkg)
	}
	return rec
}

// severityOf picks the first available of: the database's own label, the
// highest CVSS base score, the ecosystem-specific label.
func severityOf(v osvVuln) model.Severity {
	if s, err := model.ParseSeverity(v.DatabaseSpecific.Severity); err == nil && s != model.SeverityUnknown {
		return s
	}

	vectors := append([]osvSeverity(nil), v.Severity...)
	for _, a := range v.Affected {
		vectors = append(vectors, a.Severity...)
	}
	best, found := -1.0, false
	for _, s := range vectors {
		if score, ok := cvssBaseScore(s.Score); ok && score > best {
			best, found = score, true
		}
	}
	if found {
		return model.SeverityFromCVSSScore(best)
	}

	for _, a := range v.Affected {
		if raw, ok := a.EcosystemSpecific["severity"].(string); ok {
			if s, err := model.ParseSeverity(raw); err == nil && s != model.SeverityUnknown {
				return s
			}
		}
	}
	return model.SeverityUnknown
}

func cvssBaseScore(vector string) (float64, bool) {
	switch {
	case strings.HasPrefix(vector, "CVSS:3.1/"):
		c, err := gocvss31.ParseVector(vector)
		if err != nil {
			return 0, false
		}
		return c.BaseScore(), true
	case strings.HasPrefix(vector, "CVSS:3.0/"):
		c, err := gocvss30.ParseVector(vector)
		if err != nil {
			return 0, false
		}
		return c.BaseScore(), true
	case strings.HasPrefix(vector, "AV:"):
		c, err := gocvss20.ParseVector(vector)
		if err != nil {
			return 0, false
		}
		return c.BaseScore(), true
	default:
		return 0, false
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
