package config

import (
	"fmt"

	"seriesstats/internal/normalize"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding, addressed by a JSON-ish path so the
// operator can find the offending config line.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// Validate checks p for structural problems. Backend-specific requirements
// (a mongo DSN that actually connects, a file that exists) are validated at
// construction time; this pass catches what can be caught without I/O.
func Validate(p Pipeline) []Issue {
	var issues []Issue
	errf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, args...)})
	}
	warnf := func(path, format string, args ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, args...)})
	}

	if p.Job == "" {
		warnf("job", "empty job name; metrics will be tagged with the default")
	}

	if p.Source.Kind == "" {
		errf("source.kind", "a source kind is required")
	}

	if p.Fields.Path == "" && len(p.Fields.Inline) == 0 && !p.Fields.AllowEmpty {
		errf("fields", "no field list configured; set fields.path or fields.inline, or opt in with fields.allow_empty")
	}
	if p.Fields.Path != "" && len(p.Fields.Inline) > 0 {
		warnf("fields", "both path and inline set; inline wins")
	}

	if mode := normalize.CrewMode(p.Normalize.CrewCountMode); !mode.Valid() {
		errf("normalize.crew_count_mode", "unknown mode %q (want %q or %q)",
			p.Normalize.CrewCountMode, normalize.CountFields, normalize.CountEntries)
	}
	if p.Normalize.MinYear != 0 && p.Normalize.MaxYear != 0 && p.Normalize.MinYear > p.Normalize.MaxYear {
		errf("normalize", "min_year %d above max_year %d", p.Normalize.MinYear, p.Normalize.MaxYear)
	}
	if p.Normalize.MaxSeasons < 0 {
		errf("normalize.max_seasons", "negative max_seasons %d", p.Normalize.MaxSeasons)
	}

	switch p.Metrics.Backend {
	case "", "none", "pushgateway", "datadog":
	default:
		errf("metrics.backend", "unknown backend %q", p.Metrics.Backend)
	}
	if p.Metrics.Backend == "pushgateway" && p.Metrics.PushgatewayURL == "" {
		warnf("metrics.pushgateway_url", "empty URL; the default http://localhost:9091 will be used")
	}

	return issues
}

// HasError reports whether issues contains at least one error-severity
// finding.
func HasError(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
