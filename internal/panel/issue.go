package panel

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ifews/nsurplus/internal/variable"
)

// IssueKind classifies a non-fatal data-quality condition.
type IssueKind string

const (
	MissingReferenceData IssueKind = "missing_reference_data"
	MissingControlTotal  IssueKind = "missing_control_total"
	DegenerateDivision   IssueKind = "degenerate_division"
	DuplicateObservation IssueKind = "duplicate_observation"
	OutOfRange           IssueKind = "out_of_range"
	UnresolvedZero       IssueKind = "unresolved_zero"
)

// Issue is a recoverable problem found while building the panel. County is empty for
// state-level issues and Year is zero for issues that span a whole series.
type Issue struct {
	Kind     IssueKind
	County   string
	Year     int
	Variable variable.Variable
	Detail   string
}

// String renders the issue for logs and reports.
func (i Issue) String() string {
	s := string(i.Kind)
	if i.Variable.Valid() {
		s += " " + i.Variable.String()
	}
	if i.County != "" {
		s += " county=" + i.County
	}
	if i.Year != 0 {
		s += fmt.Sprintf(" year=%d", i.Year)
	}
	if i.Detail != "" {
		s += ": " + i.Detail
	}
	return s
}

// Fields returns zap fields describing the issue.
func (i Issue) Fields() []zap.Field {
	fields := []zap.Field{zap.String("kind", string(i.Kind))}
	if i.Variable.Valid() {
		fields = append(fields, zap.String("variable", i.Variable.String()))
	}
	if i.County != "" {
		fields = append(fields, zap.String("county", i.County))
	}
	if i.Year != 0 {
		fields = append(fields, zap.Int("year", i.Year))
	}
	if i.Detail != "" {
		fields = append(fields, zap.String("detail", i.Detail))
	}
	return fields
}

// CountIssues tallies issues by kind.
func CountIssues(issues []Issue) map[IssueKind]int {
	out := make(map[IssueKind]int)
	for _, i := range issues {
		out[i.Kind]++
	}
	return out
}

// LogIssues writes each issue at debug level and a per-kind summary at warn level.
func LogIssues(log *zap.Logger, stage string, issues []Issue) {
	if len(issues) == 0 {
		return
	}
	for _, i := range issues {
		log.Debug("data issue", append(i.Fields(), zap.String("stage", stage))...)
	}
	counts := CountIssues(issues)
	fields := []zap.Field{zap.String("stage", stage), zap.Int("total", len(issues))}
	for kind, n := range counts {
		fields = append(fields, zap.Int(string(kind), n))
	}
	log.Warn("stage reported data issues", fields...)
}
