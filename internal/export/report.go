package export

import (
	"io"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/ifews/nsurplus/internal/panel"
)

// Report is the YAML run summary.
type Report struct {
	RunID      string         `yaml:"run_id"`
	State      string         `yaml:"state"`
	StartedAt  time.Time      `yaml:"started_at"`
	FinishedAt time.Time      `yaml:"finished_at"`
	Counties   int            `yaml:"counties"`
	FirstYear  int            `yaml:"first_year"`
	LastYear   int            `yaml:"last_year"`
	Rows       int            `yaml:"rows"`
	Variables  []string       `yaml:"variables"`
	Issues     map[string]int `yaml:"issues"`
	Samples    []string       `yaml:"issue_samples,omitempty"`
	Outputs    []string       `yaml:"outputs,omitempty"`
}

// maxSamples bounds the issues listed verbatim in a report.
const maxSamples = 20

// NewReport summarizes p and its issues.
func NewReport(runID, state string, p *panel.Panel, issues []panel.Issue) *Report {
	r := &Report{
		RunID:    runID,
		State:    state,
		Counties: len(p.Counties()),
		Rows:     p.Len(),
		Issues:   make(map[string]int),
	}
	if years := p.Years(); len(years) > 0 {
		r.FirstYear, r.LastYear = years[0], years[len(years)-1]
	}
	for _, v := range p.Vars() {
		r.Variables = append(r.Variables, v.String())
	}
	for kind, n := range panel.CountIssues(issues) {
		r.Issues[string(kind)] = n
	}
	for i := 0; i < len(issues) && i < maxSamples; i++ {
		r.Samples = append(r.Samples, issues[i].String())
	}
	return r
}

// WriteReport encodes r as YAML.
func WriteReport(w io.Writer, r *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return eris.Wrap(err, "export: encode report")
	}
	return eris.Wrap(enc.Close(), "export: close report")
}
