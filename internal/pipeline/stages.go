package pipeline

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ifews/nsurplus/internal/panel"
	"github.com/ifews/nsurplus/internal/variable"
)

// animalBranch expands livestock observations, interpolates and reconciles every base category
// against the state totals, then adds the derived sub-populations.
func (p *Pipeline) animalBranch(ctx context.Context, rng panel.YearRange, totals panel.ControlTotals) (*panel.Panel, []panel.Issue, error) {
	obs, err := p.sources.Observations(ctx, variable.GroupAnimal)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: animal observations")
	}

	vars := variable.Reconcilable()
	pn, issues, err := panel.Expand(obs, vars, rng, p.opts.CutoffYear)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: expand animals")
	}
	panel.LogIssues(p.log, "expand_animals", issues)

	for _, v := range vars {
		var iss []panel.Issue
		pn, iss = panel.Interpolate(pn, v)
		panel.LogIssues(p.log, "interpolate_"+v.String(), iss)
		issues = append(issues, iss...)
	}
	for _, v := range vars {
		var iss []panel.Issue
		pn, iss = panel.Reconcile(pn, v, totals)
		panel.LogIssues(p.log, "reconcile_"+v.String(), iss)
		issues = append(issues, iss...)
	}

	pn, iss := panel.Derive(pn)
	panel.LogIssues(p.log, "derive", iss)
	issues = append(issues, iss...)
	return pn, issues, nil
}

// cropBranch expands crop observations and fills each series by extrapolating interpolation.
func (p *Pipeline) cropBranch(ctx context.Context, rng panel.YearRange) (*panel.Panel, []panel.Issue, error) {
	obs, err := p.sources.Observations(ctx, variable.GroupCrop)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: crop observations")
	}

	pn, issues, err := panel.Expand(obs, variable.Crops(), rng, p.opts.CutoffYear)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: expand crops")
	}
	panel.LogIssues(p.log, "expand_crops", issues)

	pn, iss := panel.InterpolateCrops(pn)
	panel.LogIssues(p.log, "interpolate_crops", iss)
	return pn, append(issues, iss...), nil
}
