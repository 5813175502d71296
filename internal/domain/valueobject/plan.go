package valueobject

import "errors"

// LineFailure records a line whose convergence step failed.
type LineFailure struct {
	Domain    string
	SubDomain string
	Line      string
	Err       error
}

func (f LineFailure) FQDN() string {
	if f.SubDomain == "@" || f.SubDomain == "" {
		return f.Domain
	}
	return f.SubDomain + "." + f.Domain
}

// Plan collects the decisions and failures of a reconciliation pass.
type Plan struct {
	changes  []*Change
	failures []LineFailure
}

func NewPlan() *Plan {
	return &Plan{
		changes: make([]*Change, 0),
	}
}

func (p *Plan) Changes() []*Change       { return p.changes }
func (p *Plan) Failures() []LineFailure  { return p.failures }
func (p *Plan) HasFailures() bool        { return len(p.failures) > 0 }
func (p *Plan) AddChange(ch *Change)     { p.changes = append(p.changes, ch) }
func (p *Plan) AddFailure(f LineFailure) { p.failures = append(p.failures, f) }

// Merge appends other's changes and failures to p.
func (p *Plan) Merge(other *Plan) {
	if other == nil {
		return
	}
	p.changes = append(p.changes, other.changes...)
	p.failures = append(p.failures, other.failures...)
}

func (p *Plan) HasChanges() bool {
	for _, c := range p.changes {
		if c.Type() != ChangeTypeNoop {
			return true
		}
	}
	return false
}

func (p *Plan) FilterByType(changeType ChangeType) []*Change {
	var result []*Change
	for _, c := range p.changes {
		if c.Type() == changeType {
			result = append(result, c)
		}
	}
	return result
}

func (p *Plan) Count(changeType ChangeType) int {
	return len(p.FilterByType(changeType))
}

// Err joins every line failure, or returns nil.
func (p *Plan) Err() error {
	errs := make([]error, 0, len(p.failures))
	for _, f := range p.failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}
