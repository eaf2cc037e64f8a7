package domain

// FilterRule is a single bound check against a named, possibly
// time-offset feature value. Either bound may be absent (open-ended).
type FilterRule struct {
	Name     string   // display name for audit output
	Field    string   // feature field, e.g. "price_change_pct"
	Minute   int      // lookback offset in minutes (0 = at entry)
	MinBound *float64 // nil means no lower bound
	MaxBound *float64 // nil means no upper bound
	Active   bool
}

// FilterProject is a named, reusable ordered set of filter rules.
// Many plays may reference the same project.
type FilterProject struct {
	ProjectID int64
	Name      string
	Active    bool
	Rules     []*FilterRule // evaluation order preserved
}

// ActiveRules returns the project's active rules in order.
func (p *FilterProject) ActiveRules() []*FilterRule {
	var rules []*FilterRule
	for _, r := range p.Rules {
		if r.Active {
			rules = append(rules, r)
		}
	}
	return rules
}
