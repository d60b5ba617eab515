package registry

import (
	"github.com/wizzomafizzo/gauntlet/internal/core/engine/unit"
	"github.com/wizzomafizzo/gauntlet/internal/rule"
)

// Inject sets the metadata of g, of every nested group and of every example
// beneath them from r. Only descriptions differ between levels afterwards.
func Inject(g *unit.Group, r *rule.Rule, p rule.Provider) {
	md := metadataFor(r, p)
	g.Walk(func(cur *unit.Group) {
		cur.Metadata = md
		for _, e := range cur.Examples() {
			e.Metadata = md
		}
	})
}

func metadataFor(r *rule.Rule, p rule.Provider) unit.Metadata {
	return unit.Metadata{
		ID:             p.RuleID(r),
		ProfileID:      p.ProfileID(r),
		Impact:         r.Impact,
		Title:          r.Title,
		Desc:           r.Desc,
		Code:           r.Code,
		SourceLocation: r.SourceLocation,
	}
}
