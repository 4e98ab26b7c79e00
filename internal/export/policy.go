// Package export implements the adaptive bulk-export engine: per origin it
// tries an ordered list of totalBulk size hypotheses against the export
// mutation until one succeeds.
package export

import (
	"strings"

	"github.com/shortmidia/clint-exporter/internal/config"
)

// Policy maps origins to their ordered totalBulk candidate lists. The
// upstream endpoint fails unpredictably for some size/origin combinations;
// these lists are reverse-engineered from observed behavior, not derived
// from any documented limit, and should be tuned through configuration as
// new failures show up.
type Policy struct {
	nameRules        []nameRule
	idRules          []idRule
	defaultCandidate []int
}

type nameRule struct {
	substring  string
	fold       bool // match case-insensitively
	candidates []int
}

type idRule struct {
	id         string
	candidates []int
}

// DefaultPolicy returns the built-in candidate table.
func DefaultPolicy() *Policy {
	return &Policy{
		// The named-origin rules match the upstream display names exactly;
		// only the abandono rule folds case, matching observed variants
		// like "Abandono de Carrinho".
		nameRules: []nameRule{
			{substring: "Lista Geral", candidates: []int{1000, 1500, 2000}},    // very large origins
			{substring: "Assinaturas", candidates: []int{800, 1000, 1200}},     // large
			{substring: "Compras", candidates: []int{500, 700, 900}},           // medium
			{substring: "abandono", fold: true, candidates: []int{300, 500, 700}}, // usually small
		},
		idRules: []idRule{
			// Imersão Presencial: the only value range ever observed to work.
			{id: "329ab048-5347-4bd0-8c08-972da386e835", candidates: []int{200, 300, 400}},
		},
		defaultCandidate: []int{398, 500, 1000},
	}
}

// PolicyFromConfig builds a Policy from configured rules, falling back to
// the built-in table when no rules are configured.
func PolicyFromConfig(cfg config.ExportConfig) *Policy {
	if len(cfg.Policies) == 0 {
		p := DefaultPolicy()
		if len(cfg.DefaultCandidates) > 0 {
			p.defaultCandidate = cfg.DefaultCandidates
		}
		return p
	}
	p := &Policy{defaultCandidate: cfg.DefaultCandidates}
	if len(p.defaultCandidate) == 0 {
		p.defaultCandidate = DefaultPolicy().defaultCandidate
	}
	for _, rule := range cfg.Policies {
		switch {
		case rule.MatchSubstring != "":
			// Configured rules always fold case; operators should not have
			// to guess upstream display-name casing.
			p.nameRules = append(p.nameRules, nameRule{substring: rule.MatchSubstring, fold: true, candidates: rule.Candidates})
		case rule.MatchID != "":
			p.idRules = append(p.idRules, idRule{id: rule.MatchID, candidates: rule.Candidates})
		}
	}
	return p
}

// CandidatesFor returns the ordered totalBulk values to try for an origin.
// Name-substring rules are consulted first in declared order, then id
// rules, then the default list.
func (p *Policy) CandidatesFor(originID, originName string) []int {
	for _, rule := range p.nameRules {
		name, sub := originName, rule.substring
		if rule.fold {
			name, sub = strings.ToLower(name), strings.ToLower(sub)
		}
		if strings.Contains(name, sub) {
			return rule.candidates
		}
	}
	for _, rule := range p.idRules {
		if rule.id == originID {
			return rule.candidates
		}
	}
	return p.defaultCandidate
}
