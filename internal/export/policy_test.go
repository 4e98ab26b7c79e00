package export

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shortmidia/clint-exporter/internal/config"
)

func TestDefaultPolicyCandidateTable(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()

	cases := []struct {
		name       string
		originID   string
		originName string
		want       []int
	}{
		{"lista geral", "o1", "Lista Geral 2024", []int{1000, 1500, 2000}},
		{"assinaturas", "o2", "Assinaturas Premium", []int{800, 1000, 1200}},
		{"compras", "o3", "Compras Diretas", []int{500, 700, 900}},
		{"abandono", "o4", "Carrinho Abandono", []int{300, 500, 700}},
		{"abandono folds case", "o4", "ABANDONO de carrinho", []int{300, 500, 700}},
		// Named-origin rules match the upstream casing exactly.
		{"lista geral wrong case", "o1", "minha lista geral", []int{398, 500, 1000}},
		{"compras wrong case", "o3", "compras diretas", []int{398, 500, 1000}},
		{"id rule", "329ab048-5347-4bd0-8c08-972da386e835", "Imersão Presencial", []int{200, 300, 400}},
		{"default", "o9", "Webinar Outubro", []int{398, 500, 1000}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, p.CandidatesFor(tc.originID, tc.originName))
		})
	}
}

func TestNameRulesWinOverIDRules(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	// An origin matching both a substring and an id rule takes the
	// substring rule's candidates.
	got := p.CandidatesFor("329ab048-5347-4bd0-8c08-972da386e835", "Compras Imersão")
	require.Equal(t, []int{500, 700, 900}, got)
}

func TestPolicyFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.ExportConfig{
		DefaultCandidates: []int{100, 200},
		Policies: []config.PolicyRule{
			{MatchSubstring: "eventos", Candidates: []int{50, 75}},
			{MatchID: "origin-42", Candidates: []int{10}},
		},
	}
	p := PolicyFromConfig(cfg)

	require.Equal(t, []int{50, 75}, p.CandidatesFor("x", "Eventos ao Vivo"))
	require.Equal(t, []int{10}, p.CandidatesFor("origin-42", "Qualquer"))
	require.Equal(t, []int{100, 200}, p.CandidatesFor("x", "Outra"))

	// Configured rules replace the built-in table entirely.
	require.Equal(t, []int{100, 200}, p.CandidatesFor("x", "Lista Geral"))
}

func TestPolicyFromConfigFallsBackToBuiltin(t *testing.T) {
	t.Parallel()

	p := PolicyFromConfig(config.ExportConfig{})
	require.Equal(t, []int{398, 500, 1000}, p.CandidatesFor("x", "Sem Regra"))
	require.Equal(t, []int{1000, 1500, 2000}, p.CandidatesFor("x", "Lista Geral"))

	p = PolicyFromConfig(config.ExportConfig{DefaultCandidates: []int{42}})
	require.Equal(t, []int{42}, p.CandidatesFor("x", "Sem Regra"))
}
