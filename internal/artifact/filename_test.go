package artifact

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Assinaturas – Black Friday!!", "Assinaturas_Black_Friday"},
		{"Imersão Presencial", "Imersao_Presencial"},
		{"Lista Geral 2024", "Lista_Geral_2024"},
		{"___já_limpo___", "ja_limpo"},
		{"ação/reação", "acao_reacao"},
		{"", ""},
		{"!!!", ""},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizeName(tc.in), "input %q", tc.in)
	}
}

func TestFileName(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 15, 14, 22, 7, 0, time.UTC)
	require.Equal(t, "Vendas_Lista_Geral_20260315_142207.csv", FileName("Vendas", "Lista Geral", at))
	require.Equal(t, "Lista_Geral_20260315_142207.csv", FileName("", "Lista Geral", at))
	require.Equal(t, "Parcerias_Imersao_Presencial_20260315_142207.csv", FileName("Parcerias", "Imersão Presencial", at))
}
