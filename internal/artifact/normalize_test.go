package artifact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrimDateTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"15/03/2026 14:22:07", "15/03/2026"},
		{"15/03/2026", "15/03/2026"},
		{"N/A", "N/A"},
		{"", ""},
		{"2026-03-15 14:22:07", "2026-03-15 14:22:07"},
		{"15/03/2026 14:22", "15/03/2026 14:22"},
		{"texto livre", "texto livre"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, TrimDateTime(tc.in), "input %q", tc.in)
	}

	// Idempotent: a second pass changes nothing.
	once := TrimDateTime("15/03/2026 14:22:07")
	require.Equal(t, once, TrimDateTime(once))
}

func TestNormalizeDatesTouchesOnlyDateColumns(t *testing.T) {
	t.Parallel()

	table := Table{
		Columns: []string{"name", "created_at", "won_at", "note"},
		Rows: [][]string{
			{"Ana", "01/02/2026 09:00:00", "03/02/2026 18:30:00", "ligou 01/02/2026 09:00:00"},
			{"Bia", "N/A", "", "sem data"},
		},
	}
	NormalizeDates(&table)

	require.Equal(t, "01/02/2026", table.Rows[0][1])
	require.Equal(t, "03/02/2026", table.Rows[0][2])
	// Non-date columns keep their values even when they contain timestamps.
	require.Equal(t, "ligou 01/02/2026 09:00:00", table.Rows[0][3])
	require.Equal(t, "N/A", table.Rows[1][1])
	require.Equal(t, "", table.Rows[1][2])
}

func TestNormalizeDatesMissingColumns(t *testing.T) {
	t.Parallel()

	table := Table{Columns: []string{"name"}, Rows: [][]string{{"Ana"}}}
	NormalizeDates(&table)
	require.Equal(t, "Ana", table.Rows[0][0])
}
