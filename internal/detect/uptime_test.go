package detect

import "testing"

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0 secondi"},
		{1, "1 secondo"},
		{61, "1 minuto, 1 secondo"},
		{125, "2 minuti, 5 secondi"},
		{3605, "1 ora, 0 minuti, 5 secondi"},
		{7325, "2 ore, 2 minuti, 5 secondi"},
		{90061, "1 giorno, 1 ora, 1 minuto, 1 secondo"},
		{180122, "2 giorni, 2 ore, 2 minuti, 2 secondi"},
	}
	for _, tc := range cases {
		if got := FormatUptime(tc.seconds); got != tc.want {
			t.Errorf("FormatUptime(%v) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
