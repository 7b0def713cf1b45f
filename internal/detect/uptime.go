// internal/detect/uptime.go
package detect

import (
	"fmt"
	"net"
	"strings"
)

// FormatUptime renders a duration in seconds as a human-readable Italian
// string, omitting leading zero components: 125 seconds becomes
// "2 minuti, 5 secondi", 90061 becomes "1 giorno, 1 ora, 1 minuto, 1 secondo".
func FormatUptime(uptimeSeconds float64) string {
	if uptimeSeconds < 0 {
		uptimeSeconds = 0
	}
	total := int64(uptimeSeconds)
	days := total / 86400
	total %= 86400
	hours := total / 3600
	total %= 3600
	minutes := total / 60
	seconds := total % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", days, pluralIT(days, "giorno", "giorni")))
	}
	if hours > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", hours, pluralIT(hours, "ora", "ore")))
	}
	if minutes > 0 || len(parts) > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", minutes, pluralIT(minutes, "minuto", "minuti")))
	}
	parts = append(parts, fmt.Sprintf("%d %s", seconds, pluralIT(seconds, "secondo", "secondi")))
	return strings.Join(parts, ", ")
}

func pluralIT(n int64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// LocalIP returns the first non-loopback IPv4 address of the host, or
// "unknown" when none can be determined. Used to identify the machine in
// notification text.
func LocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "unknown"
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if v4 := ipNet.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return "unknown"
}
