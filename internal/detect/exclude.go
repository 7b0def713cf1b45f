// internal/detect/exclude.go
package detect

import (
	"net/netip"
	"strings"

	"github.com/sirupsen/logrus"
)

// IsExcluded reports whether addr matches any entry of the exclusion list.
// Entries are either exact IP addresses or CIDR networks. An empty or
// unparsable address is treated as excluded: a detector that cannot tell
// where a login came from must not page on it.
func IsExcluded(addr string, excluded []string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return true
	}
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		logrus.WithField("address", addr).Debug("Unparsable source address, treating as excluded")
		return true
	}
	ip = ip.Unmap()

	for _, entry := range excluded {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				logrus.WithField("network", entry).Warn("Invalid CIDR in exclusion list, skipping")
				continue
			}
			if prefix.Contains(ip) {
				return true
			}
			continue
		}
		other, err := netip.ParseAddr(entry)
		if err != nil {
			logrus.WithField("address", entry).Warn("Invalid address in exclusion list, skipping")
			continue
		}
		if other.Unmap() == ip {
			return true
		}
	}
	return false
}
