// internal/detect/connectivity.go
package detect

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"hostsentry/internal/alert"
	"hostsentry/internal/metrics"
)

const (
	probePort    = "53"
	probeTimeout = 3 * time.Second
)

// Anycast DNS resolvers: Google, Cloudflare, OpenDNS. Reaching any one of
// them counts as being online.
var defaultProbeHosts = []string{"8.8.8.8", "1.1.1.1", "208.67.222.222"}

// ConnectivityDetector probes well-known resolvers over TCP and tracks
// up/down transitions. It assumes the host is online at startup so that a
// daemon booting during an outage still raises the alert on its first check.
type ConnectivityDetector struct {
	hosts   []string
	timeout time.Duration
	dial    func(network, address string, timeout time.Duration) (net.Conn, error)
	now     func() time.Time

	connected         bool
	disconnectedSince time.Time
}

func NewConnectivityDetector() *ConnectivityDetector {
	return &ConnectivityDetector{
		hosts:     defaultProbeHosts,
		timeout:   probeTimeout,
		dial:      net.DialTimeout,
		now:       time.Now,
		connected: true,
	}
}

// Connected reports the state observed by the last Check.
func (d *ConnectivityDetector) Connected() bool {
	return d.connected
}

// Check probes for connectivity and returns an event on a state transition:
// a trigger when the link goes down, a clear with the measured downtime when
// it comes back. Steady state returns nil.
func (d *ConnectivityDetector) Check() *Event {
	start := d.now()
	up := d.probe()
	metrics.ObserveProbe(time.Since(start))
	if up {
		metrics.InternetConnected.Set(1)
	} else {
		metrics.InternetConnected.Set(0)
	}

	switch {
	case !up && d.connected:
		d.connected = false
		d.disconnectedSince = d.now()
		logrus.Warn("Internet connectivity lost")
		return &Event{
			Key:     alert.KeyInternetConnection,
			Type:    alert.TypeInternet,
			Message: "⚠️ *CONNESSIONE INTERNET PERSA*\n\nIl server non riesce a raggiungere internet.",
		}
	case up && !d.connected:
		downtime := d.now().Sub(d.disconnectedSince)
		d.connected = true
		logrus.WithField("downtime", downtime).Info("Internet connectivity restored")
		return &Event{
			Key:   alert.KeyInternetConnection,
			Type:  alert.TypeInternet,
			Clear: true,
			ClearMessage: fmt.Sprintf("Connessione internet ripristinata dopo %s di disconnessione",
				FormatUptime(downtime.Seconds())),
		}
	}
	return nil
}

func (d *ConnectivityDetector) probe() bool {
	for _, host := range d.hosts {
		conn, err := d.dial("tcp", net.JoinHostPort(host, probePort), d.timeout)
		if err != nil {
			continue
		}
		conn.Close()
		return true
	}
	return false
}
