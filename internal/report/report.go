// internal/report/report.go - gopsutil-backed resource snapshots
package report

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"hostsentry/internal/config"
)

const gib = 1024 * 1024 * 1024

// Reporter produces human-readable resource snapshots in Markdown. It holds
// the previous network counters so consecutive network reports can show
// transfer rates.
type Reporter struct {
	mu          sync.Mutex
	lastNetIO   *psnet.IOCountersStat
	lastNetTime time.Time
}

func NewReporter() *Reporter {
	return &Reporter{}
}

// CPU returns total and per-mode CPU utilization, core counts, load average
// and uptime.
func (r *Reporter) CPU() (string, error) {
	percents, err := cpu.Percent(time.Second, false)
	if err != nil || len(percents) == 0 {
		return "", fmt.Errorf("failed to read CPU usage: %w", err)
	}
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		return "", fmt.Errorf("failed to read CPU times: %w", err)
	}
	t := times[0]
	busy := t.User + t.System + t.Idle + t.Iowait + t.Nice + t.Irq + t.Softirq + t.Steal
	pct := func(v float64) float64 {
		if busy == 0 {
			return 0
		}
		return v / busy * 100
	}

	logical, _ := cpu.Counts(true)
	physical, _ := cpu.Counts(false)

	loadStr := "non disponibile"
	if avg, err := load.Avg(); err == nil {
		loadStr = fmt.Sprintf("1 min: *%.2f*\n5 min: *%.2f*\n15 min: *%.2f*",
			avg.Load1, avg.Load5, avg.Load15)
	}

	uptimeStr := "non disponibile"
	if uptime, err := host.Uptime(); err == nil {
		d := time.Duration(uptime) * time.Second
		uptimeStr = fmt.Sprintf("%dd %dh %dm %ds",
			int(d.Hours())/24, int(d.Hours())%24, int(d.Minutes())%60, int(d.Seconds())%60)
	}

	return fmt.Sprintf("*Informazioni CPU*\n"+
		"Utilizzo totale: *%.1f%%*\n\n"+
		"*Dettaglio utilizzo:*\n"+
		"user: *%.1f%%*\n"+
		"system: *%.1f%%*\n"+
		"idle: *%.1f%%*\n"+
		"iowait: *%.1f%%*\n\n"+
		"*Cores:* %d logici (%d fisici)\n\n"+
		"*Load Average* (%d-core)\n%s\n\n"+
		"*Uptime:* %s",
		percents[0],
		pct(t.User), pct(t.System), pct(t.Idle), pct(t.Iowait),
		logical, physical, physical, loadStr, uptimeStr), nil
}

// Memory returns RAM and swap usage with a load-average footer.
func (r *Reporter) Memory() (string, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return "", fmt.Errorf("failed to read memory info: %w", err)
	}
	swap, err := mem.SwapMemory()
	if err != nil {
		return "", fmt.Errorf("failed to read swap info: %w", err)
	}

	loadStr := "Load average: non disponibile"
	if avg, err := load.Avg(); err == nil {
		physical, _ := cpu.Counts(false)
		if physical == 0 {
			physical = 1
		}
		loadStr = fmt.Sprintf("*LOAD* (%d-core)\n1 min: *%.2f*\n5 min: *%.2f*\n15 min: *%.2f*",
			physical, avg.Load1, avg.Load5, avg.Load15)
	}

	return fmt.Sprintf("*Informazioni Memoria*\n\n"+
		"*RAM:* %.1f%%\n"+
		"total: *%.1fG*\n"+
		"used: *%.1fG*\n"+
		"free: *%.1fG*\n"+
		"active: *%.2fG*\n"+
		"inactive: *%.2fG*\n"+
		"buffers: *%.2fG*\n"+
		"cached: *%.2fG*\n\n"+
		"*SWAP:* %.1f%%\n"+
		"total: *%.1fG*\n"+
		"used: *%.1fG*\n"+
		"free: *%.1fG*\n\n%s",
		vm.UsedPercent,
		float64(vm.Total)/gib, float64(vm.Used)/gib, float64(vm.Free)/gib,
		float64(vm.Active)/gib, float64(vm.Inactive)/gib,
		float64(vm.Buffers)/gib, float64(vm.Cached)/gib,
		swap.UsedPercent,
		float64(swap.Total)/gib, float64(swap.Used)/gib, float64(swap.Free)/gib,
		loadStr), nil
}

// Disk returns root filesystem usage plus per-mount usage for the configured
// mount points.
func (r *Reporter) Disk(mounts []config.MountPoint) (string, error) {
	root, err := disk.Usage("/")
	if err != nil {
		return "", fmt.Errorf("failed to read root disk usage: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Informazioni Disco*\n"+
		"Root Usage: *%.1f%%*\n"+
		"Usato: %.1f GB\n"+
		"Libero: %.1f GB\n"+
		"Totale: %.1f GB\n",
		root.UsedPercent,
		float64(root.Used)/gib, float64(root.Free)/gib, float64(root.Total)/gib)

	if len(mounts) == 0 {
		b.WriteString("\nNessun mount point configurato.")
		return b.String(), nil
	}

	b.WriteString("*Mount Points Monitorati*:")
	for _, mount := range mounts {
		usage, err := disk.Usage(mount.Path)
		if err != nil {
			fmt.Fprintf(&b, "\n%s: errore nella lettura - %v", mount.Path, err)
			continue
		}
		fmt.Fprintf(&b, "\n%s: %.1f%% usato (%.1f GB / %.1f GB)",
			mount.Path, usage.UsedPercent,
			float64(usage.Used)/gib, float64(usage.Total)/gib)
	}
	return b.String(), nil
}

// Network returns total transfer counters, connection counts, and transfer
// rates computed against the previous call.
func (r *Reporter) Network() (string, error) {
	counters, err := psnet.IOCounters(false)
	if err != nil || len(counters) == 0 {
		return "", fmt.Errorf("failed to read network counters: %w", err)
	}
	current := counters[0]
	now := time.Now()

	r.mu.Lock()
	var speedInfo string
	if r.lastNetIO != nil {
		elapsed := now.Sub(r.lastNetTime).Seconds()
		if elapsed > 0 {
			up := float64(current.BytesSent-r.lastNetIO.BytesSent) / elapsed
			down := float64(current.BytesRecv-r.lastNetIO.BytesRecv) / elapsed
			speedInfo = fmt.Sprintf("\nVelocità Download: *%s*\nVelocità Upload: *%s*",
				formatRate(down), formatRate(up))
		}
	}
	r.lastNetIO = &current
	r.lastNetTime = now
	r.mu.Unlock()

	established, listening := 0, 0
	if conns, err := psnet.Connections("inet"); err == nil {
		for _, c := range conns {
			switch c.Status {
			case "ESTABLISHED":
				established++
			case "LISTEN":
				listening++
			}
		}
	}

	return fmt.Sprintf("*Informazioni Rete*\n"+
		"Dati inviati: *%.1f MB*\n"+
		"Dati ricevuti: *%.1f MB*%s\n\n"+
		"Connessioni attive: *%d*\n"+
		"Porte in ascolto: *%d*",
		float64(current.BytesSent)/(1024*1024),
		float64(current.BytesRecv)/(1024*1024),
		speedInfo, established, listening), nil
}

// Processes returns the top processes by memory usage.
func (r *Reporter) Processes(limit int) (string, error) {
	if limit <= 0 {
		limit = 5
	}

	procs, err := process.Processes()
	if err != nil {
		return "", fmt.Errorf("failed to list processes: %w", err)
	}

	type procInfo struct {
		pid    int32
		name   string
		memPct float32
		cpuPct float64
	}
	var infos []procInfo
	for _, p := range procs {
		memPct, err := p.MemoryPercent()
		if err != nil {
			continue
		}
		name, err := p.Name()
		if err != nil {
			name = "?"
		}
		cpuPct, _ := p.CPUPercent()
		infos = append(infos, procInfo{pid: p.Pid, name: name, memPct: memPct, cpuPct: cpuPct})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].memPct > infos[j].memPct })
	if len(infos) > limit {
		infos = infos[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "*Top %d Processi (per memoria)*\n", limit)
	for i, p := range infos {
		fmt.Fprintf(&b, "\n%d. *%s* (pid %d)\n   MEM: %.1f%%  CPU: %.1f%%",
			i+1, p.name, p.pid, p.memPct, p.cpuPct)
	}
	return b.String(), nil
}

func formatRate(bytesPerSec float64) string {
	kb := bytesPerSec / 1024
	if kb > 1024 {
		return fmt.Sprintf("%.2f MB/s", kb/1024)
	}
	return fmt.Sprintf("%.2f KB/s", kb)
}
