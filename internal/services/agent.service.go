package services

import (
	"log"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"nigran/internal/models"
)

const methodUploadStatus = "common:uploadStatus"

// AgentService is the optional self-report loop: it samples this host
// and pushes the measurement upstream as a fire-and-forget
// notification, so the gateway machine shows up on the dashboard like
// any other entity.
type AgentService struct {
	client   *RPCClient
	interval time.Duration
	stop     chan struct{}

	lastNetBytes struct {
		sent uint64
		recv uint64
		time time.Time
	}
}

// StartAgent starts the report loop on the given interval.
func StartAgent(c *RPCClient, interval time.Duration) *AgentService {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	a := &AgentService{client: c, interval: interval, stop: make(chan struct{})}
	go a.run()
	log.Printf("[AGENT] reporting every %s", interval)
	return a
}

// Stop ends the report loop.
func (a *AgentService) Stop() {
	close(a.stop)
}

func (a *AgentService) run() {
	t := time.NewTicker(a.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			payload := a.sample()
			if err := a.client.Notify(methodUploadStatus, payload); err != nil {
				log.Printf("[AGENT] report failed: %v", err)
			}
		case <-a.stop:
			return
		}
	}
}

// sample collects the current measurement. Individual collector
// failures leave their fields at zero rather than dropping the report.
func (a *AgentService) sample() *models.StatusPayload {
	p := &models.StatusPayload{UpdatedAt: time.Now().Format(time.RFC3339)}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		p.CPU = percents[0]
	} else if err != nil {
		log.Printf("[AGENT] cpu sample: %v", err)
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		p.MemTotal = vm.Total
		p.MemUsed = vm.Used
	}
	if sm, err := mem.SwapMemory(); err == nil {
		p.SwapTotal = sm.Total
		p.SwapUsed = sm.Used
	}
	if du, err := disk.Usage("/"); err == nil {
		p.DiskTotal = du.Total
		p.DiskUsed = du.Used
	}
	if avg, err := load.Avg(); err == nil {
		p.Load1 = avg.Load1
		p.Load5 = avg.Load5
		p.Load15 = avg.Load15
	}
	if info, err := host.Info(); err == nil {
		p.Name = info.Hostname
		p.Platform = info.Platform
		p.PlatformVersion = info.PlatformVersion
		p.KernelVersion = info.KernelVersion
		p.Arch = info.KernelArch
		p.Virtualization = info.VirtualizationSystem
		p.Uptime = info.Uptime
	}
	if counters, err := net.IOCounters(false); err == nil && len(counters) > 0 {
		total := counters[0]
		p.NetInTransfer = total.BytesRecv
		p.NetOutTransfer = total.BytesSent
		p.NetInSpeed, p.NetOutSpeed = a.netRates(total.BytesRecv, total.BytesSent)
	}
	if pids, err := process.Pids(); err == nil {
		p.ProcessCount = len(pids)
	}
	if conns, err := net.Connections("tcp"); err == nil {
		p.TCPCount = len(conns)
	}
	if conns, err := net.Connections("udp"); err == nil {
		p.UDPCount = len(conns)
	}
	return p
}

// netRates derives send/receive speed from the previous counter
// snapshot, clamping to zero on counter reset.
func (a *AgentService) netRates(recv, sent uint64) (in, out uint64) {
	now := time.Now()
	last := a.lastNetBytes
	a.lastNetBytes.recv = recv
	a.lastNetBytes.sent = sent
	a.lastNetBytes.time = now
	if last.time.IsZero() {
		return 0, 0
	}
	dt := now.Sub(last.time).Seconds()
	if dt <= 0 {
		dt = 1
	}
	if recv >= last.recv {
		in = uint64(float64(recv-last.recv) / dt)
	}
	if sent >= last.sent {
		out = uint64(float64(sent-last.sent) / dt)
	}
	return in, out
}
