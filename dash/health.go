package dash

import (
	"net"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/romainhaenni/numerai-cli/common"
	"github.com/romainhaenni/numerai-cli/eventlog"
)

// Probe checks reachability of the tournament endpoint and reports the
// observed latency. Implementations must honor the timeout.
type Probe func(timeout time.Duration) (time.Duration, error)

// TCPProbe dials the given address once per health check.
func TCPProbe(address string) Probe {
	return func(timeout time.Duration) (time.Duration, error) {
		started := time.Now()
		conn, err := net.DialTimeout("tcp", address, timeout)
		if err != nil {
			return 0, err
		}
		conn.Close()
		return time.Since(started), nil
	}
}

// SampleMetrics takes one system snapshot. Sampling failures degrade to
// zero values rather than failing the health check.
func SampleMetrics(dataDir string) SystemMetrics {
	metrics := SystemMetrics{
		Goroutines: runtime.NumGoroutine(),
		SampledAt:  time.Now(),
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		metrics.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		metrics.MemPercent = vm.UsedPercent
	}
	if usage, err := disk.Usage(dataDir); err == nil {
		metrics.DiskFreePercent = 100 - usage.UsedPercent
	}
	return metrics
}

// HealthCheck periodically samples system metrics and probes network
// connectivity until the dashboard shuts down. Runs as its own task; all
// results flow through the state contract.
func HealthCheck(state *State, probe Probe) {
	interval := state.Config.NetworkCheckInterval
	timeout := state.Config.NetworkTimeout
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First sample immediately so the header is populated on frame one.
	observe(state, probe, timeout)

	for state.Running() {
		<-ticker.C
		if !state.Running() {
			break
		}
		paused := false
		state.Mutate(func(data *Data) {
			paused = data.Paused
		})
		if paused {
			continue
		}
		observe(state, probe, timeout)
	}
	common.Trace("health check loop exited")
}

func observe(state *State, probe Probe, timeout time.Duration) {
	metrics := SampleMetrics(state.Config.DataDir)

	latency, err := probe(timeout)
	now := time.Now()
	state.Mutate(func(data *Data) {
		data.Metrics = metrics
		data.Network.LastCheck = now
		if err != nil {
			wasConnected := data.Network.Connected
			data.Network.Connected = false
			data.Network.ConsecutiveFailures += 1
			if wasConnected {
				state.Events.Append(eventlog.LevelWarn, "network check failed: "+err.Error())
			}
		} else {
			if !data.Network.Connected && data.Network.ConsecutiveFailures > 0 {
				state.Events.Append(eventlog.LevelSuccess, "network connectivity restored")
			}
			data.Network.Connected = true
			data.Network.LatencyMs = latency.Milliseconds()
			data.Network.ConsecutiveFailures = 0
		}
	})
}
