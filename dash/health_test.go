package dash_test

import (
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/romainhaenni/numerai-cli/dash"
	"github.com/romainhaenni/numerai-cli/hamlet"
)

func waitForNetwork(t *testing.T, state *dash.State, what string, condition func(dash.NetworkStatus) bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if condition(state.Snapshot().Network) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("gave up waiting for %s", what)
}

func TestHealthCheckCountsFailuresAndRecovers(t *testing.T) {
	must, _ := hamlet.Specifications(t)

	cfg := testConfig(t)
	cfg.NetworkCheckInterval = 10 * time.Millisecond
	state := dash.New(cfg)
	defer state.Shutdown()

	var healthy atomic.Bool
	probe := func(timeout time.Duration) (time.Duration, error) {
		if !healthy.Load() {
			return 0, errors.New("connection refused")
		}
		return 7 * time.Millisecond, nil
	}
	go dash.HealthCheck(state, probe)

	waitForNetwork(t, state, "repeated failures", func(network dash.NetworkStatus) bool {
		return !network.Connected && network.ConsecutiveFailures >= 2
	})

	healthy.Store(true)
	waitForNetwork(t, state, "recovery", func(network dash.NetworkStatus) bool {
		return network.Connected && network.ConsecutiveFailures == 0
	})

	snapshot := state.Snapshot()
	must.Equal(int64(7), snapshot.Network.LatencyMs)
	must.True(snapshot.Metrics.Goroutines > 0)

	restored := false
	for _, entry := range state.Events.All() {
		if entry.Message == "network connectivity restored" {
			restored = true
		}
	}
	must.True(restored)
}

func TestTCPProbeAgainstLocalListener(t *testing.T) {
	must, wont := hamlet.Specifications(t)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	must.Nil(err)
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	latency, err := dash.TCPProbe(listener.Addr().String())(time.Second)
	must.Nil(err)
	must.True(latency >= 0)

	listener.Close()
	_, err = dash.TCPProbe(listener.Addr().String())(100 * time.Millisecond)
	wont.Nil(err)
}
