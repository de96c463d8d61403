// Package agent wires the CLI configuration into a running core agent:
// it owns socket construction, signal-driven shutdown, and the blocking
// Run call.
package agent

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	coreagent "github.com/rancher/netagentd/internal/agent"
	"github.com/rancher/netagentd/internal/rules"
	"github.com/rancher/netagentd/pkg/cli/cmds"
	"github.com/rancher/netagentd/pkg/signals"
)

// livenessWindow bounds how long a socket may go without traffic before
// TimedOut reports true; five poll intervals gives upstreams room for a
// couple of missed heartbeats before the agent reconnects.
const livenessWindow = 5 * coreagent.DefaultPollTimeout

// Run constructs the transport sockets and packet-filter shim from
// cmds.AgentConfig and runs the core event loop until a shutdown signal
// arrives.
func Run(clx *cli.Context) error {
	ctx := signals.SetupSignalContext()

	cfg := cmds.AgentConfig
	if cfg.Hostname == "" {
		logrus.Fatal("hostname must be configured")
	}

	sockets, err := dialSockets(ctx, cfg.EndpointPluginAddr, cfg.ACLManagerAddr, cfg.Hostname)
	if err != nil {
		return err
	}

	shim, err := rules.New()
	if err != nil {
		return err
	}

	a := coreagent.New(sockets, shim, coreagent.Config{
		Hostname:       cfg.Hostname,
		ResyncInterval: cfg.ResyncInterval,
	})

	coreagent.MustRegister(prometheus.DefaultRegisterer)
	serveMetrics(cfg.MetricsAddr)

	logrus.WithField("hostname", cfg.Hostname).Info("netagentd starting")
	return a.Run(ctx)
}

// serveMetrics starts the Prometheus exposition endpoint in the
// background if addr is non-empty; a bind failure is logged, not fatal,
// since metrics are ambient and must never block the agent's own startup.
func serveMetrics(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logrus.WithError(err).Error("metrics listener exited")
		}
	}()
}
