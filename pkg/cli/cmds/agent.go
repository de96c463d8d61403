package cmds

import (
	"time"

	"github.com/urfave/cli/v2"
)

// Agent holds the configuration recognized by the daemon: socket
// endpoints for the two upstreams, the periodic resync interval, and the
// hostname this host identifies itself with on RESYNC requests.
type Agent struct {
	EndpointPluginAddr string
	ACLManagerAddr     string
	ResyncInterval     time.Duration
	Hostname           string
	MetricsAddr        string
}

var AgentConfig Agent

var (
	EndpointPluginAddrFlag = &cli.StringFlag{
		Name:        "endpoint-plugin-addr",
		Usage:       "Address of the endpoint plugin's REQ/REP socket pair",
		EnvVars:     []string{"NETAGENTD_ENDPOINT_PLUGIN_ADDR"},
		Value:       "tcp://127.0.0.1:5556",
		Destination: &AgentConfig.EndpointPluginAddr,
	}
	ACLManagerAddrFlag = &cli.StringFlag{
		Name:        "acl-manager-addr",
		Usage:       "Address of the ACL manager's REQ/SUB socket pair",
		EnvVars:     []string{"NETAGENTD_ACL_MANAGER_ADDR"},
		Value:       "tcp://127.0.0.1:5557",
		Destination: &AgentConfig.ACLManagerAddr,
	}
	ResyncIntervalFlag = &cli.DurationFlag{
		Name:        "resync-interval",
		Usage:       "Interval between periodic total endpoint resyncs",
		EnvVars:     []string{"NETAGENTD_RESYNC_INT_SEC"},
		Value:       5 * time.Minute,
		Destination: &AgentConfig.ResyncInterval,
	}
	HostnameFlag = &cli.StringFlag{
		Name:        "hostname",
		Usage:       "Hostname this agent identifies itself with on resync",
		EnvVars:     []string{"NETAGENTD_HOSTNAME"},
		Destination: &AgentConfig.Hostname,
	}
	MetricsAddrFlag = &cli.StringFlag{
		Name:        "metrics-listen-addr",
		Usage:       "Address to serve Prometheus metrics on; empty disables it",
		EnvVars:     []string{"NETAGENTD_METRICS_ADDR"},
		Destination: &AgentConfig.MetricsAddr,
	}
)

// NewAgentCommand returns the "agent" subcommand running action. The
// config file (if any) is applied in Before, after urfave/cli has already
// populated AgentConfig/LogConfig from flags and environment, so a file
// value only takes effect for a field the user did not explicitly set on
// the command line or in the environment.
func NewAgentCommand(action cli.ActionFunc) *cli.Command {
	return &cli.Command{
		Name:  "agent",
		Usage: "Run the host-local network agent",
		Before: func(ctx *cli.Context) error {
			return LoadConfigFile(ctx, ConfigFileFlag.Name)
		},
		Action: action,
		Flags: []cli.Flag{
			EndpointPluginAddrFlag,
			ACLManagerAddrFlag,
			ResyncIntervalFlag,
			HostnameFlag,
			MetricsAddrFlag,
			ConfigFileFlag,
			LogFileFlag,
			LogLevelFileFlag,
			LogLevelSyslogFlag,
			LogLevelConsoleFlag,
		},
	}
}
