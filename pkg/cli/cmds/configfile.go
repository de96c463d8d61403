package cmds

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v2"
)

// ConfigFileFlag names an optional on-disk static YAML config file.
var ConfigFileFlag = &cli.StringFlag{
	Name:    "config",
	Usage:   "Path to a YAML config file for socket addresses, resync interval and logging",
	EnvVars: []string{"NETAGENTD_CONFIG_FILE"},
}

// fileConfig mirrors the subset of Agent and Log fields a static config
// file may set.
type fileConfig struct {
	EndpointPluginAddr string `yaml:"endpointPluginAddr"`
	ACLManagerAddr     string `yaml:"aclManagerAddr"`
	ResyncIntervalSec  int    `yaml:"resyncIntervalSec"`
	Hostname           string `yaml:"hostname"`
	MetricsAddr        string `yaml:"metricsListenAddr"`

	LogFile         string `yaml:"logFile"`
	LogLevelFile    string `yaml:"logLevelFile"`
	LogLevelSyslog  string `yaml:"logLevelSyslog"`
	LogLevelConsole string `yaml:"logLevelConsole"`
}

// LoadConfigFile reads the file named by the flag flagName and applies
// its contents onto AgentConfig/LogConfig, skipping any field whose flag
// was explicitly set on the command line or via environment variable. A
// missing flag value is not an error; the config file is optional.
func LoadConfigFile(ctx *cli.Context, flagName string) error {
	path := ctx.String(flagName)
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config file %s", path)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return errors.Wrapf(err, "parsing config file %s", path)
	}

	if fc.EndpointPluginAddr != "" && !ctx.IsSet(EndpointPluginAddrFlag.Name) {
		AgentConfig.EndpointPluginAddr = fc.EndpointPluginAddr
	}
	if fc.ACLManagerAddr != "" && !ctx.IsSet(ACLManagerAddrFlag.Name) {
		AgentConfig.ACLManagerAddr = fc.ACLManagerAddr
	}
	if fc.ResyncIntervalSec > 0 && !ctx.IsSet(ResyncIntervalFlag.Name) {
		AgentConfig.ResyncInterval = time.Duration(fc.ResyncIntervalSec) * time.Second
	}
	if fc.Hostname != "" && !ctx.IsSet(HostnameFlag.Name) {
		AgentConfig.Hostname = fc.Hostname
	}
	if fc.MetricsAddr != "" && !ctx.IsSet(MetricsAddrFlag.Name) {
		AgentConfig.MetricsAddr = fc.MetricsAddr
	}
	if fc.LogFile != "" && !ctx.IsSet(LogFileFlag.Name) {
		LogConfig.LogFile = fc.LogFile
	}
	if fc.LogLevelFile != "" && !ctx.IsSet(LogLevelFileFlag.Name) {
		LogConfig.LogLevelFile = fc.LogLevelFile
	}
	if fc.LogLevelSyslog != "" && !ctx.IsSet(LogLevelSyslogFlag.Name) {
		LogConfig.LogLevelSys = fc.LogLevelSyslog
	}
	if fc.LogLevelConsole != "" && !ctx.IsSet(LogLevelConsoleFlag.Name) {
		LogConfig.LogLevelScr = fc.LogLevelConsole
	}
	return nil
}
