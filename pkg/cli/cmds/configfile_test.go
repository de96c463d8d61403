package cmds

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestLoadConfigFileAppliesUnsetFields(t *testing.T) {
	AgentConfig = Agent{}
	LogConfig = Log{}

	dir := t.TempDir()
	path := filepath.Join(dir, "netagentd.yaml")
	contents := "endpointPluginAddr: tcp://10.0.0.1:5556\nresyncIntervalSec: 45\nhostname: host-a\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	app := &cli.App{
		Flags: []cli.Flag{ConfigFileFlag, EndpointPluginAddrFlag, HostnameFlag, ResyncIntervalFlag},
		Action: func(ctx *cli.Context) error {
			return LoadConfigFile(ctx, ConfigFileFlag.Name)
		},
	}

	err := app.Run([]string{"netagentd", "--config", path, "--hostname", "explicit-host"})
	require.NoError(t, err)

	assert.Equal(t, "tcp://10.0.0.1:5556", AgentConfig.EndpointPluginAddr)
	assert.Equal(t, 45*time.Second, AgentConfig.ResyncInterval)
	assert.Equal(t, "explicit-host", AgentConfig.Hostname, "explicit flag must win over config file")
}

func TestLoadConfigFileNoPath(t *testing.T) {
	AgentConfig = Agent{}
	app := &cli.App{
		Flags: []cli.Flag{ConfigFileFlag},
		Action: func(ctx *cli.Context) error {
			return LoadConfigFile(ctx, ConfigFileFlag.Name)
		},
	}
	require.NoError(t, app.Run([]string{"netagentd"}))
}
