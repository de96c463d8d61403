package cmds

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/urfave/cli/v2"
)

const version = "0.1.0"

var appName = filepath.Base(os.Args[0])

var (
	Debug     bool
	DebugFlag = &cli.BoolFlag{
		Name:        "debug",
		Usage:       "(logging) Turn on debug logs",
		Destination: &Debug,
		EnvVars:     []string{"NETAGENTD_DEBUG"},
	}
)

// NewApp returns the root *cli.App, named after the running binary.
func NewApp() *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "Host-local network agent"
	app.Version = version
	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("%s version %s\n", c.App.Name, c.App.Version)
		fmt.Printf("go version %s\n", runtime.Version())
	}
	app.Flags = []cli.Flag{
		DebugFlag,
	}
	return app
}
