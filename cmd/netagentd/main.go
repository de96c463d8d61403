package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	cliagent "github.com/rancher/netagentd/pkg/cli/agent"
	"github.com/rancher/netagentd/pkg/cli/cmds"
)

func main() {
	app := cmds.NewApp()
	app.Commands = []*cli.Command{
		cmds.NewAgentCommand(cmds.InitLogging(cliagent.Run)),
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "netagentd: %v\n", err)
		os.Exit(1)
	}
}
