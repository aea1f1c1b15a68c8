package main

import (
	"amuletbot/internal"
	"amuletbot/internal/di"
	"amuletbot/internal/structures"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "amuletbot",
		Usage: "Discord amulet game bot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "also write logs to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "connect to Discord and serve the HTTP API",
				Action: func(c *cli.Context) error {
					app, err := initApp(c)
					if err != nil {
						return err
					}
					return app.Run()
				},
			},
			{
				Name:  "backup",
				Usage: "copy the document into the backup directory",
				Action: func(c *cli.Context) error {
					app, err := initApp(c)
					if err != nil {
						return err
					}
					path, err := app.Backup()
					if err != nil {
						return err
					}
					fmt.Printf("Backup created: %s\n", path)
					return nil
				},
			},
			{
				Name:  "deploy-commands",
				Usage: "register the slash commands with Discord",
				Action: func(c *cli.Context) error {
					app, err := initApp(c)
					if err != nil {
						return err
					}
					n, err := app.DeployCommands()
					if err != nil {
						return err
					}
					fmt.Printf("Successfully reloaded %d application (/) commands.\n", n)
					return nil
				},
			},
		},
		DefaultCommand: "run",
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func initApp(c *cli.Context) (*internal.App, error) {
	return di.InitApp(&structures.CliFlags{
		ConfigPath: c.String("config"),
		DebugMode:  c.Bool("debug"),
	})
}
