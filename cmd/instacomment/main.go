// Package main provides the entry point for the instacomment agent.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/jmylchreest/instacomment/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "instacomment"
	app.HelpName = "instacomment"
	app.Usage = "comments on an Instagram user's posts on a schedule"
	app.UsageText = "instacomment [command] [arguments...]"
	app.Version = version.Get().String()
	app.Action = serve
	app.Commands = []cli.Command{
		{
			Name:   "serve",
			Usage:  "run the HTTP API and the scheduled comment job (default)",
			Action: serve,
		},
		{
			Name:   "run-once",
			Usage:  "run one comment batch in the foreground and exit",
			Action: runOnce,
		},
		{
			Name:   "check-cookies",
			Usage:  "report which required cookies are missing from the configured session",
			Action: checkCookies,
		},
		{
			Name:   "export-cookies",
			Usage:  "read Instagram cookies from a logged-in Chrome profile",
			Action: exportCookies,
			Flags:  exportFlags,
		},
		{
			Name:   "token",
			Usage:  "issue a bearer token for the API",
			Action: issueToken,
			Flags:  tokenFlags,
		},
		{
			Name:   "prune",
			Usage:  "delete old run history and compact the database",
			Action: prune,
		},
		{
			Name:  "version",
			Usage: "print build information",
			Action: func(*cli.Context) error {
				fmt.Println(version.Get().Long())
				return nil
			},
		},
	}
	return app
}
