// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/desertthunder/songrelay/internal/formatter"
	"github.com/urfave/cli/v3"
)

// rootCommand builds the application with its global flags and the runner's commands.
func rootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "songrelay",
		Usage:   "Stream songs from a Google Drive folder over HTTP",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a dotenv file loaded before reading the environment",
				Value: ".env",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.Before,
		Commands: r.register(),
	}
}

// serveCommand runs the HTTP relay.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on (default: all)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (default: server.port or $PORT)",
			},
		},
		Action: r.Serve,
	}
}

// songsCommand handles operations on the configured folder
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Inspect and download songs from the folder",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List songs with their slugs and URLs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: " + strings.Join(formatter.Formats, ", "),
						Value:   formatter.FormatText,
					},
					&cli.StringFlag{
						Name:  "base-url",
						Usage: "Base URL used to build song links (default: server.public_url or localhost)",
					},
					&cli.StringFlag{
						Name:  "remote",
						Usage: "Read from a running relay at this URL instead of Drive",
					},
				},
				Action: r.SongsList,
			},
			{
				Name:  "get",
				Usage: "Download a single song by name or slug",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "name",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "slug",
						Usage: "Treat the argument as a slug instead of an exact file name",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: stdout)",
					},
					&cli.StringFlag{
						Name:  "remote",
						Usage: "Read from a running relay at this URL instead of Drive",
					},
				},
				Action: r.SongsGet,
			},
			{
				Name:  "pull",
				Usage: "Download every song in the folder",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: pull.output_dir)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent downloads, at most 10 (default: pull.workers)",
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Store requests per second (default: pull.rate_limit)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the manifest as JSON instead of a summary",
					},
				},
				Action: r.SongsPull,
			},
		},
	}
}

// setupCommand handles first-run setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Usage: "Where to write the template",
						Value: "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}
