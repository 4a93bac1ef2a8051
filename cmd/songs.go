package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/desertthunder/songrelay/internal/formatter"
	"github.com/desertthunder/songrelay/internal/library"
	"github.com/desertthunder/songrelay/internal/models"
	"github.com/desertthunder/songrelay/internal/shared"
	"github.com/desertthunder/songrelay/internal/tasks"
	"github.com/desertthunder/songrelay/internal/ui"
	"github.com/urfave/cli/v3"
)

// songsLibrary picks the Drive-backed library, or a remote relay when --remote is set.
func (r *Runner) songsLibrary(ctx context.Context, cmd *cli.Command) (*library.Library, error) {
	if remote := cmd.String("remote"); remote != "" {
		return r.remoteLibrary(remote), nil
	}
	return r.library(ctx)
}

// SongsList prints every song with its slug and URL.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")

	lib, err := r.songsLibrary(ctx, cmd)
	if err != nil {
		return err
	}

	entries, err := lib.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list songs: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: folder %s is empty", shared.ErrNoSongs, lib.FolderID())
	}

	r.logger.Debug("listed songs", "count", len(entries), "folder", lib.FolderID())

	data, err := formatter.FormatListings(library.Listings(entries, r.baseURL(cmd)), format)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// baseURL resolves the link prefix for listings: --base-url, then --remote, then server.public_url, then localhost.
func (r *Runner) baseURL(cmd *cli.Command) string {
	for _, candidate := range []string{cmd.String("base-url"), cmd.String("remote"), r.config.Server.PublicURL} {
		if candidate != "" {
			return strings.TrimRight(candidate, "/")
		}
	}
	return fmt.Sprintf("http://localhost:%d", r.config.Server.Port)
}

// SongsGet downloads one song, matched by exact name or by slug, to a file or stdout.
func (r *Runner) SongsGet(ctx context.Context, cmd *cli.Command) error {
	name := cmd.StringArg("name")
	if name == "" {
		return fmt.Errorf("%w: song name or slug", shared.ErrMissingArgument)
	}
	output := cmd.String("output")

	lib, err := r.songsLibrary(ctx, cmd)
	if err != nil {
		return err
	}

	var entry *models.FileEntry
	if cmd.Bool("slug") {
		entry, err = lib.FindBySlug(ctx, name)
	} else {
		entry, err = lib.FindByName(ctx, name)
	}
	if err != nil {
		return err
	}

	r.logger.Info("downloading song", "name", entry.Name, "id", entry.ID)

	body, err := lib.Open(ctx, *entry)
	if err != nil {
		return err
	}
	defer body.Close()

	if output == "" {
		if _, err := io.Copy(r.output, body); err != nil {
			return fmt.Errorf("failed to write song: %w", err)
		}
		return nil
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	n, err := io.Copy(f, body)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(output)
		return fmt.Errorf("failed to write song: %w", err)
	}

	r.writePlain("%s %s -> %s (%s)\n", ui.Styles.OK("✓"), entry.Name, output, formatter.FormatBytes(n))
	return nil
}

// SongsPull downloads the whole folder into a directory, reporting progress as it goes.
func (r *Runner) SongsPull(ctx context.Context, cmd *cli.Command) error {
	opts := tasks.PullOpts{
		OutputDir:  r.config.Pull.OutputDir,
		NumWorkers: r.config.Pull.Workers,
		RateLimit:  r.config.Pull.RateLimit,
	}
	if cmd.IsSet("output") {
		opts.OutputDir = cmd.String("output")
	}
	if cmd.IsSet("workers") {
		if opts.NumWorkers = int(cmd.Int("workers")); opts.NumWorkers <= 0 {
			return fmt.Errorf("%w: --workers must be positive", shared.ErrInvalidFlag)
		}
	}
	if cmd.IsSet("rate") {
		if opts.RateLimit = cmd.Float("rate"); opts.RateLimit <= 0 {
			return fmt.Errorf("%w: --rate must be positive", shared.ErrInvalidFlag)
		}
	}

	lib, err := r.library(ctx)
	if err != nil {
		return err
	}

	useJSON := cmd.Bool("json")

	var prog chan tasks.ProgressUpdate
	done := make(chan struct{})
	if useJSON {
		close(done)
	} else {
		prog = make(chan tasks.ProgressUpdate, 16)
		go func() {
			defer close(done)
			ui.PrintProgress(r.output, prog)
		}()
	}

	manifest, err := tasks.NewPuller(lib, r.logger).Pull(ctx, prog, opts)
	if prog != nil {
		close(prog)
	}
	<-done

	if manifest == nil {
		return err
	}

	if useJSON {
		if jsonErr := r.writeJSON(manifest, true); jsonErr != nil {
			return jsonErr
		}
		return err
	}

	title := ui.Styles.Title("Pull complete")
	if manifest.Failed > 0 {
		title = ui.Styles.Err(fmt.Sprintf("Pull finished with %d failed", manifest.Failed))
	}
	r.writePlainln("%s", title)
	r.writePlain("%s", formatter.PullSummary(manifest))
	if err != nil {
		return err
	}
	if manifest.Failed > 0 {
		r.logger.Warn("some songs failed to download", "failed", manifest.Failed, "total", manifest.Total)
	}
	return nil
}
