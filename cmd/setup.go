package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/songrelay/internal/shared"
	"github.com/desertthunder/songrelay/internal/ui"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded config template.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("path")
	if path == "" {
		return fmt.Errorf("%w: --path", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)

	r.writePlain("%s Config written to %s\n", ui.Styles.OK("✓"), path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set drive.folder_id (or %s) to the folder holding your songs\n", shared.EnvFolderID)
	r.writePlain("2. Set drive.credentials_file (or %s) to a service account key\n", shared.EnvCredentials)
	r.writePlain("3. Run 'songrelay songs list' to check access, then 'songrelay serve'\n")
	r.writePlain("%s\n", ui.Styles.Help("Values in .env are loaded automatically"))
	return nil
}
