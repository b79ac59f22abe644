package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/backup"
	"github.com/lherron/pipeboard/internal/cli/appctx"
	"github.com/lherron/pipeboard/internal/config"
	"github.com/lherron/pipeboard/internal/snapshot"
)

var backupAdmCmd = &cobra.Command{
	Use:   "backup",
	Short: "Push and pull snapshots to S3-compatible storage",
	Long: `Commands for keeping canonical snapshots in an S3 bucket (or MinIO).

The bucket, region, endpoint and key prefix come from the backup section of the
config file or the PIPEBOARD_BACKUP_S3_* environment variables. Credentials use
the standard AWS chain.`,
}

var backupPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Export the backend and upload the snapshot",
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.DefaultOptions(), runBackupPush),
}

var backupPullCmd = &cobra.Command{
	Use:   "pull [key]",
	Short: "Download a snapshot and import it",
	Long: `Pull downloads the snapshot stored under key (the newest one when no key is
given), verifies its snapshot_rev, and imports it into the backend.`,
	Args: cobra.MaximumNArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runBackupPull),
}

var backupLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored snapshots, oldest first",
	Args:  cobra.NoArgs,
	RunE:  appctx.WithApp(appctx.ConfigOnly(), runBackupLs),
}

var (
	backupPullReplace bool
	backupPullDryRun  bool
	backupLsFormat    formatFlags
)

func init() {
	rootAdmCmd.AddCommand(backupAdmCmd)
	backupAdmCmd.AddCommand(backupPushCmd)
	backupAdmCmd.AddCommand(backupPullCmd)
	backupAdmCmd.AddCommand(backupLsCmd)

	backupPullCmd.Flags().BoolVar(&backupPullReplace, "replace", false, "Remove existing data rows before import")
	backupPullCmd.Flags().BoolVar(&backupPullDryRun, "dry-run", false, "Validate only, don't write to the backend")
	backupLsFormat.register(backupLsCmd)
}

// openBackup builds the backup store from the loaded config.
func openBackup(ctx context.Context, cfg *config.Config) (*backup.Store, error) {
	if cfg.Backup.Bucket == "" {
		return nil, exitError(2, fmt.Errorf("backup bucket not configured (set backup.bucket or PIPEBOARD_BACKUP_S3_BUCKET)"))
	}
	store, err := backup.New(ctx, backup.Config{
		Bucket:    cfg.Backup.Bucket,
		Region:    cfg.Backup.Region,
		Endpoint:  cfg.Backup.Endpoint,
		PathStyle: cfg.Backup.PathStyle,
		Prefix:    cfg.Backup.Prefix,
	})
	if err != nil {
		return nil, exitError(1, err)
	}
	return store, nil
}

func runBackupPush(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	store, err := openBackup(ctx, app.Config)
	if err != nil {
		return err
	}

	snap, _, err := snapshot.Export(ctx, app.Sheets, snapshot.ExportOptions{})
	if err != nil {
		return exitError(1, fmt.Errorf("failed to export snapshot: %w", err))
	}
	key, err := store.Push(ctx, snap)
	if err != nil {
		return exitError(1, err)
	}
	app.Logger.Info("backup pushed", "bucket", store.Bucket(), "key", key, "rows", snap.RowCount())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Pushed snapshot to s3://%s/%s\n", store.Bucket(), key)
	fmt.Fprintf(out, "  snapshot_rev: %s\n", snap.Meta.SnapshotRev)
	fmt.Fprintf(out, "  tables: %d, rows: %d\n", len(snap.Tables), snap.RowCount())
	return nil
}

func runBackupPull(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	store, err := openBackup(ctx, app.Config)
	if err != nil {
		return err
	}

	var key string
	if len(args) == 1 {
		key = args[0]
	} else {
		key, err = store.Latest(ctx)
		if err != nil {
			return exitError(1, err)
		}
	}

	snap, err := store.Pull(ctx, key)
	if err != nil {
		return exitError(1, err)
	}
	result, err := snapshot.Import(ctx, app.Sheets, snap, snapshot.ImportOptions{
		Replace: backupPullReplace,
		DryRun:  backupPullDryRun,
	})
	if err != nil {
		return exitError(1, err)
	}

	out := cmd.OutOrStdout()
	if result.DryRun {
		fmt.Fprintf(out, "✓ Validated s3://%s/%s (dry run)\n", store.Bucket(), key)
	} else {
		fmt.Fprintf(out, "✓ Restored s3://%s/%s\n", store.Bucket(), key)
	}
	fmt.Fprintf(out, "  snapshot_rev: %s\n", result.SnapshotRev)
	fmt.Fprintf(out, "  tables: %d, rows: %d\n", result.Tables, result.Rows)
	return nil
}

func runBackupLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	store, err := openBackup(ctx, app.Config)
	if err != nil {
		return err
	}
	objects, err := store.List(ctx)
	if err != nil {
		return exitError(1, err)
	}

	items := make([]any, len(objects))
	rows := make([][]string, len(objects))
	for i, obj := range objects {
		items[i] = obj
		rows[i] = []string{obj.Key, strconv.FormatInt(obj.Size, 10), snapshot.FormatTimestamp(obj.LastModified)}
	}
	return backupLsFormat.renderer(cmd.OutOrStdout()).Render(objects, items, []string{"key", "size", "last_modified"}, rows)
}
