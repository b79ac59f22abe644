package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lherron/pipeboard/internal/cli/appctx"
	"github.com/lherron/pipeboard/internal/config"
)

var configAdmCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Displays the configuration after defaults, the YAML file, .env.local,
environment variables and command-line flags have been applied, and validates
it. Credentials embedded in connection URLs are redacted.`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.ConfigOnly(), runConfigAdm),
}

var configAdmFormat formatFlags

func init() {
	rootAdmCmd.AddCommand(configAdmCmd)
	configAdmFormat.register(configAdmCmd)
}

func runConfigAdm(app *appctx.App, cmd *cobra.Command, args []string) error {
	cfg := *app.Config
	cfg.DatabaseURL = redactURL(cfg.DatabaseURL)
	cfg.RedisURL = redactURL(cfg.RedisURL)

	r := configAdmFormat.renderer(cmd.OutOrStdout())
	if configAdmFormat.json || configAdmFormat.yaml {
		return r.Render(configView(&cfg), nil, nil, nil)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to encode config: %w", err))
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// configView keys the configuration the way the YAML file does.
func configView(cfg *config.Config) map[string]any {
	return map[string]any{
		"backend":      cfg.Backend,
		"db_path":      cfg.DBPath,
		"database_url": cfg.DatabaseURL,
		"redis_url":    cfg.RedisURL,
		"redis_prefix": cfg.RedisPrefix,
		"addr":         cfg.Addr,
		"variant":      cfg.Variant,
		"cors_origin":  cfg.CORSOrigin,
		"log_level":    cfg.LogLevel,
		"log_format":   cfg.LogFormat,
		"webhook_urls": cfg.WebhookURLs,
		"backup": map[string]any{
			"bucket":     cfg.Backup.Bucket,
			"region":     cfg.Backup.Region,
			"endpoint":   cfg.Backup.Endpoint,
			"path_style": cfg.Backup.PathStyle,
			"prefix":     cfg.Backup.Prefix,
		},
	}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}
	return u.Redacted()
}
