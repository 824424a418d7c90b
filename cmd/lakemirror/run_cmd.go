package main

import (
	"fmt"

	"github.com/lakemirror/lakemirror/internal/ingest"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute every job in a manifest once",
		RunE:  runManifest,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("manifest", "m", "lakemirror.yaml", "Manifest file with mirror and dataset jobs")
	cmd.Flags().StringP("contact", "c", "", "Override the manifest contact")
	cmd.Flags().IntP("parallel", "p", 0, "Jobs running at once (0 = default)")
	cmd.Flags().String("s3-region", "", "S3 region override")
	cmd.Flags().String("s3-endpoint", "", "Custom S3 endpoint (MinIO style)")

	return cmd
}

func runManifest(cmd *cobra.Command, args []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")

	manifest, err := ingest.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	if contact, _ := cmd.Flags().GetString("contact"); contact != "" {
		manifest.Contact = contact
	}

	cmd.SilenceUsage = true

	for flag, key := range map[string]string{
		"s3-region":   "s3_region",
		"s3-endpoint": "s3_endpoint",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}
	viper.SetEnvPrefix("LAKEMIRROR")
	viper.AutomaticEnv()

	parallel, _ := cmd.Flags().GetInt("parallel")
	runner := ingest.NewRunner(manifest, s3ConfigFromViper(), parallel)
	results := runner.Run(cmd.Context())

	failed := 0
	for _, res := range results {
		if !res.Clean() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d job(s) did not finish clean", failed, len(results))
	}
	return nil
}
