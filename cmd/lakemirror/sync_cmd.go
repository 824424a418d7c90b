package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/lakemirror/lakemirror/internal/mirror"
	"github.com/lakemirror/lakemirror/internal/source"
	"github.com/lakemirror/lakemirror/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.AddCommand(newSyncCmd())
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror a remote directory index into a destination volume",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindSyncConfig(cmd)
		},
		RunE: runSync,
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("source", "s", "", "Remote directory index URL")
	cmd.Flags().StringP("dest", "d", "", "Destination volume: a directory or s3://bucket/prefix")
	cmd.Flags().StringP("contact", "c", "", "Contact added to the User-Agent so the source can identify the caller")
	cmd.Flags().IntP("workers", "w", mirror.DefaultWorkers, "Concurrent transfer workers")
	cmd.Flags().StringArrayP("exclude", "x", nil, "Glob pattern of names to leave out (repeatable)")
	cmd.Flags().String("s3-region", "", "S3 region override")
	cmd.Flags().String("s3-endpoint", "", "Custom S3 endpoint (MinIO style)")
	cmd.Flags().Bool("dry-run", false, "Compute and print the plan without transferring anything")
	cmd.Flags().Bool("json", false, "Emit the run summary as JSON on stdout")

	return cmd
}

func bindSyncConfig(cmd *cobra.Command) error {
	for flag, key := range map[string]string{
		"source":      "source",
		"dest":        "dest",
		"contact":     "contact",
		"workers":     "workers",
		"exclude":     "excludes",
		"s3-region":   "s3_region",
		"s3-endpoint": "s3_endpoint",
	} {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	viper.SetEnvPrefix("LAKEMIRROR")
	viper.AutomaticEnv()
	return nil
}

func s3ConfigFromViper() *store.S3Config {
	return &store.S3Config{
		Region:    viper.GetString("s3_region"),
		Endpoint:  viper.GetString("s3_endpoint"),
		AccessKey: viper.GetString("s3_access_key"),
		SecretKey: viper.GetString("s3_secret_key"),
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	sourceURL := viper.GetString("source")
	dest := viper.GetString("dest")
	if sourceURL == "" || dest == "" {
		return fmt.Errorf("both --source and --dest are required")
	}

	cmd.SilenceUsage = true
	ctx := cmd.Context()

	src, err := source.New(&source.Config{
		URL:     sourceURL,
		Contact: viper.GetString("contact"),
	})
	if err != nil {
		return err
	}

	dst, err := store.Open(ctx, dest, s3ConfigFromViper())
	if err != nil {
		return err
	}

	m, err := mirror.New(src, dst, mirror.Options{
		Workers:  viper.GetInt("workers"),
		Excludes: viper.GetStringSlice("excludes"),
	})
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		plan, err := m.Plan(ctx)
		if err != nil {
			return err
		}
		return printPlan(plan, jsonOut)
	}

	result, err := m.Run(ctx)
	if err != nil {
		return err
	}

	if jsonOut {
		if err := emitJSON(result); err != nil {
			return err
		}
	}

	if result.Outcome == mirror.OutcomePartial {
		return fmt.Errorf("sync partial: %d file(s) failed", len(result.Errors))
	}
	return nil
}

func printPlan(plan *mirror.SyncPlan, jsonOut bool) error {
	if jsonOut {
		return emitJSON(plan)
	}

	for _, entry := range plan.ToAdd {
		fmt.Printf("+ %s\n", entry.Name)
	}
	for _, name := range plan.ToRemove {
		fmt.Printf("- %s\n", name)
	}
	fmt.Printf("plan: %d to add, %d to remove, %d unchanged\n",
		len(plan.ToAdd), len(plan.ToRemove), len(plan.Unchanged))
	return nil
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
