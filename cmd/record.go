// File: cmd/record.go
package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sankalpgunturi/stagehand/internal/browser"
	"github.com/sankalpgunturi/stagehand/internal/observability"
	"github.com/sankalpgunturi/stagehand/internal/recorder"
)

// newRecordCmd creates and configures the `record` command.
func newRecordCmd() *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record",
		Short: "Runs a recording script against a live page and caches every performed action",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so CLI values override config file and env.
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := appConfig

			scriptPath, _ := cmd.Flags().GetString("script")
			script, err := browser.LoadScript(scriptPath)
			if err != nil {
				return err
			}

			requestID, _ := cmd.Flags().GetString("request-id")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			// Recorder construction wipes any previous session's steps.
			rec, err := recorder.New(cfg.Cache, logger)
			if err != nil {
				return err
			}

			session, err := browser.NewSession(ctx, cfg.Browser, rec, requestID, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.Run(ctx, script); err != nil {
				return fmt.Errorf("recording failed: %w", err)
			}

			logger.Info("Recording complete",
				zap.String("requestId", requestID),
				zap.String("url", script.URL),
				zap.Int("steps", len(rec.GetAllActions())),
				zap.String("cache_file", cfg.Cache.Path()))
			return nil
		},
	}

	recordCmd.Flags().String("script", "", "path to the YAML recording script (required)")
	recordCmd.Flags().String("request-id", "", "request id to group this session's steps (default: random)")
	recordCmd.Flags().Bool("headless", true, "run the browser headless")
	_ = recordCmd.MarkFlagRequired("script")

	return recordCmd
}

func init() {
	rootCmd.AddCommand(newRecordCmd())
}
