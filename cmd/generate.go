// File: cmd/generate.go
package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sankalpgunturi/stagehand/api/schemas"
	"github.com/sankalpgunturi/stagehand/internal/cache"
	"github.com/sankalpgunturi/stagehand/internal/codegen"
	"github.com/sankalpgunturi/stagehand/internal/llmclient"
	"github.com/sankalpgunturi/stagehand/internal/observability"
)

// cacheSource feeds previously recorded steps to the generator straight from
// the store, without constructing a recorder (which would wipe them).
type cacheSource struct {
	store *cache.Store
	log   *zap.Logger
}

func (c cacheSource) GetAllActions() []cache.Entry {
	entries, err := c.store.All()
	if err != nil {
		c.log.Warn("Failed to read recorded actions; generating bare skeleton", zap.Error(err))
		return nil
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return entries
}

// newGenerateCmd creates and configures the `generate` command.
func newGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Synthesizes test source code from the recorded action sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := appConfig

			language, _ := cmd.Flags().GetString("language")
			framework, _ := cmd.Flags().GetString("framework")
			outputPath, _ := cmd.Flags().GetString("output")

			store, err := cache.New(cfg.Cache, logger)
			if err != nil {
				return err
			}

			// The LLM collaborator is only wired when the target framework
			// needs conversion; native generation must work offline.
			var client schemas.LLMClient
			if framework != "" && framework != codegen.NativeFramework {
				client, err = llmclient.NewClient(cfg.LLM, logger)
				if err != nil {
					return fmt.Errorf("framework %q needs the conversion collaborator: %w", framework, err)
				}
			}

			gen := codegen.NewGenerator(cacheSource{store: store, log: logger}, client, logger)
			code, err := gen.GenerateCode(ctx, language, framework)
			if err != nil {
				return err
			}

			if outputPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), code)
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(code+"\n"), 0o644); err != nil {
				return fmt.Errorf("failed to write generated code to %q: %w", outputPath, err)
			}
			logger.Info("Generated code written",
				zap.String("output", outputPath),
				zap.String("language", language),
				zap.String("framework", framework))
			return nil
		},
	}

	generateCmd.Flags().String("language", codegen.LanguageTypeScript, "output language: typescript or python")
	generateCmd.Flags().String("framework", codegen.NativeFramework, "target test framework; non-playwright values go through the LLM converter")
	generateCmd.Flags().String("output", "", "file to write the generated code to (default: stdout)")

	return generateCmd
}

func init() {
	rootCmd.AddCommand(newGenerateCmd())
}
