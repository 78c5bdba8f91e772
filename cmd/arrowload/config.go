package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/arrowload/pkg/config"
	"github.com/ajitpratap0/arrowload/pkg/errors"
	"github.com/ajitpratap0/arrowload/pkg/logger"
)

func newConfigCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration a load would run with, after merging defaults, the
--config file and ARROWLOAD_* environment variables. With --output the YAML is
written to a file that can be passed back through --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings(cmd, map[string]string{})
			if err != nil {
				return err
			}
			if output != "" {
				if err := config.Save(output, cfg); err != nil {
					return errors.Wrap(err, errors.ErrorTypeConfig, "cannot write configuration")
				}
				logger.Info("configuration written", zap.String("path", output))
				return nil
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the configuration to this file")
	return cmd
}
