package cli

import (
	"github.com/spf13/cobra"
)

func NewSetupCmd(g *GlobalOptions) *cobra.Command {
	var skipWarehouse bool
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create MongoDB indexes and the warehouse reviews table",
		RunE: func(c *cobra.Command, args []string) error {
			return runSetup(c, g, skipWarehouse)
		},
	}
	cmd.Flags().BoolVar(&skipWarehouse, "skip-warehouse", false, "Only prepare MongoDB")
	return cmd
}

func NewStatsCmd(g *GlobalOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Profile data quality of the source review table",
		RunE: func(c *cobra.Command, args []string) error {
			return runStats(c, g, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func NewServeCmd(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the run report API and Prometheus metrics",
		RunE: func(c *cobra.Command, args []string) error {
			return runServe(c, g)
		},
	}
}

// ValidateOptions drive offline validation of a joined CSV file.
type ValidateOptions struct {
	File     string
	Rules    string
	Rejected string
	Verbose  bool
}

func NewValidateCmd() *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a joined review CSV locally and report rejections",
		RunE: func(c *cobra.Command, args []string) error {
			return runValidate(c, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Joined review CSV to validate")
	cmd.Flags().StringVar(&opts.Rules, "rules", "full", "Quality checks to apply: full, description or buyer")
	cmd.Flags().StringVarP(&opts.Rejected, "rejected-out", "o", "", "Write rejected records as JSON lines to this file")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Log each check as it is applied")
	cmd.MarkFlagRequired("file")
	return cmd
}
