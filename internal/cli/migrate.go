package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/reviewflow/internal/etl"
)

// TransformOptions control one transform pass.
type TransformOptions struct {
	ProductID string
	Rules     string
	DryRun    bool
	Archive   bool
}

func (o *TransformOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.ProductID, "product-id", "p", "", "Only keep reviews linked to this product")
	cmd.Flags().StringVar(&o.Rules, "rules", string(etl.RulesFull), "Quality checks to apply: full, description or buyer")
	cmd.Flags().BoolVar(&o.DryRun, "dry-run", false, "Join and validate without writing to any sink")
	cmd.Flags().BoolVar(&o.Archive, "archive", false, "Also write the clean set as parquet to processed/<run_id>/")
}

func NewExtractCmd(g *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Land source tables from Postgres in the S3 raw zone",
		RunE: func(c *cobra.Command, args []string) error {
			return runExtract(c, g)
		},
	}
}

func NewTransformCmd(g *GlobalOptions) *cobra.Command {
	opts := &TransformOptions{}
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Join landed tables, validate reviews and load both partitions",
		RunE: func(c *cobra.Command, args []string) error {
			return runTransform(c, g, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func NewRunCmd(g *GlobalOptions) *cobra.Command {
	opts := &TransformOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Extract then transform in one go",
		RunE: func(c *cobra.Command, args []string) error {
			return runAll(c, g, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}
