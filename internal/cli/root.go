package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BartekS5/reviewflow/internal/config"
	"github.com/BartekS5/reviewflow/internal/etl"
	"github.com/BartekS5/reviewflow/internal/lake"
	"github.com/BartekS5/reviewflow/internal/metrics"
	"github.com/BartekS5/reviewflow/pkg/database"
	"github.com/BartekS5/reviewflow/pkg/logger"
)

// GlobalOptions are flags shared by every sub-command.
type GlobalOptions struct {
	TablesFile string
	LogToMongo bool
}

func NewRootCmd() *cobra.Command {
	opts := &GlobalOptions{}
	rootCmd := &cobra.Command{
		Use:   "reviewflow",
		Short: "reviewflow - review ingestion and data-quality pipeline",
		Long: `reviewflow lands source tables from Postgres in S3, joins them into review
records, splits them into clean and rejected sets, and loads the clean set into
the SQL Server warehouse and the rejected set into MongoDB.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.TablesFile, "tables", "", "Path to a table manifest (JSON); defaults to the built-in table list")
	rootCmd.PersistentFlags().BoolVar(&opts.LogToMongo, "log-to-mongo", false, "Also write logs to MongoDB (MONGO_LOG_DATABASE)")

	rootCmd.AddCommand(
		NewExtractCmd(opts),
		NewTransformCmd(opts),
		NewRunCmd(opts),
		NewSetupCmd(opts),
		NewStatsCmd(opts),
		NewServeCmd(opts),
		NewValidateCmd(),
	)
	return rootCmd
}

// app carries configuration and lazily opened connections for one command.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics

	mongo   *mongo.Client
	closers []func()
}

func newApp(ctx context.Context, opts *GlobalOptions, reqs ...config.Requirement) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.LogToMongo {
		reqs = append(reqs, config.NeedMongo)
	}
	if err := cfg.Require(reqs...); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, metrics: metrics.New()}
	var sinks []io.Writer
	if opts.LogToMongo {
		client, err := a.mongoClient(ctx)
		if err != nil {
			return nil, err
		}
		coll := client.Database(cfg.MongoLogDatabase).Collection(etl.LogsCollection)
		sinks = append(sinks, logger.NewMongoWriter(coll, "reviewflow"))
	}
	a.log = logger.New(cfg.AppEnv, cfg.LogLevel, sinks...)
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) mongoClient(ctx context.Context) (*mongo.Client, error) {
	if a.mongo != nil {
		return a.mongo, nil
	}
	client, err := database.ConnectMongo(ctx, a.cfg.MongoConnString)
	if err != nil {
		return nil, err
	}
	a.mongo = client
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	})
	return client, nil
}

func (a *app) mongoDB(ctx context.Context) (*mongo.Database, error) {
	client, err := a.mongoClient(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(a.cfg.MongoDatabase), nil
}

func (a *app) postgres(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := database.ConnectPostgres(ctx, a.cfg.PostgresConnString, 8)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)
	return pool, nil
}

func (a *app) warehouse(ctx context.Context) (*sql.DB, error) {
	db, err := database.ConnectWarehouse(ctx, a.cfg.WarehouseConnString)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = db.Close() })
	return db, nil
}

func (a *app) lake(ctx context.Context) (*lake.S3Store, error) {
	store, err := lake.NewS3Store(ctx, lake.Options{
		Bucket:   a.cfg.S3Bucket,
		Region:   a.cfg.S3Region,
		Endpoint: a.cfg.S3Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return store, nil
}
