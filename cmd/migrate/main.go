package main

import (
	"context"
	"fmt"
	"os"
	"time"

	mongoMigration "campsite/internal/migrations/mongo"
	postgresMigration "campsite/internal/migrations/postgres"
	"campsite/pkg/config"

	"github.com/spf13/cobra"
)

const JobName = "migrations"

var timeout time.Duration

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply campsite storage migrations",
	Long:  `Create the collections, tables and indexes the reservations service expects.`,
}

var mongoCmd = &cobra.Command{
	Use:   "mongo",
	Short: "Apply Mongo collection validators and indexes",
	RunE:  runMongo,
}

var postgresCmd = &cobra.Command{
	Use:   "postgres",
	Short: "Create the Postgres reservations table and indexes",
	RunE:  runPostgres,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 120*time.Second, "overall migration timeout")
	rootCmd.AddCommand(mongoCmd, postgresCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMongo(cmd *cobra.Command, args []string) error {
	os.Setenv(config.EnvStorageDriver, config.StorageMongo)
	cfg := config.Load(JobName)
	cfg.ConnectStorage()
	defer cfg.GracefulShutdown()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		return fmt.Errorf("mongo migration failed: %w", err)
	}
	return nil
}

func runPostgres(cmd *cobra.Command, args []string) error {
	os.Setenv(config.EnvStorageDriver, config.StoragePostgres)
	cfg := config.Load(JobName)
	cfg.ConnectStorage()
	defer cfg.GracefulShutdown()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if err := postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
		return fmt.Errorf("postgres migration failed: %w", err)
	}
	return nil
}
