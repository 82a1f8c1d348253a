package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"blockiq/internal/catalog"
	"blockiq/internal/repository"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		mongoURI string
		dbName   string
		drop     bool
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Write the embedded question catalog into MongoDB",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return seed(ctx, mongoURI, dbName, drop, slog.Default())
		},
	}

	cmd.Flags().StringVar(&mongoURI, "mongo-uri", envOr("MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	cmd.Flags().StringVar(&dbName, "db", envOr("MONGO_DB", "blockiq"), "Database name")
	cmd.Flags().BoolVar(&drop, "drop", false, "Drop the questions collection first")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")

	return cmd
}

func seed(ctx context.Context, uri, dbName string, drop bool, logger *slog.Logger) error {
	questions, err := catalog.Embedded()
	if err != nil {
		return err
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer client.Disconnect(context.Background())

	repo := repository.NewQuestionRepo(client.Database(dbName))
	if drop {
		if err := repo.Drop(ctx); err != nil {
			return fmt.Errorf("failed to drop questions: %w", err)
		}
		logger.Info("dropped questions collection", "db", dbName)
	}

	changed, err := repo.UpsertAll(ctx, questions)
	if err != nil {
		return fmt.Errorf("failed to upsert questions: %w", err)
	}

	total, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	logger.Info("catalog seeded", "db", dbName, "written", changed, "total", total)

	// Verify what the server will read back
	stored, err := repo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read questions back: %w", err)
	}
	if err := catalog.Validate(stored); err != nil {
		return fmt.Errorf("seeded catalog is invalid: %w", err)
	}
	for _, c := range catalog.CountByCategory(stored) {
		logger.Info("category", "name", c.Category, "questions", c.Count)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
