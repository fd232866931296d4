package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"sunolegal/internal/catalog"
	"sunolegal/internal/database"
	"sunolegal/internal/models"

	"github.com/rs/zerolog"
)

// maintenance validates the catalog file and, with -requeue, puts failed
// sync tasks back into the queue so the running API retries them.
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		catalogPath = flag.String("catalog", "configs/catalog.yaml", "path to catalog.yaml")
		dbPath      = flag.String("db", "./data/sunolegal.db", "path to sqlite db")
		requeue     = flag.Bool("requeue", false, "move failed sync tasks back to pending")
	)
	flag.Parse()

	cat, err := catalog.Load(*catalogPath)
	if err != nil {
		return err
	}
	packages := 0
	for _, l := range cat.Lawyers {
		packages += len(l.Packages)
	}
	logger.Info().
		Int("laws", len(cat.Laws)).
		Int("lawyers", len(cat.Lawyers)).
		Int("packages", packages).
		Msg("catalog ok")

	if !*requeue {
		return nil
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed, err := db.GetFailedSyncTasks(ctx)
	if err != nil {
		return err
	}
	for _, task := range failed {
		if err := db.UpdateSyncTaskStatus(ctx, task.ID, models.TaskStatusPending, "", nil); err != nil {
			return fmt.Errorf("requeue task %d: %w", task.ID, err)
		}
	}

	logger.Info().Int("requeued", len(failed)).Msg("sync tasks requeued")
	return nil
}
