package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"vigil/database"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect")
	}
	defer conn.Close(ctx)

	migrations, err := database.Migrations()
	if err != nil {
		log.WithError(err).Fatal("Failed to read migrations")
	}

	for _, m := range migrations {
		log.WithField("migration", m.Name).Info("Running migration")

		if _, err := conn.Exec(ctx, m.SQL); err != nil {
			log.WithError(err).WithField("migration", m.Name).Fatal("Migration failed")
		}
	}

	fmt.Printf("\nAll %d migrations completed!\n", len(migrations))
}
