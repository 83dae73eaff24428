package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"

	"taskera.org/internal/database"
)

func main() {
	var dsn string
	flag.StringVar(&dsn, "dsn", os.Getenv("TASKERA_PG_DSN"), "PostgreSQL DSN (defaults to TASKERA_PG_DSN)")
	flag.Parse()

	if strings.TrimSpace(dsn) == "" {
		log.Fatal("database DSN is required (set TASKERA_PG_DSN or pass -dsn)")
	}

	cmd := "up"
	if args := flag.Args(); len(args) > 0 {
		cmd = args[0]
	}

	m, err := database.NewMigrator(dsn)
	if err != nil {
		log.Fatalf("migrator: %v", err)
	}
	defer m.Close()

	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("up: %v", err)
		}
		log.Println("migrations applied")
	case "down":
		if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("down: %v", err)
		}
		log.Println("rolled back one migration")
	case "version":
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatalf("version: %v", err)
		}
		fmt.Printf("version=%d dirty=%v\n", v, dirty)
	default:
		log.Fatalf("unknown command %q (want up, down or version)", cmd)
	}
}
