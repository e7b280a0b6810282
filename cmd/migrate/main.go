// Command migrate runs schema operations for the backend. Non-production
// environments automigrate on connect; production schema changes go through
// this command.
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"ufit/internal/config"
	"ufit/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <up|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		log.Println("schema migration applied")
	case "status":
		migrator := db.Migrator()
		for _, model := range database.PersistentModels() {
			state := "missing"
			if migrator.HasTable(model) {
				state = "present"
			}
			log.Printf("%-40T %s", model, state)
		}
	default:
		return usage()
	}

	return nil
}
