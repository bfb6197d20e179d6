// migrate applies the embedded schema migrations; run with go run ./cmd/migrate.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/abhicommands/Next-Auth-Practice/internal/config"
	"github.com/abhicommands/Next-Auth-Practice/internal/db"
	"github.com/abhicommands/Next-Auth-Practice/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	showVersion := flag.Bool("version", false, "Print the applied schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if cfg.DatabaseDriver == config.DriverSQLite {
		// SQLite databases are migrated up whenever they are opened.
		if *direction != "up" {
			fmt.Fprintln(os.Stderr, "migrate: only -direction=up is supported for sqlite")
			os.Exit(1)
		}
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		_ = conn.Close()
		return
	}

	if *showVersion {
		v, dirty, err := migrate.Version(cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintln(os.Stderr, "migrate:", err)
			os.Exit(1)
		}
		fmt.Printf("version %d (dirty=%v)\n", v, dirty)
		return
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
