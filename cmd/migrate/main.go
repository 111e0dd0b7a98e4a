// Command migrate applies SQL schema migrations.
//
// Usage:
//
//	migrate -dir migrations -dsn $DATABASE_DSN up
//	migrate down 1
//	migrate version
//	migrate force 2
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dir := flag.String("dir", "migrations", "directory holding migration files")
	dsn := flag.String("dsn", os.Getenv("DATABASE_DSN"), "database DSN (defaults to DATABASE_DSN)")
	flag.Parse()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "a database DSN is required (flag -dsn or env DATABASE_DSN)")
		os.Exit(1)
	}
	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: migrate [flags] up|down [n]|version|force <v>|drop")
		os.Exit(1)
	}

	m, err := migrate.New("file://"+*dir, *dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open migrations: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	switch flag.Arg(0) {
	case "up":
		err = m.Up()
	case "down":
		steps := 1
		if flag.NArg() > 1 {
			steps, err = strconv.Atoi(flag.Arg(1))
			if err != nil {
				fmt.Fprintf(os.Stderr, "invalid step count: %v\n", err)
				os.Exit(1)
			}
		}
		err = m.Steps(-steps)
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			fmt.Fprintf(os.Stderr, "failed to read version: %v\n", verr)
			os.Exit(1)
		}
		fmt.Printf("version=%d dirty=%v\n", version, dirty)
		return
	case "force":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "force requires a version")
			os.Exit(1)
		}
		v, verr := strconv.Atoi(flag.Arg(1))
		if verr != nil {
			fmt.Fprintf(os.Stderr, "invalid version: %v\n", verr)
			os.Exit(1)
		}
		err = m.Force(v)
	case "drop":
		err = m.Drop()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", flag.Arg(0))
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("ok")
}
