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
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/logger"
)

// migrator is the part of *migrate.Migrate the commands drive.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Migrate(version uint) error
	Version() (uint, bool, error)
	Force(version int) error
}

const usage = `Usage: migrate [flags] <command>

Commands:
  up            apply every pending migration
  down          roll back every migration
  steps <n>     apply n migrations, or roll back -n
  goto <v>      migrate up or down to version v
  version       print the current version and dirty flag
  force <v>     set the version without running SQL, clearing a dirty state
`

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat).With().Str("component", "migrate").Logger()

	var migrationDir string
	flag.StringVar(&migrationDir, "path", cfg.MigrationsPath, "Path to migration files (MIGRATIONS_PATH)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage, "\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := migrate.New("file://"+migrationDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("path", migrationDir).Msg("Migration failed to initialize")
	}
	defer m.Close()

	out, err := run(m, flag.Args())
	if err != nil {
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("Migration command failed")
	}
	log.Info().Str("command", flag.Arg(0)).Str("path", migrationDir).Msg(out)
}

// run executes one command and returns the line to report on success.
// ErrNoChange is a success.
func run(m migrator, args []string) (string, error) {
	switch args[0] {
	case "up":
		if err := noChange(m.Up()); err != nil {
			return "", fmt.Errorf("up: %w", err)
		}
		return "Migrated up", nil

	case "down":
		if err := noChange(m.Down()); err != nil {
			return "", fmt.Errorf("down: %w", err)
		}
		return "Migrated down", nil

	case "steps":
		n, err := intArg(args)
		if err != nil {
			return "", err
		}
		if n == 0 {
			return "", errors.New("steps: n must not be zero")
		}
		if err := noChange(m.Steps(n)); err != nil {
			return "", fmt.Errorf("steps %d: %w", n, err)
		}
		return fmt.Sprintf("Applied %d step(s)", n), nil

	case "goto":
		v, err := intArg(args)
		if err != nil {
			return "", err
		}
		if v < 0 {
			return "", fmt.Errorf("goto: version %d is negative", v)
		}
		if err := noChange(m.Migrate(uint(v))); err != nil {
			return "", fmt.Errorf("goto %d: %w", v, err)
		}
		return fmt.Sprintf("Migrated to version %d", v), nil

	case "version":
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return "No migration applied", nil
		}
		if err != nil {
			return "", fmt.Errorf("version: %w", err)
		}
		return fmt.Sprintf("Version %d, dirty: %t", v, dirty), nil

	case "force":
		v, err := intArg(args)
		if err != nil {
			return "", err
		}
		if err := m.Force(v); err != nil {
			return "", fmt.Errorf("force %d: %w", v, err)
		}
		return fmt.Sprintf("Forced version to %d", v), nil
	}
	return "", fmt.Errorf("unknown command %q", args[0])
}

func noChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a numeric argument", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", args[0], args[1])
	}
	return n, nil
}
