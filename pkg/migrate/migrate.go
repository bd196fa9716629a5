// Package migrate applies the goose SQL migrations bundled with the binary.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are written by the CLI.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var bundled embed.FS

// Bundled returns the migrations compiled into the binary.
func Bundled() fs.FS {
	sub, err := fs.Sub(bundled, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Applied describes one migration that ran.
type Applied struct {
	Version   int64
	Path      string
	Direction string
	Duration  time.Duration
}

// Status is one row of the migration table.
type Status struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Runner drives a goose provider over one database and migration set.
type Runner struct {
	provider *goose.Provider
}

// NewRunner builds a Postgres runner over fsys.
func NewRunner(db *sql.DB, fsys fs.FS) (*Runner, error) {
	return newRunner(goose.DialectPostgres, db, fsys)
}

func newRunner(dialect goose.Dialect, db *sql.DB, fsys fs.FS) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if err := Validate(fsys); err != nil {
		return nil, fmt.Errorf("invalid migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider}, nil
}

func (r *Runner) Up(ctx context.Context) ([]Applied, error) {
	results, err := r.provider.Up(ctx)
	return collect(results...), wrap("up", err)
}

// Down reverts the latest applied migration.
func (r *Runner) Down(ctx context.Context) ([]Applied, error) {
	result, err := r.provider.Down(ctx)
	return collect(result), wrap("down", err)
}

// Redo reverts the latest migration and applies it again.
func (r *Runner) Redo(ctx context.Context) ([]Applied, error) {
	down, err := r.provider.Down(ctx)
	if err != nil {
		return collect(down), wrap("redo down", err)
	}
	up, err := r.provider.UpByOne(ctx)
	return collect(down, up), wrap("redo up", err)
}

// To moves the schema up or down until target is the current version.
func (r *Runner) To(ctx context.Context, target int64) ([]Applied, error) {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, wrap("version", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err := r.provider.UpTo(ctx, target)
		return collect(results...), wrap(fmt.Sprintf("up-to %d", target), err)
	default:
		results, err := r.provider.DownTo(ctx, target)
		return collect(results...), wrap(fmt.Sprintf("down-to %d", target), err)
	}
}

func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	rows, err := r.provider.Status(ctx)
	if err != nil {
		return nil, wrap("status", err)
	}
	out := make([]Status, 0, len(rows))
	for _, row := range rows {
		out = append(out, Status{
			Version:   row.Source.Version,
			Path:      row.Source.Path,
			Applied:   row.State == goose.StateApplied,
			AppliedAt: row.AppliedAt,
		})
	}
	return out, nil
}

func (r *Runner) Close() error {
	return r.provider.Close()
}

// ParseVersion accepts the YYYYMMDDHHMMSS prefix used in migration names.
func ParseVersion(value string) (int64, error) {
	if len(value) != len(versionLayout) {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", value)
	}
	if _, err := time.Parse(versionLayout, value); err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", value, err)
	}
	return strconv.ParseInt(value, 10, 64)
}

func collect(results ...*goose.MigrationResult) []Applied {
	var out []Applied
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Applied{
			Version:   res.Source.Version,
			Path:      res.Source.Path,
			Direction: res.Direction,
			Duration:  res.Duration,
		})
	}
	return out
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}
