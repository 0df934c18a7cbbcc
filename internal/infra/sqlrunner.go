package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// SQLExecutor is the query surface the PostgreSQL job store depends on.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

var (
	markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	ErrEmptyQuery    = errors.New("empty query")
	ErrMissingMarker = errors.New("sql marker missing or invalid")
)

// SQLRunner executes marker-tagged statements on a pgx pool and logs each
// one under its marker so statements can be traced back to their constant.
type SQLRunner struct {
	Pool   *pgxpool.Pool
	Logger zerolog.Logger
}

func NewSQLRunner(pool *pgxpool.Pool, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{Pool: pool, Logger: logger.With().Str("component", "sql").Logger()}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.Pool.Exec(ctx, stmt, args...)
	if err != nil {
		r.Logger.Error().Err(err).Str("marker", marker).Msg("exec failed")
		return tag, err
	}
	r.Logger.Debug().
		Str("marker", marker).
		Int64("rows", tag.RowsAffected()).
		Dur("duration", time.Since(start)).
		Msg("exec")
	return tag, nil
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return loggingRow{
		row:    r.Pool.QueryRow(ctx, stmt, args...),
		logger: r.Logger,
		marker: marker,
		start:  time.Now(),
	}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, stmt, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	rows, err := r.Pool.Query(ctx, stmt, args...)
	if err != nil {
		r.Logger.Error().Err(err).Str("marker", marker).Msg("query failed")
		return nil, err
	}
	return loggingRows{Rows: rows, logger: r.Logger, marker: marker, start: time.Now()}, nil
}

type loggingRow struct {
	row    pgx.Row
	logger zerolog.Logger
	marker string
	start  time.Time
}

// Scan logs pgx.ErrNoRows at debug level like any other answered lookup.
func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	switch {
	case err == nil, errors.Is(err, pgx.ErrNoRows):
		l.logger.Debug().Str("marker", l.marker).Bool("found", err == nil).Dur("duration", time.Since(l.start)).Msg("query_row")
	default:
		l.logger.Error().Err(err).Str("marker", l.marker).Msg("scan failed")
	}
	return err
}

type loggingRows struct {
	pgx.Rows
	logger zerolog.Logger
	marker string
	start  time.Time
}

func (l loggingRows) Close() {
	l.Rows.Close()
	if err := l.Rows.Err(); err != nil {
		l.logger.Error().Err(err).Str("marker", l.marker).Msg("rows failed")
		return
	}
	l.logger.Debug().Str("marker", l.marker).Dur("duration", time.Since(l.start)).Msg("query")
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(...any) error {
	return e.err
}

// extractMarker splits "--sql <uuid>\n<statement>" into marker and statement.
func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", ErrEmptyQuery
	}
	first, rest, _ := strings.Cut(trimmed, "\n")
	first = strings.TrimSpace(first)
	if !markerRegexp.MatchString(first) {
		return "", "", ErrMissingMarker
	}
	stmt := strings.TrimSpace(rest)
	if stmt == "" {
		return "", "", ErrEmptyQuery
	}
	return strings.TrimPrefix(first, "--sql "), stmt, nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
