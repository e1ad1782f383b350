package resources

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"calendar-photo-converter/pkg/config"
)

// DBInstance is the part of a pgx pool the repository needs. Both
// *pgxpool.Pool and pgxmock pools satisfy it.
type DBInstance interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Closable interface {
	Close()
}

// CreateDatabaseConnectionPool opens the analysis log database. It returns a
// nil pool when no database is configured.
func CreateDatabaseConnectionPool(ctx context.Context, cfg config.Database) (*pgxpool.Pool, error) {
	if !cfg.Enabled() {
		log.Ctx(ctx).Info().Str("stage", "startup").Str("component", "database").Msg("analysis log disabled")
		return nil, nil //nolint:nilnil
	}

	pcfg, err := pgxpool.ParseConfig(DatabaseURL(cfg))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to parse database connection string")
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	pcfg.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to connect to database")
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		log.Ctx(ctx).Error().Err(err).Msg("unable to ping to database")

		return nil, fmt.Errorf("failed to ping to database: %w", err)
	}

	return pool, nil
}

// DatabaseURL builds the connection URL with escaped credentials.
func DatabaseURL(cfg config.Database) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}

	return u.String()
}
