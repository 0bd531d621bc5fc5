package source

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/addrindex/addrindex/internal/address"
	"github.com/addrindex/addrindex/pkg/config"
	"github.com/addrindex/addrindex/pkg/postgres"
)

// Postgres streams address records from a staged table, for deployments
// where the extraction pipeline lands records in PostgreSQL instead of
// files. The table needs country, city, postcode, street, and housenumber
// text columns; NULLs read as empty strings.
type Postgres struct {
	rows   *sql.Rows
	logger *slog.Logger
	read   int64
}

func NewPostgres(ctx context.Context, client *postgres.Client, cfg config.PostgresConfig) (*Postgres, error) {
	q := fmt.Sprintf(
		`SELECT COALESCE(country, ''), COALESCE(city, ''), COALESCE(postcode, ''), COALESCE(street, ''), COALESCE(housenumber, '') FROM %s`,
		cfg.Table,
	)
	rows, err := client.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", cfg.Table, err)
	}
	return &Postgres{
		rows:   rows,
		logger: slog.Default().With("component", "postgres-source", "table", cfg.Table),
	}, nil
}

func (s *Postgres) Next(ctx context.Context) (address.Record, error) {
	if err := ctx.Err(); err != nil {
		return address.Record{}, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return address.Record{}, fmt.Errorf("iterating rows: %w", err)
		}
		s.logger.Info("table drained", "records", s.read)
		return address.Record{}, io.EOF
	}
	var rec address.Record
	if err := s.rows.Scan(&rec.Country, &rec.City, &rec.Postcode, &rec.Street, &rec.Housenumber); err != nil {
		return address.Record{}, fmt.Errorf("scanning row: %w", err)
	}
	rec.Country = address.NormalizeCountry(rec.Country)
	s.read++
	return rec, nil
}

func (s *Postgres) Close() error {
	return s.rows.Close()
}
