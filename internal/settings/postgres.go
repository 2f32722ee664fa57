package settings

import (
	"context"
	"database/sql"
	"fmt"

	"custom-gateway/internal/domain"
)

// Postgres reads the gateway_settings table as key/value rows.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Credentials(ctx context.Context) (domain.GatewayCredentials, error) {
	values, err := p.Values(ctx)
	if err != nil {
		return domain.GatewayCredentials{}, err
	}
	return credentialsFromValues(values)
}

func (p *Postgres) Values(ctx context.Context) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT key, value FROM gateway_settings`)
	if err != nil {
		return nil, fmt.Errorf("read gateway settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan gateway setting: %w", err)
		}
		values[k] = v
	}
	return values, rows.Err()
}

// Save upserts every value in one transaction.
func (p *Postgres) Save(ctx context.Context, values map[string]string) error {
	if err := Validate(values); err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings update: %w", err)
	}
	defer tx.Rollback()

	for k, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO gateway_settings (key, value, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			k, v,
		); err != nil {
			return fmt.Errorf("save setting %s: %w", k, err)
		}
	}
	return tx.Commit()
}
