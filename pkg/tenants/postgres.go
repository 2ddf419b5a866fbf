// pkg/tenants/postgres.go
package tenants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"amsplayer/pkg/db"
)

// pgProvider implements Provider backed by PostgreSQL.
type pgProvider struct {
	dbPool *pgxpool.Pool      // Connection pool to PostgreSQL
	log    *zap.SugaredLogger // Logger for diagnostic output
	key    []byte             // optional secret encryption key
}

// NewPostgresProvider constructs a PostgreSQL-backed settings provider.
// When encryptionKey is non-empty, client secrets are read from secret_encrypted.
func NewPostgresProvider(dbPool *pgxpool.Pool, log *zap.SugaredLogger, encryptionKey string) Provider {
	p := &pgProvider{dbPool: dbPool, log: log}
	if encryptionKey != "" {
		p.key = []byte(encryptionKey)
	}
	return p
}

// EnsureSchema creates the settings table if it does not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS settings_azure_organization (
  id BIGSERIAL PRIMARY KEY,
  organization text NOT NULL UNIQUE,
  client_id varchar(255) NOT NULL,
  client_secret varchar(255) NOT NULL DEFAULT '',
  secret_encrypted bytea,
  tenant varchar(255) NOT NULL,
  rest_api_endpoint varchar(255) NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
ALTER TABLE settings_azure_organization ADD COLUMN IF NOT EXISTS secret_encrypted bytea;
`)
	return err
}

// SeedFromEnv ingests initial organization settings.
// jsonSeed format (AZURE_ORG_SEED_JSON):
// [
//
//	{"organization":"edX","client_id":"...","client_secret":"...","tenant":"contoso.onmicrosoft.com",
//	 "rest_api_endpoint":"https://acct.restv2.westeurope.media.azure.net/api/"}
//
// ]
func SeedFromEnv(ctx context.Context, dbPool *pgxpool.Pool, jsonSeed, encryptionKey string) error {
	if jsonSeed == "" {
		return nil
	}
	var entries []struct {
		Organization    string `json:"organization"`
		ClientID        string `json:"client_id"`
		ClientSecret    string `json:"client_secret"`
		Tenant          string `json:"tenant"`
		RESTAPIEndpoint string `json:"rest_api_endpoint"`
	}
	if err := json.Unmarshal([]byte(jsonSeed), &entries); err != nil {
		return err
	}
	return db.InTx(ctx, dbPool, func(tx pgx.Tx) error {
		for _, e := range entries {
			if e.Organization == "" {
				return errors.New("seed entry without organization")
			}
			plain, enc := e.ClientSecret, []byte(nil)
			if encryptionKey != "" {
				var err error
				if enc, err = encryptSecret([]byte(encryptionKey), e.ClientSecret); err != nil {
					return fmt.Errorf("encrypt secret for %s: %w", e.Organization, err)
				}
				plain = ""
			}
			if _, err := tx.Exec(ctx, `INSERT INTO settings_azure_organization(organization,client_id,client_secret,secret_encrypted,tenant,rest_api_endpoint)
			  VALUES ($1,$2,$3,$4,$5,$6)
			  ON CONFLICT (organization) DO UPDATE SET client_id=EXCLUDED.client_id,client_secret=EXCLUDED.client_secret,
			  secret_encrypted=EXCLUDED.secret_encrypted,tenant=EXCLUDED.tenant,rest_api_endpoint=EXCLUDED.rest_api_endpoint,updated_at=NOW()`,
				e.Organization, e.ClientID, plain, enc, e.Tenant, e.RESTAPIEndpoint); err != nil {
				return fmt.Errorf("seed %s: %w", e.Organization, err)
			}
		}
		return nil
	})
}

// GetAzureSettings fetches the organization's settings record.
func (p *pgProvider) GetAzureSettings(ctx context.Context, org string) (Credentials, error) {
	row := p.dbPool.QueryRow(ctx, `SELECT client_id, client_secret, secret_encrypted, tenant, rest_api_endpoint
		FROM settings_azure_organization WHERE organization=$1`, org)
	var c Credentials
	var enc []byte
	if err := row.Scan(&c.ClientID, &c.ClientSecret, &enc, &c.Tenant, &c.RESTAPIEndpoint); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Credentials{}, ErrNotFound
		}
		return Credentials{}, err
	}
	if len(enc) > 0 {
		if len(p.key) == 0 {
			return Credentials{}, errors.New("encrypted client secret but ENCRYPTION_KEY is not set")
		}
		secret, err := decryptSecret(p.key, enc)
		if err != nil {
			return Credentials{}, fmt.Errorf("decrypt client secret: %w", err)
		}
		c.ClientSecret = secret
	}
	return c, nil
}
