package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/nestnote/backend/internal/model"
)

func (db *Postgres) EnsureAuthSchema(ctx context.Context) error {
	queries := []string{
		`
		CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			google_sub TEXT UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			picture TEXT NOT NULL DEFAULT '',
			profile_picture_url TEXT NOT NULL DEFAULT '',
			profile_picture_hidden BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`
		CREATE TABLE IF NOT EXISTS refresh_records (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			token_hash TEXT NOT NULL UNIQUE,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked_at TIMESTAMPTZ,
			user_agent TEXT NOT NULL DEFAULT '',
			ip TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
		`,
		`CREATE INDEX IF NOT EXISTS refresh_records_account_id_idx ON refresh_records(account_id)`,
	}

	for _, query := range queries {
		if _, err := db.Pool.Exec(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

const accountColumns = `
	id, email, password_hash, COALESCE(google_sub, ''), name, picture,
	profile_picture_url, profile_picture_hidden, created_at, updated_at
`

func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.GoogleSub,
		&a.Name,
		&a.Picture,
		&a.ProfilePictureURL,
		&a.ProfilePictureHidden,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (db *Postgres) CreateAccount(ctx context.Context, account *model.Account) (*model.Account, error) {
	query := `
		INSERT INTO accounts (id, email, password_hash, google_sub, name, picture, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NOW(), NOW())
		RETURNING ` + accountColumns
	row := db.Pool.QueryRow(ctx, query,
		uuid.NewString(),
		account.Email,
		account.PasswordHash,
		account.GoogleSub,
		account.Name,
		account.Picture,
	)
	return scanAccount(row)
}

func (db *Postgres) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(db.Pool.QueryRow(ctx, query, email))
}

func (db *Postgres) GetAccountByGoogleSub(ctx context.Context, sub string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE google_sub = $1`
	return scanAccount(db.Pool.QueryRow(ctx, query, sub))
}

func (db *Postgres) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(db.Pool.QueryRow(ctx, query, id))
}

// LinkGoogleSub attaches sub to the account only while no subject is linked
// yet (first writer wins), backfilling name and picture when empty. Returns
// false if the account already carries a subject.
func (db *Postgres) LinkGoogleSub(ctx context.Context, accountID, sub, name, picture string) (bool, error) {
	query := `
		UPDATE accounts
		SET google_sub = $2,
			name = COALESCE(NULLIF(name, ''), $3),
			picture = COALESCE(NULLIF(picture, ''), $4),
			updated_at = NOW()
		WHERE id = $1 AND google_sub IS NULL
	`
	tag, err := db.Pool.Exec(ctx, query, accountID, sub, name, picture)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (db *Postgres) UpdateProfilePicture(ctx context.Context, accountID, pictureURL string, hidden bool) (*model.Account, error) {
	query := `
		UPDATE accounts
		SET profile_picture_url = $2, profile_picture_hidden = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns
	return scanAccount(db.Pool.QueryRow(ctx, query, accountID, pictureURL, hidden))
}

func (db *Postgres) CreateRefreshRecord(ctx context.Context, rec *model.RefreshRecord) error {
	query := `
		INSERT INTO refresh_records (id, account_id, token_hash, expires_at, user_agent, ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err := db.Pool.Exec(ctx, query,
		uuid.NewString(),
		rec.AccountID,
		rec.TokenHash,
		rec.ExpiresAt,
		rec.UserAgent,
		rec.IP,
	)
	return err
}

func (db *Postgres) GetRefreshRecordByHash(ctx context.Context, tokenHash string) (*model.RefreshRecord, error) {
	query := `
		SELECT id, account_id, token_hash, expires_at, revoked_at, user_agent, ip, created_at
		FROM refresh_records
		WHERE token_hash = $1
	`
	var rec model.RefreshRecord
	err := db.Pool.QueryRow(ctx, query, tokenHash).Scan(
		&rec.ID,
		&rec.AccountID,
		&rec.TokenHash,
		&rec.ExpiresAt,
		&rec.RevokedAt,
		&rec.UserAgent,
		&rec.IP,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// RevokeRefreshRecord sets revoked_at only if it is still null, in a single
// statement. Two concurrent redemptions of the same record therefore race on
// this update and exactly one of them observes won=true.
func (db *Postgres) RevokeRefreshRecord(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE refresh_records
		SET revoked_at = NOW()
		WHERE id = $1 AND revoked_at IS NULL
	`
	tag, err := db.Pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (db *Postgres) RevokeRefreshRecordByHash(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_records
		SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	_, err := db.Pool.Exec(ctx, query, tokenHash)
	return err
}
