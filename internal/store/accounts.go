package store

import (
	"database/sql"
	"errors"
	"time"
)

// SaveAccount stores or replaces the account with the same name
func (db *DB) SaveAccount(a *Account) error {
	_, err := db.Exec(`
		INSERT INTO accounts (name, athlete_id, access_token, refresh_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`, a.Name, a.AthleteID, a.AccessToken, a.RefreshToken, a.ExpiresAt.Unix())
	return err
}

// GetAccount retrieves an account by name
func (db *DB) GetAccount(name string) (*Account, error) {
	row := db.QueryRow(`
		SELECT name, athlete_id, access_token, refresh_token, expires_at
		FROM accounts
		WHERE name = ?
	`, name)

	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAccounts returns all accounts ordered by name
func (db *DB) ListAccounts() ([]Account, error) {
	rows, err := db.Query(`
		SELECT name, athlete_id, access_token, refresh_token, expires_at
		FROM accounts
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	return accounts, rows.Err()
}

// UpdateTokens updates just the access and refresh tokens of an account
func (db *DB) UpdateTokens(name, accessToken, refreshToken string, expiresAt time.Time) error {
	result, err := db.Exec(`
		UPDATE accounts
		SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
	`, accessToken, refreshToken, expiresAt.Unix(), name)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// DeleteAccount removes an account
func (db *DB) DeleteAccount(name string) error {
	result, err := db.Exec(`DELETE FROM accounts WHERE name = ?`, name)
	if err != nil {
		return err
	}
	return requireRow(result)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (*Account, error) {
	var a Account
	var expiresAt int64
	if err := s.Scan(&a.Name, &a.AthleteID, &a.AccessToken, &a.RefreshToken, &expiresAt); err != nil {
		return nil, err
	}
	a.ExpiresAt = time.Unix(expiresAt, 0)
	return &a, nil
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}
