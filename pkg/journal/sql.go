package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// SQLStore keeps intents in a swap_intents table on sqlite or mysql
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens dsn with driver ("sqlite" or "mysql") and creates the schema
func NewSQLStore(driver, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("journal dsn is required")
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// a single connection keeps writers from tripping over SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS swap_intents (
		id VARCHAR(36) PRIMARY KEY,
		chain VARCHAR(16) NOT NULL,
		wallet VARCHAR(128) NOT NULL,
		direction VARCHAR(32) NOT NULL,
		input_token VARCHAR(255) NOT NULL,
		output_token VARCHAR(255) NOT NULL,
		amount VARCHAR(80) NOT NULL,
		status VARCHAR(16) NOT NULL,
		tx_id VARCHAR(128) NOT NULL,
		last_error TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`)
	return err
}

func (s *SQLStore) Record(ctx context.Context, intent *Intent) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `INSERT INTO swap_intents
		(id, chain, wallet, direction, input_token, output_token, amount, status, tx_id, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		intent.ID, intent.Chain, intent.Wallet, intent.Direction, intent.InputToken, intent.OutputToken,
		intent.Amount, string(intent.Status), intent.TxID, intent.Error,
		intent.CreatedAt.UnixMilli(), intent.UpdatedAt.UnixMilli(),
	)
	return err
}

func (s *SQLStore) Update(ctx context.Context, id string, status Status, txid, errMsg string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE swap_intents
		SET status = ?, tx_id = CASE WHEN ? = '' THEN tx_id ELSE ? END, last_error = ?, updated_at = ?
		WHERE id = ?`,
		string(status), txid, txid, errMsg, time.Now().UTC().UnixMilli(), id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const selectIntent = `SELECT id, chain, wallet, direction, input_token, output_token, amount, status, tx_id, last_error, created_at, updated_at
	FROM swap_intents`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(row rowScanner) (*Intent, error) {
	var (
		intent             Intent
		status             string
		createdAt, updated int64
	)
	err := row.Scan(
		&intent.ID, &intent.Chain, &intent.Wallet, &intent.Direction, &intent.InputToken, &intent.OutputToken,
		&intent.Amount, &status, &intent.TxID, &intent.Error, &createdAt, &updated,
	)
	if err != nil {
		return nil, err
	}
	intent.Status = Status(status)
	intent.CreatedAt = time.UnixMilli(createdAt).UTC()
	intent.UpdatedAt = time.UnixMilli(updated).UTC()
	return &intent, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	intent, err := scanIntent(s.db.QueryRowContext(ctx, selectIntent+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return intent, err
}

func (s *SQLStore) Recent(ctx context.Context, limit int) ([]*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, selectIntent+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []*Intent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, intent)
	}
	return intents, rows.Err()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
