package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/kuztatygit/lemfi-qa-homework/shared/apperrors"
	"github.com/kuztatygit/lemfi-qa-homework/shared/models"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore is the PostgreSQL write store (source of truth).
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenPostgres connects, retrying the first ping with exponential backoff,
// and applies the embedded migrations.
func OpenPostgres(ctx context.Context, logger *zap.Logger, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = time.Minute
	ping := func() error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warn("postgres not reachable yet", zap.Error(err))
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(b, ctx)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("database migrations applied")

	return NewPostgresStore(db, logger), nil
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func runMigrations(db *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, identity *models.Identity) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, surname, personal_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query,
		identity.Email, identity.PasswordHash,
		nullString(identity.FirstName), nullString(identity.Surname), nullInt64(identity.PersonalID),
		identity.Balance, identity.CreatedAt, identity.UpdatedAt,
	).Scan(&identity.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", apperrors.FromSQL(err))
	}
	return nil
}

const selectIdentity = `
	SELECT id, email, password_hash, first_name, surname, personal_id, balance, created_at, updated_at
	FROM users
`

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (*models.Identity, error) {
	return getIdentity(ctx, s.db, selectIdentity+` WHERE id = $1`, id)
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*models.Identity, error) {
	return getIdentity(ctx, s.db, selectIdentity+` WHERE email = $1`, email)
}

func (s *PostgresStore) Save(ctx context.Context, identity *models.Identity) error {
	return saveIdentity(ctx, s.db, identity)
}

func (s *PostgresStore) Append(ctx context.Context, entry *models.LedgerEntry) (int64, error) {
	return appendEntry(ctx, s.db, entry)
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID int64) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, user_id, type, amount, currency, raw_response, created_at
		FROM payments
		WHERE user_id = $1
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	entries := make([]models.LedgerEntry, 0)
	for rows.Next() {
		var e models.LedgerEntry
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Type, &e.Amount, &e.Currency, &e.RawResponse, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) DeleteByID(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("payment %d: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

// WithIdentityLock runs fn in a transaction holding the row lock of the
// identity. Concurrent callers for the same identity queue on the lock and
// read the committed balance once it is released. The transaction commits
// only if fn returns nil.
func (s *PostgresStore) WithIdentityLock(ctx context.Context, id int64, fn func(tx Tx, identity *models.Identity) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if sqlTx != nil {
			if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("rollback failed", zap.Int64("user_id", id), zap.Error(rbErr))
			}
		}
	}()

	identity, err := getIdentity(ctx, sqlTx, selectIdentity+` WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return err
	}

	if err = fn(&postgresTx{tx: sqlTx}, identity); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", apperrors.FromSQL(err))
	}
	sqlTx = nil
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type postgresTx struct {
	tx *sql.Tx
}

func (t *postgresTx) AppendEntry(ctx context.Context, entry *models.LedgerEntry) (int64, error) {
	return appendEntry(ctx, t.tx, entry)
}

func (t *postgresTx) SaveIdentity(ctx context.Context, identity *models.Identity) error {
	return saveIdentity(ctx, t.tx, identity)
}

func getIdentity(ctx context.Context, q querier, query string, arg any) (*models.Identity, error) {
	var (
		identity           models.Identity
		firstName, surname sql.NullString
		personalID         sql.NullInt64
	)
	err := q.QueryRowContext(ctx, query, arg).Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash,
		&firstName, &surname, &personalID,
		&identity.Balance, &identity.CreatedAt, &identity.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %v: %w", arg, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if firstName.Valid {
		identity.FirstName = &firstName.String
	}
	if surname.Valid {
		identity.Surname = &surname.String
	}
	if personalID.Valid {
		identity.PersonalID = &personalID.Int64
	}
	return &identity, nil
}

func saveIdentity(ctx context.Context, q querier, identity *models.Identity) error {
	query := `
		UPDATE users
		SET first_name = $2, surname = $3, personal_id = $4, balance = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := q.ExecContext(ctx, query,
		identity.ID,
		nullString(identity.FirstName), nullString(identity.Surname), nullInt64(identity.PersonalID),
		identity.Balance, identity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", apperrors.FromSQL(err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d: %w", identity.ID, apperrors.ErrNotFound)
	}
	return nil
}

func appendEntry(ctx context.Context, q querier, entry *models.LedgerEntry) (int64, error) {
	query := `
		INSERT INTO payments (user_id, type, amount, currency, raw_response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := q.QueryRowContext(ctx, query,
		entry.OwnerID, entry.Type, entry.Amount, entry.Currency, entry.RawResponse, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to create payment: %w", apperrors.FromSQL(err))
	}
	return entry.ID, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// compile-time checks
var (
	_ Store = (*PostgresStore)(nil)
	_ Tx    = (*postgresTx)(nil)
)
