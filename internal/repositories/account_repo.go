package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/ecosystem-user/internal/database"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const accountColumns = `id, username, email, password_hash, first_name, last_name, phone_number,
		street1, street2, city, state, zip, country, timezone, authorities,
		failed_login_attempts, last_failed_login_time, created_at, updated_at`

type AccountRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{db: db, pool: db.Pool}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAccountRow handles nullable fields and populates an Account model from a database row
func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	var failedAttempts *int32
	var lastFailedMillis *int64

	err := scanner.Scan(
		&account.ID, &account.Username, &account.Email, &account.PasswordHash,
		&account.FirstName, &account.LastName, &account.PhoneNumber,
		&account.Street1, &account.Street2, &account.City, &account.State,
		&account.Zip, &account.Country, &account.Timezone,
		pq.Array(&account.Authorities),
		&failedAttempts, &lastFailedMillis,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if failedAttempts != nil {
		n := int(*failedAttempts)
		account.FailedLoginAttempts = &n
	}
	if lastFailedMillis != nil {
		t := time.UnixMilli(*lastFailedMillis)
		account.LastFailedLoginTime = &t
	}
	if account.Authorities == nil {
		account.Authorities = []string{}
	}

	return &account, nil
}

// scanAccountRows iterates through rows and scans each into Account models
func scanAccountRows(rows pgx.Rows) ([]*models.Account, error) {
	defer rows.Close()

	accounts := make([]*models.Account, 0)

	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, username))
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, email))
}

// Search matches accounts on exact username and/or email. Empty criteria match nothing.
func (r *AccountRepository) Search(ctx context.Context, criteria models.SearchCriteria) ([]*models.Account, error) {
	if criteria.IsEmpty() {
		return []*models.Account{}, nil
	}

	clauses := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)

	if username := strings.TrimSpace(criteria.Username); username != "" {
		args = append(args, username)
		clauses = append(clauses, fmt.Sprintf("username = $%d", len(args)))
	}
	if email := strings.TrimSpace(criteria.EmailAddress); email != "" {
		args = append(args, email)
		clauses = append(clauses, fmt.Sprintf("email = $%d", len(args)))
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY username`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}

	return scanAccountRows(rows)
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	account.ID = uuid.New().String()

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	if account.Authorities == nil {
		account.Authorities = []string{}
	}

	query := `
		INSERT INTO accounts (id, username, email, password_hash, first_name, last_name, phone_number,
			street1, street2, city, state, zip, country, timezone, authorities, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.ID, account.Username, account.Email, account.PasswordHash,
		account.FirstName, account.LastName, account.PhoneNumber,
		account.Street1, account.Street2, account.City, account.State,
		account.Zip, account.Country, account.Timezone,
		pq.Array(account.Authorities), account.CreatedAt, account.UpdatedAt,
	))
}

// Update persists profile fields. Username, email, password hash and authorities are never touched here.
func (r *AccountRepository) Update(ctx context.Context, id string, account *models.Account) (*models.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}

	account.UpdatedAt = time.Now()

	query := `
		UPDATE accounts SET first_name = $1, last_name = $2, phone_number = $3,
			street1 = $4, street2 = $5, city = $6, state = $7, zip = $8, country = $9,
			timezone = $10, updated_at = $11
		WHERE id = $12
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query,
		account.FirstName, account.LastName, account.PhoneNumber,
		account.Street1, account.Street2, account.City, account.State,
		account.Zip, account.Country, account.Timezone, account.UpdatedAt, id,
	))
}

// UpdateLoginFailures overwrites the failure streak fields. A nil count clears the streak.
func (r *AccountRepository) UpdateLoginFailures(ctx context.Context, id string, failedAttempts *int, lastFailed *time.Time) error {
	var lastFailedMillis *int64
	if lastFailed != nil {
		millis := lastFailed.UnixMilli()
		lastFailedMillis = &millis
	}

	query := `
		UPDATE accounts SET failed_login_attempts = $1, last_failed_login_time = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query, failedAttempts, lastFailedMillis, time.Now(), id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// AddAuthority re-loads the account under a row lock, inserts the authority if absent and persists
// the set, all in one transaction.
func (r *AccountRepository) AddAuthority(ctx context.Context, username, authority string) (*models.Account, error) {
	var updated *models.Account

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1 FOR UPDATE`
		account, err := scanAccountRow(tx.QueryRow(ctx, query, username))
		if err != nil {
			return err
		}

		if !account.AddAuthority(authority) {
			updated = account
			return nil
		}

		update := `
			UPDATE accounts SET authorities = $1, updated_at = $2
			WHERE id = $3
			RETURNING ` + accountColumns
		updated, err = scanAccountRow(tx.QueryRow(ctx, update, pq.Array(account.Authorities), time.Now(), account.ID))
		return err
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrNotFound
	}

	query := `DELETE FROM accounts WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
