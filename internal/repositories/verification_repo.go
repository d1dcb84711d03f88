package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/ecosystem-user/internal/database"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const verificationColumns = `id, username, factor_type, issued_at, code, provider_request_id, failed_attempts`

// VerificationRepository stores issued one-time-code challenges
type VerificationRepository struct {
	db *database.DB
}

// NewVerificationRepository creates a new VerificationRepository
func NewVerificationRepository(db *database.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

func scanVerificationRow(scanner rowScanner) (*models.VerificationAttempt, error) {
	var attempt models.VerificationAttempt
	var factor string

	err := scanner.Scan(
		&attempt.ID, &attempt.Username, &factor, &attempt.IssuedAt,
		&attempt.Code, &attempt.ProviderRequestID, &attempt.FailedAttempts,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	attempt.FactorType = models.FactorType(factor)

	return &attempt, nil
}

func scanVerificationRows(rows pgx.Rows) ([]*models.VerificationAttempt, error) {
	defer rows.Close()

	attempts := make([]*models.VerificationAttempt, 0)

	for rows.Next() {
		attempt, err := scanVerificationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return attempts, nil
}

// Create persists a new attempt and assigns its id
func (r *VerificationRepository) Create(ctx context.Context, attempt *models.VerificationAttempt) (*models.VerificationAttempt, error) {
	attempt.ID = uuid.New().String()

	query := `
		INSERT INTO verification_attempts (` + verificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + verificationColumns

	return scanVerificationRow(r.db.Pool.QueryRow(ctx, query,
		attempt.ID, attempt.Username, string(attempt.FactorType), attempt.IssuedAt,
		attempt.Code, attempt.ProviderRequestID, attempt.FailedAttempts,
	))
}

// FindLatest returns the live record for (username, factor), or ErrNotFound
func (r *VerificationRepository) FindLatest(ctx context.Context, username string, factor models.FactorType) (*models.VerificationAttempt, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM verification_attempts
		WHERE username = $1 AND factor_type = $2
		ORDER BY issued_at DESC
		LIMIT 1
	`

	return scanVerificationRow(r.db.Pool.QueryRow(ctx, query, username, string(factor)))
}

// FindCodeMatches returns every record for (username, factor) carrying code issued at or after sinceMillis
func (r *VerificationRepository) FindCodeMatches(ctx context.Context, username string, factor models.FactorType, code string, sinceMillis int64) ([]*models.VerificationAttempt, error) {
	query := `
		SELECT ` + verificationColumns + `
		FROM verification_attempts
		WHERE username = $1 AND factor_type = $2 AND code = $3 AND issued_at >= $4
		ORDER BY issued_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, username, string(factor), code, sinceMillis)
	if err != nil {
		return nil, fmt.Errorf("failed to query verification attempts: %w", err)
	}

	return scanVerificationRows(rows)
}

// UpdateFailedAttempts overwrites the failure counter of one record
func (r *VerificationRepository) UpdateFailedAttempts(ctx context.Context, id string, failedAttempts int) error {
	query := `UPDATE verification_attempts SET failed_attempts = $1 WHERE id = $2`

	result, err := r.db.Pool.Exec(ctx, query, failedAttempts, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
