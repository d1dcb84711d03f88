package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/BradenHooton/ecosystem-user/internal/database"
	"github.com/BradenHooton/ecosystem-user/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IPLogRepository is the append-only login attempt log keyed by client address
type IPLogRepository struct {
	db *database.DB
}

// NewIPLogRepository creates a new IPLogRepository
func NewIPLogRepository(db *database.DB) *IPLogRepository {
	return &IPLogRepository{db: db}
}

// ipLogFilter is one conjunctive WHERE stage with its bound argument
type ipLogFilter struct {
	column string
	op     string
	value  interface{}
}

func ipAddressIs(ip string) ipLogFilter      { return ipLogFilter{"ip_address", "=", ip} }
func attemptedSince(millis int64) ipLogFilter { return ipLogFilter{"attempted_at", ">=", millis} }
func succeededIs(ok bool) ipLogFilter        { return ipLogFilter{"succeeded", "=", ok} }

// buildIPLogQuery joins the stages with AND, numbering placeholders in order
func buildIPLogQuery(filters ...ipLogFilter) (string, []interface{}) {
	clauses := make([]string, 0, len(filters))
	args := make([]interface{}, 0, len(filters))
	for _, f := range filters {
		args = append(args, f.value)
		clauses = append(clauses, fmt.Sprintf("%s %s $%d", f.column, f.op, len(args)))
	}

	query := `SELECT id, ip_address, username, attempted_at, succeeded FROM ip_logs`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY attempted_at`

	return query, args
}

func scanIPLogRow(scanner rowScanner) (*models.IPFailureRecord, error) {
	var record models.IPFailureRecord
	err := scanner.Scan(&record.ID, &record.IPAddress, &record.Username, &record.AttemptedAt, &record.Succeeded)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &record, nil
}

func scanIPLogRows(rows pgx.Rows) ([]models.IPFailureRecord, error) {
	defer rows.Close()

	records := make([]models.IPFailureRecord, 0)

	for rows.Next() {
		record, err := scanIPLogRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ip log: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Record appends one attempt
func (r *IPLogRepository) Record(ctx context.Context, record *models.IPFailureRecord) error {
	record.ID = uuid.New().String()

	query := `
		INSERT INTO ip_logs (id, ip_address, username, attempted_at, succeeded)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		record.ID, record.IPAddress, record.Username, record.AttemptedAt, record.Succeeded,
	)
	return database.MapPostgresError(err)
}

// FetchFailuresSince returns failed attempts from ip at or after sinceMillis, oldest first
func (r *IPLogRepository) FetchFailuresSince(ctx context.Context, ip string, sinceMillis int64) ([]models.IPFailureRecord, error) {
	query, args := buildIPLogQuery(
		ipAddressIs(ip),
		attemptedSince(sinceMillis),
		succeededIs(false),
	)

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ip logs: %w", err)
	}

	return scanIPLogRows(rows)
}
