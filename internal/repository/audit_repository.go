package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"skillquest/api/internal/models"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Record(ctx context.Context, rec models.AuditRecord) error {
	const query = `
		INSERT INTO login_audit (
			id, user_id, email, event, success, ip_address, user_agent, created_at
		) VALUES (
			$1, NULLIF($2, ''), $3, $4, $5, $6, $7, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Email,
		rec.Event,
		rec.Success,
		rec.IPAddress,
		rec.UserAgent,
	)
	return err
}

func (r *AuditRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]models.AuditRecord, error) {
	const query = `
		SELECT id, COALESCE(user_id, ''), email, event, success, ip_address, user_agent, created_at
		FROM login_audit
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.AuditRecord
	for rows.Next() {
		var rec models.AuditRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.UserID,
			&rec.Email,
			&rec.Event,
			&rec.Success,
			&rec.IPAddress,
			&rec.UserAgent,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteOlderThan prunes audit rows past the retention horizon and
// returns the number removed.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM login_audit WHERE created_at < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
