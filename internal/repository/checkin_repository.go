package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// CheckinRepository defines persistence access for check-in records.
type CheckinRepository interface {
	Create(ctx context.Context, checkin *domain.CheckIn) error
	ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]domain.CheckIn, error)
	CountByEvent(ctx context.Context, eventID string) (int64, error)
}

type checkinRepository struct {
	pool *pgxpool.Pool
}

// NewCheckinRepository returns a Postgres-backed implementation.
func NewCheckinRepository(pool *pgxpool.Pool) CheckinRepository {
	return &checkinRepository{pool: pool}
}

func (r *checkinRepository) Create(ctx context.Context, checkin *domain.CheckIn) error {
	const query = `
        INSERT INTO checkins (event_id, user_name, user_email, lat, lng, qr_token, checkin_time, validation_status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at`

	var lat, lng *float64
	if checkin.Location != nil {
		lat = &checkin.Location.Lat
		lng = &checkin.Location.Lng
	}

	return r.pool.QueryRow(ctx, query,
		checkin.EventID,
		checkin.UserName,
		checkin.UserEmail,
		lat,
		lng,
		checkin.QRToken,
		checkin.CheckinTime,
		checkin.ValidationStatus,
	).Scan(&checkin.ID, &checkin.CreatedAt)
}

func (r *checkinRepository) ListByEvent(ctx context.Context, eventID string, limit, offset int) ([]domain.CheckIn, error) {
	const query = `
        SELECT id, event_id, user_name, user_email, lat, lng, qr_token, checkin_time, validation_status, created_at
        FROM checkins WHERE event_id=$1
        ORDER BY checkin_time DESC LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, eventID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checkins := make([]domain.CheckIn, 0)
	for rows.Next() {
		var (
			checkin  domain.CheckIn
			lat, lng *float64
		)
		if err := rows.Scan(
			&checkin.ID,
			&checkin.EventID,
			&checkin.UserName,
			&checkin.UserEmail,
			&lat,
			&lng,
			&checkin.QRToken,
			&checkin.CheckinTime,
			&checkin.ValidationStatus,
			&checkin.CreatedAt,
		); err != nil {
			return nil, err
		}
		if lat != nil && lng != nil {
			checkin.Location = &domain.LatLng{Lat: *lat, Lng: *lng}
		}
		checkins = append(checkins, checkin)
	}
	return checkins, rows.Err()
}

func (r *checkinRepository) CountByEvent(ctx context.Context, eventID string) (int64, error) {
	const query = `SELECT COUNT(*) FROM checkins WHERE event_id=$1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, eventID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
