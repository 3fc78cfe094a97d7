package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/checkin-service/internal/domain"
)

// EventRepository defines persistence access for events.
type EventRepository interface {
	Create(ctx context.Context, event *domain.Event) error
	Update(ctx context.Context, event *domain.Event) error
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]domain.Event, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository returns a Postgres-backed implementation.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) Create(ctx context.Context, event *domain.Event) error {
	geofence, err := marshalGeofence(event.Geofence)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO events (name, description, is_active, geofence, starts_at, ends_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		event.Name,
		event.Description,
		event.IsActive,
		geofence,
		event.StartsAt,
		event.EndsAt,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
}

func (r *eventRepository) Update(ctx context.Context, event *domain.Event) error {
	geofence, err := marshalGeofence(event.Geofence)
	if err != nil {
		return err
	}

	const query = `
        UPDATE events SET name=$1, description=$2, is_active=$3, geofence=$4, starts_at=$5, ends_at=$6, updated_at=NOW()
        WHERE id=$7`

	cmd, err := r.pool.Exec(ctx, query,
		event.Name,
		event.Description,
		event.IsActive,
		geofence,
		event.StartsAt,
		event.EndsAt,
		event.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	const query = `
        SELECT id, name, description, is_active, geofence, starts_at, ends_at, created_at, updated_at
        FROM events WHERE id=$1`

	return scanEvent(r.pool.QueryRow(ctx, query, id))
}

func (r *eventRepository) List(ctx context.Context, activeOnly bool, limit, offset int) ([]domain.Event, error) {
	query := `
        SELECT id, name, description, is_active, geofence, starts_at, ends_at, created_at, updated_at
        FROM events`
	args := []any{}
	if activeOnly {
		query += " WHERE is_active=true"
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*domain.Event, error) {
	var (
		event    domain.Event
		geofence []byte
	)
	if err := row.Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.IsActive,
		&geofence,
		&event.StartsAt,
		&event.EndsAt,
		&event.CreatedAt,
		&event.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(geofence) > 0 {
		var g domain.Geofence
		if err := json.Unmarshal(geofence, &g); err != nil {
			return nil, fmt.Errorf("decode geofence: %w", err)
		}
		event.Geofence = &g
	}
	return &event, nil
}

func marshalGeofence(g *domain.Geofence) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	data, err := json.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode geofence: %w", err)
	}
	return data, nil
}
