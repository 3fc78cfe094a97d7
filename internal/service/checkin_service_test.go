package service

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/qr"
	apperrors "github.com/spec-kit/checkin-service/pkg/util/errorutil"
)

type fakeEventRepo struct {
	events map[string]*domain.Event
}

func (r *fakeEventRepo) Create(_ context.Context, event *domain.Event) error {
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) Update(_ context.Context, event *domain.Event) error {
	if _, ok := r.events[event.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.events[event.ID] = event
	return nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id string) (*domain.Event, error) {
	event, ok := r.events[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *event
	return &copied, nil
}

func (r *fakeEventRepo) List(_ context.Context, activeOnly bool, _, _ int) ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(r.events))
	for _, event := range r.events {
		if activeOnly && !event.IsActive {
			continue
		}
		out = append(out, *event)
	}
	return out, nil
}

type fakeCheckinRepo struct {
	created []domain.CheckIn
	failing bool
}

func (r *fakeCheckinRepo) Create(_ context.Context, checkin *domain.CheckIn) error {
	if r.failing {
		return errors.New("insert failed")
	}
	checkin.ID = "chk-1"
	r.created = append(r.created, *checkin)
	return nil
}

func (r *fakeCheckinRepo) ListByEvent(_ context.Context, eventID string, _, _ int) ([]domain.CheckIn, error) {
	out := make([]domain.CheckIn, 0)
	for _, checkin := range r.created {
		if checkin.EventID == eventID {
			out = append(out, checkin)
		}
	}
	return out, nil
}

func (r *fakeCheckinRepo) CountByEvent(_ context.Context, eventID string) (int64, error) {
	checkins, _ := r.ListByEvent(context.Background(), eventID, 0, 0)
	return int64(len(checkins)), nil
}

func circleFence(lat, lng, radius float64) *domain.Geofence {
	return &domain.Geofence{
		Type:         domain.GeofenceTypeCircle,
		Center:       &domain.LatLng{Lat: lat, Lng: lng},
		RadiusMeters: radius,
	}
}

type checkinFixture struct {
	svc      *CheckinService
	qr       *QRService
	events   *fakeEventRepo
	checkins *fakeCheckinRepo
}

func newCheckinFixture(t *testing.T, event *domain.Event) *checkinFixture {
	t.Helper()
	cipher, err := qr.NewCipher("test-secret")
	require.NoError(t, err)
	cache := qr.NewCache(qr.NewMemoryStore(), zap.NewNop())
	qrService := NewQRService(QRDependencies{Cipher: cipher, Cache: cache, Logger: zap.NewNop()},
		QROptions{BaseURL: "https://checkin.example.com"})

	eventRepo := &fakeEventRepo{events: map[string]*domain.Event{}}
	if event != nil {
		eventRepo.events[event.ID] = event
	}
	checkinRepo := &fakeCheckinRepo{}

	svc := NewCheckinService(CheckinDependencies{
		EventRepo:   eventRepo,
		CheckinRepo: checkinRepo,
		QRService:   qrService,
		Logger:      zap.NewNop(),
	})
	return &checkinFixture{svc: svc, qr: qrService, events: eventRepo, checkins: checkinRepo}
}

func rejectionCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestSubmitHappyPath(t *testing.T) {
	ctx := context.Background()
	fx := newCheckinFixture(t, &domain.Event{
		ID:       "evt-1",
		Name:     "Launch",
		IsActive: true,
		Geofence: circleFence(52.52, 13.405, 500),
	})

	record, err := fx.qr.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)

	checkin, err := fx.svc.Submit(ctx, CheckinInput{
		EventID:   "evt-1",
		Token:     record.Token,
		UserName:  "Ada",
		UserEmail: "ada@example.com",
		Location:  &domain.LatLng{Lat: 52.5201, Lng: 13.4051},
	})
	require.NoError(t, err)
	assert.Equal(t, "chk-1", checkin.ID)
	assert.Equal(t, domain.CheckinStatusValid, checkin.ValidationStatus)
	require.Len(t, fx.checkins.created, 1)
}

func TestSubmitUnknownEvent(t *testing.T) {
	fx := newCheckinFixture(t, nil)
	_, err := fx.svc.Submit(context.Background(), CheckinInput{EventID: "missing", Token: "tok", UserName: "Ada"})
	assert.Equal(t, apperrors.CodeEventNotFound, rejectionCode(t, err))
}

func TestSubmitInactiveEvent(t *testing.T) {
	ctx := context.Background()
	fx := newCheckinFixture(t, &domain.Event{ID: "evt-1", Name: "Closed", IsActive: false})

	record, err := fx.qr.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)

	_, err = fx.svc.Submit(ctx, CheckinInput{EventID: "evt-1", Token: record.Token, UserName: "Ada"})
	assert.Equal(t, apperrors.CodeEventInactive, rejectionCode(t, err))
}

func TestSubmitOutsideGeofence(t *testing.T) {
	ctx := context.Background()
	fx := newCheckinFixture(t, &domain.Event{
		ID:       "evt-1",
		Name:     "Launch",
		IsActive: true,
		Geofence: circleFence(52.52, 13.405, 100),
	})

	record, err := fx.qr.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)

	_, err = fx.svc.Submit(ctx, CheckinInput{
		EventID:  "evt-1",
		Token:    record.Token,
		UserName: "Ada",
		Location: &domain.LatLng{Lat: 48.8566, Lng: 2.3522},
	})
	assert.Equal(t, apperrors.CodeOutOfGeofence, rejectionCode(t, err))

	// Missing location is equally non-corroborating.
	_, err = fx.svc.Submit(ctx, CheckinInput{EventID: "evt-1", Token: record.Token, UserName: "Ada"})
	assert.Equal(t, apperrors.CodeOutOfGeofence, rejectionCode(t, err))

	// The token was never consumed by the rejected attempts.
	assert.True(t, fx.qr.Validate(ctx, record.Token, "evt-1").IsValid)
}

func TestSubmitInsidePolygon(t *testing.T) {
	ctx := context.Background()
	fx := newCheckinFixture(t, &domain.Event{
		ID:       "evt-1",
		Name:     "Quad",
		IsActive: true,
		Geofence: &domain.Geofence{
			Type:     domain.GeofenceTypePolygon,
			Vertices: []domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 2}, {Lat: 2, Lng: 2}, {Lat: 2, Lng: 0}},
		},
	})

	record, err := fx.qr.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)

	_, err = fx.svc.Submit(ctx, CheckinInput{
		EventID:  "evt-1",
		Token:    record.Token,
		UserName: "Ada",
		Location: &domain.LatLng{Lat: 1, Lng: 1},
	})
	require.NoError(t, err)
}

func TestSubmitReplayRejected(t *testing.T) {
	ctx := context.Background()
	fx := newCheckinFixture(t, &domain.Event{ID: "evt-1", Name: "Launch", IsActive: true})

	record, err := fx.qr.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)

	input := CheckinInput{EventID: "evt-1", Token: record.Token, UserName: "Ada"}
	_, err = fx.svc.Submit(ctx, input)
	require.NoError(t, err)

	_, err = fx.svc.Submit(ctx, input)
	assert.Equal(t, apperrors.CodeQRAlreadyUsed, rejectionCode(t, err))
	assert.Len(t, fx.checkins.created, 1)
}

func TestSubmitPersistenceFailureReleasesToken(t *testing.T) {
	ctx := context.Background()
	fx := newCheckinFixture(t, &domain.Event{ID: "evt-1", Name: "Launch", IsActive: true})
	fx.checkins.failing = true

	record, err := fx.qr.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)

	input := CheckinInput{EventID: "evt-1", Token: record.Token, UserName: "Ada"}
	_, err = fx.svc.Submit(ctx, input)
	require.Error(t, err)

	// The consumed marker was rolled back; a retry succeeds.
	fx.checkins.failing = false
	_, err = fx.svc.Submit(ctx, input)
	require.NoError(t, err)
}

func TestPreview(t *testing.T) {
	ctx := context.Background()
	fx := newCheckinFixture(t, &domain.Event{ID: "evt-1", Name: "Launch", IsActive: true})

	record, err := fx.qr.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)

	validation, err := fx.svc.Preview(ctx, "evt-1", record.Token)
	require.NoError(t, err)
	assert.True(t, validation.IsValid)

	// Preview does not consume.
	validation, err = fx.svc.Preview(ctx, "evt-1", record.Token)
	require.NoError(t, err)
	assert.True(t, validation.IsValid)

	_, err = fx.svc.Preview(ctx, "missing", record.Token)
	assert.Equal(t, apperrors.CodeEventNotFound, rejectionCode(t, err))
}
