package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/events"
	"github.com/spec-kit/checkin-service/internal/geo"
	"github.com/spec-kit/checkin-service/internal/repository"
	apperrors "github.com/spec-kit/checkin-service/pkg/util/errorutil"
)

// CheckinService is the orchestrator: it gates a check-in on token validity
// and geofence containment, claims the token atomically, and persists the
// record.
type CheckinService struct {
	events     repository.EventRepository
	checkins   repository.CheckinRepository
	qr         *QRService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// CheckinDependencies bundles collaborators for the check-in service.
type CheckinDependencies struct {
	EventRepo   repository.EventRepository
	CheckinRepo repository.CheckinRepository
	QRService   *QRService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// CheckinInput describes a submitted check-in request.
type CheckinInput struct {
	EventID   string
	Token     string
	UserName  string
	UserEmail string
	Location  *domain.LatLng
}

// NewCheckinService constructs the service.
func NewCheckinService(deps CheckinDependencies) *CheckinService {
	return &CheckinService{
		events:     deps.EventRepo,
		checkins:   deps.CheckinRepo,
		qr:         deps.QRService,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Submit processes a check-in end to end. The token is claimed via the atomic
// consume before the record is written; of concurrent submissions presenting
// the same token, exactly one succeeds.
func (s *CheckinService) Submit(ctx context.Context, input CheckinInput) (*domain.CheckIn, error) {
	event, err := s.events.GetByID(ctx, input.EventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, s.reject(ctx, input.EventID, apperrors.CodeEventNotFound, "event not found")
		}
		return nil, apperrors.MapError(err)
	}
	if !event.IsActive {
		return nil, s.reject(ctx, event.ID, apperrors.CodeEventInactive, "event is not accepting check-ins")
	}

	validation := s.qr.Validate(ctx, input.Token, input.EventID)
	if !validation.IsValid {
		return nil, s.reject(ctx, event.ID, validation.Error, "check-in code rejected")
	}

	if event.Geofence != nil {
		if err := s.checkGeofence(event, input.Location); err != nil {
			var domainErr *apperrors.DomainError
			if errors.As(err, &domainErr) && domainErr.Code == apperrors.CodeOutOfGeofence {
				return nil, s.reject(ctx, event.ID, domainErr.Code, domainErr.Message)
			}
			return nil, err
		}
	}

	if !s.qr.TryConsume(ctx, event.ID, input.Token) {
		return nil, s.reject(ctx, event.ID, apperrors.CodeQRAlreadyUsed, "check-in code already used")
	}

	checkin := &domain.CheckIn{
		EventID:          event.ID,
		UserName:         input.UserName,
		UserEmail:        input.UserEmail,
		Location:         input.Location,
		QRToken:          input.Token,
		CheckinTime:      time.Now(),
		ValidationStatus: domain.CheckinStatusValid,
	}
	if err := s.checkins.Create(ctx, checkin); err != nil {
		// Give the attendee their attempt back; the marker TTL bounds the
		// damage if the release itself fails.
		s.qr.ReleaseConsumed(ctx, input.Token)
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.Event{
		Type:    events.EventCheckinRecorded,
		EventID: event.ID,
		Payload: events.CheckinRecordedPayload{
			CheckinID: checkin.ID,
			UserEmail: checkin.UserEmail,
			Status:    checkin.ValidationStatus,
			Location:  checkin.Location,
		},
	})
	return checkin, nil
}

// Preview validates a token without consuming it, for clients that want to
// surface errors before the attendee fills in their details.
func (s *CheckinService) Preview(ctx context.Context, eventID, token string) (*domain.QRValidation, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewCheckinRejected(apperrors.CodeEventNotFound, "event not found", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return s.qr.Validate(ctx, token, eventID), nil
}

// ListForEvent returns persisted check-ins for admin tooling.
func (s *CheckinService) ListForEvent(ctx context.Context, eventID string, limit, offset int) ([]domain.CheckIn, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.checkins.ListByEvent(ctx, eventID, limit, offset)
}

// CountForEvent returns the total number of check-ins for an event.
func (s *CheckinService) CountForEvent(ctx context.Context, eventID string) (int64, error) {
	return s.checkins.CountByEvent(ctx, eventID)
}

func (s *CheckinService) checkGeofence(event *domain.Event, location *domain.LatLng) error {
	if location == nil {
		return apperrors.NewCheckinRejected(apperrors.CodeOutOfGeofence, "location required for this event", nil)
	}

	fence := event.Geofence
	var (
		inside bool
		err    error
	)
	switch fence.Type {
	case domain.GeofenceTypeCircle:
		if fence.Center == nil {
			return apperrors.NewInternalError(errors.New("circle geofence without center"))
		}
		inside, err = geo.InCircle(location.Lat, location.Lng, fence.Center.Lat, fence.Center.Lng, fence.RadiusMeters)
	case domain.GeofenceTypePolygon:
		vertices := make([]geo.Point, 0, len(fence.Vertices))
		for _, v := range fence.Vertices {
			vertices = append(vertices, geo.Point{Lat: v.Lat, Lng: v.Lng})
		}
		inside, err = geo.InPolygon(location.Lat, location.Lng, vertices)
	default:
		return apperrors.NewInternalError(errors.New("unknown geofence type"))
	}
	if err != nil {
		var coordErr *geo.InvalidCoordinateError
		if errors.As(err, &coordErr) {
			return apperrors.NewValidationError("invalid coordinates", map[string]any{"field": coordErr.Field})
		}
		return apperrors.NewInternalError(err)
	}
	if !inside {
		return apperrors.NewCheckinRejected(apperrors.CodeOutOfGeofence, "location outside event geofence", nil)
	}
	return nil
}

func (s *CheckinService) reject(ctx context.Context, eventID, code, message string) error {
	s.publish(ctx, events.Event{
		Type:    events.EventCheckinRejected,
		EventID: eventID,
		Payload: events.CheckinRejectedPayload{Code: code},
	})
	return apperrors.NewCheckinRejected(code, message, nil)
}

func (s *CheckinService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
