package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/checkin-service/internal/domain"
)

func newEventService() (*EventService, *fakeEventRepo) {
	repo := &fakeEventRepo{events: map[string]*domain.Event{}}
	return NewEventService(repo, 10000), repo
}

func TestCreateEventTrimsName(t *testing.T) {
	svc, repo := newEventService()

	event, err := svc.Create(context.Background(), &domain.Event{ID: "evt-1", Name: "  Launch  "})
	require.NoError(t, err)
	assert.Equal(t, "Launch", event.Name)
	assert.Len(t, repo.events, 1)

	_, err = svc.Create(context.Background(), &domain.Event{ID: "evt-2", Name: "   "})
	assert.Error(t, err)
}

func TestCreateEventGeofenceValidation(t *testing.T) {
	svc, _ := newEventService()
	ctx := context.Background()

	cases := []struct {
		name  string
		fence *domain.Geofence
		ok    bool
	}{
		{"no fence", nil, true},
		{"valid circle", circleFence(52.52, 13.405, 500), true},
		{"circle without center", &domain.Geofence{Type: domain.GeofenceTypeCircle, RadiusMeters: 100}, false},
		{"zero radius", circleFence(52.52, 13.405, 0), false},
		{"radius over cap", circleFence(52.52, 13.405, 10001), false},
		{"center off the map", circleFence(91, 13.405, 100), false},
		{"valid polygon", &domain.Geofence{
			Type:     domain.GeofenceTypePolygon,
			Vertices: []domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}},
		}, true},
		{"degenerate polygon", &domain.Geofence{
			Type:     domain.GeofenceTypePolygon,
			Vertices: []domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}},
		}, false},
		{"polygon with bad vertex", &domain.Geofence{
			Type:     domain.GeofenceTypePolygon,
			Vertices: []domain.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 181}, {Lat: 1, Lng: 1}},
		}, false},
		{"unknown type", &domain.Geofence{Type: "hexagon"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, &domain.Event{ID: "evt-" + tc.name, Name: "Launch", Geofence: tc.fence})
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSetActive(t *testing.T) {
	svc, repo := newEventService()
	ctx := context.Background()
	repo.events["evt-1"] = &domain.Event{ID: "evt-1", Name: "Launch", IsActive: true}

	event, err := svc.SetActive(ctx, "evt-1", false)
	require.NoError(t, err)
	assert.False(t, event.IsActive)
	assert.False(t, repo.events["evt-1"].IsActive)

	_, err = svc.SetActive(ctx, "missing", true)
	assert.Error(t, err)
}

func TestListDefaultsLimit(t *testing.T) {
	svc, repo := newEventService()
	repo.events["evt-1"] = &domain.Event{ID: "evt-1", Name: "A", IsActive: true}
	repo.events["evt-2"] = &domain.Event{ID: "evt-2", Name: "B", IsActive: false}

	events, err := svc.List(context.Background(), true, 0, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
