package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/checkin-service/internal/events"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	checkinCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		checkinCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordCheckinOutcome counts check-in pipeline outcomes per event.
func (m *Metrics) RecordCheckinOutcome(eventID, outcome string) {
	if m == nil {
		return
	}
	key := eventID + "|" + outcome
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkinCount[key]++
}

// Subscribe registers outcome counting on the domain event dispatcher.
func (m *Metrics) Subscribe(dispatcher events.Dispatcher) {
	if m == nil || dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventCheckinRecorded, func(_ context.Context, event events.Event) error {
		m.RecordCheckinOutcome(event.EventID, "recorded")
		return nil
	})
	dispatcher.Subscribe(events.EventCheckinRejected, func(_ context.Context, event events.Event) error {
		outcome := "rejected"
		if payload, ok := event.Payload.(events.CheckinRejectedPayload); ok && payload.Code != "" {
			outcome = "rejected:" + payload.Code
		}
		m.RecordCheckinOutcome(event.EventID, outcome)
		return nil
	})
	dispatcher.Subscribe(events.EventQRGenerated, func(_ context.Context, event events.Event) error {
		m.RecordCheckinOutcome(event.EventID, "qr_generated")
		return nil
	})
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
