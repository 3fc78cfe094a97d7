package service

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/checkin-service/internal/domain"
	"github.com/spec-kit/checkin-service/internal/qr"
	apperrors "github.com/spec-kit/checkin-service/pkg/util/errorutil"
)

func newTestQRService(t *testing.T) (*QRService, *qr.Cache) {
	t.Helper()
	cipher, err := qr.NewCipher("test-secret")
	require.NoError(t, err)
	cache := qr.NewCache(qr.NewMemoryStore(), zap.NewNop())
	svc := NewQRService(QRDependencies{
		Cipher: cipher,
		Cache:  cache,
		Logger: zap.NewNop(),
	}, QROptions{
		BaseURL:           "https://checkin.example.com",
		DefaultTTLSeconds: 300,
		UsedTTLSeconds:    3600,
		ImageSizePixels:   128,
	})
	return svc, cache
}

func TestGenerateThenValidate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQRService(t)

	record, err := svc.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)
	assert.NotEmpty(t, record.Token)
	assert.NotEmpty(t, record.ImagePNG)
	assert.Greater(t, record.ExpiresAt, record.IssuedAt)
	assert.Contains(t, record.URL, "https://checkin.example.com/checkin?event=evt-1&token=")
	assert.True(t, strings.HasSuffix(record.URL, "&ts="+strconv.FormatInt(record.IssuedAt, 10)))

	result := svc.Validate(ctx, record.Token, "evt-1")
	assert.True(t, result.IsValid)
	assert.False(t, result.IsExpired)
	assert.False(t, result.IsUsed)
	assert.True(t, result.IsValidEvent)
	assert.Empty(t, result.Error)
	assert.InDelta(t, 60_000, result.TimeRemainingMs, 2_000)
}

func TestValidateWrongEvent(t *testing.T) {
	ctx := context.Background()
	svc, cache := newTestQRService(t)

	record, err := svc.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)

	// A token cached under another event is simply absent for that event.
	result := svc.Validate(ctx, record.Token, "evt-2")
	assert.False(t, result.IsValid)
	assert.True(t, result.IsExpired)
	assert.Equal(t, apperrors.CodeQRExpired, result.Error)

	// With an entry present under the other event's key, the payload check
	// catches the mismatch.
	payload := domain.QRPayload{EventID: "evt-1", IssuedAt: record.IssuedAt, ExpiresAt: record.ExpiresAt, Nonce: "n"}
	require.True(t, cache.Put(ctx, "evt-2", record.Token, payload, 60))
	result = svc.Validate(ctx, record.Token, "evt-2")
	assert.False(t, result.IsValid)
	assert.False(t, result.IsValidEvent)
	assert.Equal(t, apperrors.CodeInvalidEvent, result.Error)
}

func TestValidateNeverPanicsOnGarbage(t *testing.T) {
	ctx := context.Background()
	svc, cache := newTestQRService(t)

	for _, token := range []string{"not-base64!!", "", "AAAA", strings.Repeat("x", 4096)} {
		result := svc.Validate(ctx, token, "evt-1")
		assert.False(t, result.IsValid)
		assert.NotEmpty(t, result.Error)
	}

	// A garbage token smuggled into the cache fails the integrity layer.
	payload := domain.QRPayload{EventID: "evt-1", ExpiresAt: time.Now().Add(time.Minute).UnixMilli()}
	require.True(t, cache.Put(ctx, "evt-1", "not-a-real-token", payload, 60))
	result := svc.Validate(ctx, "not-a-real-token", "evt-1")
	assert.False(t, result.IsValid)
	assert.Equal(t, apperrors.CodeQRCorrupted, result.Error)
}

func TestReplayIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQRService(t)

	record, err := svc.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)

	require.True(t, svc.Validate(ctx, record.Token, "evt-1").IsValid)
	require.True(t, svc.MarkUsed(ctx, record.Token))

	result := svc.Validate(ctx, record.Token, "evt-1")
	assert.False(t, result.IsValid)
	assert.True(t, result.IsUsed)
	assert.Equal(t, apperrors.CodeQRAlreadyUsed, result.Error)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQRService(t)

	record, err := svc.Generate(ctx, "evt-1", 0)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	result := svc.Validate(ctx, record.Token, "evt-1")
	assert.False(t, result.IsValid)
	assert.True(t, result.IsExpired)
	assert.Zero(t, result.TimeRemainingMs)
	assert.Equal(t, apperrors.CodeQRExpired, result.Error)
}

func TestGenerateRejectsNegativeTTL(t *testing.T) {
	svc, _ := newTestQRService(t)
	_, err := svc.Generate(context.Background(), "evt-1", -1)
	assert.Error(t, err)
}

func TestTryConsumeWinsOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQRService(t)

	record, err := svc.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)

	assert.True(t, svc.TryConsume(ctx, "evt-1", record.Token))
	assert.False(t, svc.TryConsume(ctx, "evt-1", record.Token))

	svc.ReleaseConsumed(ctx, record.Token)
	assert.True(t, svc.TryConsume(ctx, "evt-1", record.Token))
}

func TestRefreshMintsIndependentToken(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQRService(t)

	first, err := svc.Generate(ctx, "evt-1", 60)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := svc.Refresh(ctx, "evt-1", 60)
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)

	// Both stay valid; refresh tracks no relationship to prior codes.
	assert.True(t, svc.Validate(ctx, first.Token, "evt-1").IsValid)
	assert.True(t, svc.Validate(ctx, second.Token, "evt-1").IsValid)

	_, activeToken, ok := svc.Active(ctx, "evt-1")
	require.True(t, ok)
	assert.Equal(t, second.Token, activeToken)
}
