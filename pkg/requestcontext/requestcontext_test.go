package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowDefaultsToWallClock(t *testing.T) {
	got := Now(context.Background())
	assert.WithinDuration(t, time.Now(), got, time.Second)
}

func TestNowReturnsPinnedClock(t *testing.T) {
	pinned := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := WithNow(context.Background(), pinned)
	assert.Equal(t, pinned, Now(ctx))
}

func TestClientMetadata(t *testing.T) {
	ctx := WithClientMetadata(context.Background(), "1.2.3.4", "curl/8.5")
	assert.Equal(t, "1.2.3.4", ClientIP(ctx))
	assert.Equal(t, "curl/8.5", UserAgent(ctx))
}

func TestClientMetadataMissing(t *testing.T) {
	assert.Equal(t, "unknown", ClientIP(context.Background()))
	assert.Empty(t, UserAgent(context.Background()))
}
