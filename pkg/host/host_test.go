package host

import (
	"context"
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info, err := GetInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
	assert.Positive(t, info.LogicalCPUs)
	assert.Positive(t, info.TotalMemory)
	assert.LessOrEqual(t, info.AvailableMemory, info.TotalMemory)
	assert.GreaterOrEqual(t, info.Width, 16)
}

func TestSafeLimit(t *testing.T) {
	limit, err := SafeLimit(context.Background(), 0.5)
	require.NoError(t, err)
	assert.Positive(t, limit)

	for _, fraction := range []float64{0, -1, 1.5} {
		_, err := SafeLimit(context.Background(), fraction)
		assert.Error(t, err)
	}
}

func TestLimitFor(t *testing.T) {
	assert.Equal(t, 512, limitFor(1024, 0.5))
	assert.Equal(t, 1024, limitFor(1024, 1))
	assert.Equal(t, math.MaxInt, limitFor(math.MaxUint64, 1))
}
