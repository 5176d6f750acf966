package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func i64(v int64) *int64 { return &v }

func TestEffectiveTimeoutMs(t *testing.T) {
	ceiling := int64(120_000)

	tests := []struct {
		name    string
		seconds *int64
		ms      *int64
		want    int64
	}{
		{"neither set uses ceiling", nil, nil, 120_000},
		{"seconds preferred over ms", i64(10), i64(99_000), 10_000},
		{"seconds clamped low", i64(0), nil, 1_000},
		{"seconds clamped high then capped", i64(999), nil, 120_000},
		{"legacy ms", nil, i64(5_000), 5_000},
		{"legacy ms clamped low", nil, i64(0), 1},
		{"legacy ms capped at ceiling", nil, i64(250_000), 120_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveTimeoutMs(ceiling, tt.seconds, tt.ms))
		})
	}
}

func TestEffectiveTimeoutMs_NeverExceedsCeiling(t *testing.T) {
	assert.Equal(t, int64(2_000), EffectiveTimeoutMs(2_000, i64(300), nil))
}

func TestEffectiveMaxOutputBytes(t *testing.T) {
	ceiling := int64(5_000_000)

	tests := []struct {
		name      string
		requested *int64
		want      int64
	}{
		{"unset uses ceiling", nil, 5_000_000},
		{"in range", i64(50_000), 50_000},
		{"clamped to minimum", i64(10), 1_000},
		{"clamped to maximum then capped", i64(99_000_000), 5_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveMaxOutputBytes(ceiling, tt.requested))
		})
	}
}
