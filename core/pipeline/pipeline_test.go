package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"azure-costs/core/document"
)

func TestSubscriptionNames(t *testing.T) {
	names := SubscriptionNames([]document.Document{
		document.Document(`{"subscriptionId":"s1","displayName":"Production"}`),
		document.Document(`{"subscriptionId":"s2"}`),
		document.Document(`{"displayName":"Orphan"}`),
	})

	assert.Equal(t, map[string]string{"s1": "Production"}, names)
}

func TestAnnotateSubscriptionNames(t *testing.T) {
	names := map[string]string{"s1": "Production"}
	usages := []document.Document{
		document.Document(`{"properties":{"subscriptionId":"s1","meterId":"m1"}}`),
		document.Document(`{"properties":{"subscriptionId":"unknown"}}`),
		document.Document(`{"properties":{"meterId":"m2"}}`),
		document.Document(`{"other":true}`),
	}

	out := AnnotateSubscriptionNames(usages, names)
	require.Len(t, out, 4)

	name, ok := out[0].GetString("properties.subscriptionName")
	require.True(t, ok)
	assert.Equal(t, "Production", name)

	// Uncovered records pass through unchanged.
	for i := 1; i < 4; i++ {
		assert.Equal(t, usages[i].Canonical(), out[i].Canonical())
	}

	// Inputs never mutated.
	assert.False(t, usages[0].Exists("properties.subscriptionName"))
}

func TestClampDates(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	yesterday := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "window in the past is untouched",
			start:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			end:       time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "start today becomes yesterday",
			start:     today,
			end:       today,
			wantStart: yesterday,
			wantEnd:   today,
		},
		{
			name:      "future window is pulled back",
			start:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			end:       time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
			wantStart: yesterday,
			wantEnd:   today,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := clampDates(tt.start, tt.end, now)
			assert.True(t, start.Equal(tt.wantStart), "start: got %v", start)
			assert.True(t, end.Equal(tt.wantEnd), "end: got %v", end)
		})
	}
}
