package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPlanEntry(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want PlanEntry
	}{
		{
			name: "full object",
			in: map[string]any{
				"time":        "10:00 AM",
				"description": "Test",
				"category":    "Education",
				"priority":    "High",
			},
			want: PlanEntry{Time: "10:00 AM", Description: "Test", Category: "Education", Priority: "High"},
		},
		{
			name: "unknown fields kept in extra",
			in: map[string]any{
				"time":        "Evening",
				"description": "Run",
				"location":    "Park",
			},
			want: PlanEntry{Time: "Evening", Description: "Run", Extra: map[string]any{"location": "Park"}},
		},
		{
			name: "scalar fields are stringified",
			in:   map[string]any{"time": float64(14), "description": true},
			want: PlanEntry{Time: "14", Description: "true"},
		},
		{
			name: "bare string element",
			in:   "buy milk",
			want: PlanEntry{Description: "buy milk"},
		},
		{
			name: "missing fields stay empty",
			in:   map[string]any{},
			want: PlanEntry{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPlanEntry(tt.in))
		})
	}
}

func TestSchedule_EntriesEncodeAsArray(t *testing.T) {
	s := ScheduleOf([]PlanEntry{
		{Time: "Morning", Description: "Gym", Category: "Health", Priority: "Medium"},
		{Time: "2:00 PM", Description: "Wedding", Extra: map[string]any{"venue": "Hall"}},
	})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"time":"Morning","description":"Gym","category":"Health","priority":"Medium"},
		{"time":"2:00 PM","description":"Wedding","venue":"Hall"}
	]`, string(data))

	var back Schedule
	require.NoError(t, json.Unmarshal(data, &back))
	assert.False(t, back.Failed())
	assert.Equal(t, s.Entries, back.Entries)
}

func TestSchedule_ErrorEncodesAsObject(t *testing.T) {
	s := FailedSchedule("not json", "unparsable response")
	assert.True(t, s.Failed())

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":true,"raw":"not json","reason":"unparsable response"}`, string(data))

	var back Schedule
	require.NoError(t, json.Unmarshal(data, &back))
	require.True(t, back.Failed())
	assert.Equal(t, "not json", back.Error.Raw)
	assert.True(t, back.Error.Flag)
}

func TestSchedule_UnmarshalRejectsScalars(t *testing.T) {
	var s Schedule
	assert.Error(t, json.Unmarshal([]byte(`"nope"`), &s))
}

func TestSchedule_NilEntriesEncodeAsEmptyArray(t *testing.T) {
	data, err := json.Marshal(Schedule{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
