package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		event   CalendarEvent
		wantErr bool
		errMsg  string
	}{
		{
			name:  "valid timed event",
			event: CalendarEvent{Title: "Valid Title", Date: "2024-01-15", StartTime: ptr("10:00"), EndTime: ptr("11:00")},
		},
		{
			name:  "valid all day event",
			event: CalendarEvent{Title: "Valid Title", Date: "2024-01-15"},
		},
		{
			name:    "empty title",
			event:   CalendarEvent{Title: "   ", Date: "2024-01-15"},
			wantErr: true,
			errMsg:  "title is required",
		},
		{
			name:    "missing date",
			event:   CalendarEvent{Title: "Valid Title"},
			wantErr: true,
			errMsg:  "date is invalid (required)",
		},
		{
			name:    "bad date format",
			event:   CalendarEvent{Title: "Valid Title", Date: "15/01/2024"},
			wantErr: true,
			errMsg:  "date is invalid (datetime)",
		},
		{
			name:    "bad start time",
			event:   CalendarEvent{Title: "Valid Title", Date: "2024-01-15", StartTime: ptr("25:00")},
			wantErr: true,
			errMsg:  "startTime is invalid (datetime)",
		},
		{
			name:    "end time without start time",
			event:   CalendarEvent{Title: "Valid Title", Date: "2024-01-15", EndTime: ptr("11:00")},
			wantErr: true,
			errMsg:  "end time requires a start time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateEvent(tt.event)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNormalizeTime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    *string
		wantErr bool
	}{
		{value: "", want: nil},
		{value: "  ", want: nil},
		{value: "10:00", want: ptr("10:00")},
		{value: "9:05", want: ptr("09:05")},
		{value: "23:59", want: ptr("23:59")},
		{value: "2:30 PM", want: ptr("14:30")},
		{value: "2 pm", want: ptr("14:00")},
		{value: "12:00 AM", want: ptr("00:00")},
		{value: "12:15 p.m.", want: ptr("12:15")},
		{value: "07:45am", want: ptr("07:45")},
		{value: "24:00", wantErr: true},
		{value: "10:60", wantErr: true},
		{value: "13 PM", wantErr: true},
		{value: "noon", wantErr: true},
		{value: "10.30", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(strings.ReplaceAll(tt.value, " ", "_"), func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeTime(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalendarEvent_AllDay(t *testing.T) {
	t.Parallel()

	assert.True(t, CalendarEvent{Title: "Holiday", Date: "2024-12-25"}.AllDay())
	assert.False(t, CalendarEvent{Title: "Call", Date: "2024-12-26", StartTime: ptr("09:00")}.AllDay())
}
