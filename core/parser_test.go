package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string {
	return &s
}

func TestParseEvents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    []CalendarEvent
		wantErr error
	}{
		{
			name: "clean array",
			raw: `[{"title":"Team Meeting","date":"2024-01-15","startTime":"10:00","endTime":"11:00","description":"Sync","location":"Room 4"},` +
				`{"title":"Holiday","date":"2024-01-16","startTime":null,"endTime":null,"description":null,"location":null}]`,
			want: []CalendarEvent{
				{Title: "Team Meeting", Date: "2024-01-15", StartTime: ptr("10:00"), EndTime: ptr("11:00"), Description: ptr("Sync"), Location: ptr("Room 4")},
				{Title: "Holiday", Date: "2024-01-16"},
			},
		},
		{
			name: "wrapped in commentary",
			raw: "Here are the events:\n" +
				`[{"title":"Team Meeting","date":"2024-01-15","startTime":"10:00","endTime":null,"description":"Sync","location":null}]` +
				"\nLet me know if you need more.",
			want: []CalendarEvent{
				{Title: "Team Meeting", Date: "2024-01-15", StartTime: ptr("10:00"), Description: ptr("Sync")},
			},
		},
		{
			name: "markdown fence",
			raw:  "```json\n[{\"title\":\"Gym\",\"date\":\"2024-02-01\"}]\n```",
			want: []CalendarEvent{{Title: "Gym", Date: "2024-02-01"}},
		},
		{
			name: "title and date are trimmed",
			raw:  `[{"title":"  Gym  ","date":" 2024-02-01 ","startTime":null,"endTime":null}]`,
			want: []CalendarEvent{{Title: "Gym", Date: "2024-02-01"}},
		},
		{
			name: "empty array",
			raw:  "[]",
			want: []CalendarEvent{},
		},
		{
			name: "surrounding whitespace",
			raw:  "  \n [] \n ",
			want: []CalendarEvent{},
		},
		{
			name: "missing optional fields",
			raw:  `[{"title":"Dentist","date":"2024-03-05","startTime":"14:30","endTime":"15:00"}]`,
			want: []CalendarEvent{{Title: "Dentist", Date: "2024-03-05", StartTime: ptr("14:30"), EndTime: ptr("15:00")}},
		},
		{
			name: "duplicates pass through",
			raw:  `[{"title":"Run","date":"2024-04-01"},{"title":"Run","date":"2024-04-01"}]`,
			want: []CalendarEvent{{Title: "Run", Date: "2024-04-01"}, {Title: "Run", Date: "2024-04-01"}},
		},
		{
			name: "twelve hour times are converted",
			raw:  `[{"title":"Dinner","date":"2024-01-25","startTime":"8:00 PM","endTime":"9:30pm"}]`,
			want: []CalendarEvent{{Title: "Dinner", Date: "2024-01-25", StartTime: ptr("20:00"), EndTime: ptr("21:30")}},
		},
		{
			name: "end time without start time reads as all day",
			raw:  `[{"title":"Trip","date":"2024-05-10","startTime":null,"endTime":"18:00"}]`,
			want: []CalendarEvent{{Title: "Trip", Date: "2024-05-10"}},
		},
		{
			name: "blank optional text becomes null",
			raw:  `[{"title":"Call","date":"2024-05-11","description":"  ","location":""}]`,
			want: []CalendarEvent{{Title: "Call", Date: "2024-05-11"}},
		},
		{
			name:    "plain prose",
			raw:     "I couldn't read this calendar clearly.",
			wantErr: ErrParseFailure,
		},
		{
			name:    "invalid bracketed region",
			raw:     "Events: [title: Team Meeting]",
			wantErr: ErrParseFailure,
		},
		{
			name:    "object instead of array",
			raw:     `{"title":"Team Meeting","date":"2024-01-15"}`,
			wantErr: ErrParseFailure,
		},
		{
			name:    "json null",
			raw:     "null",
			wantErr: ErrParseFailure,
		},
		{
			name:    "missing title",
			raw:     `[{"date":"2024-01-15","startTime":"10:00"}]`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "blank title",
			raw:     `[{"title":"   ","date":"2024-01-15"}]`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "title is not a string",
			raw:     `[{"title":42,"date":"2024-01-15"}]`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "missing date",
			raw:     `[{"title":"Team Meeting"}]`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "date without year",
			raw:     `[{"title":"Team Meeting","date":"01-15"}]`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "impossible date",
			raw:     `[{"title":"Team Meeting","date":"2024-02-30"}]`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "unreadable time",
			raw:     `[{"title":"Team Meeting","date":"2024-01-15","startTime":"morning"}]`,
			wantErr: ErrMalformedEvent,
		},
		{
			name:    "element is not an object",
			raw:     `["Team Meeting"]`,
			wantErr: ErrMalformedEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseEvents(tt.raw)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.ErrorIs(t, err, ErrParseFailure)
				assert.Nil(t, got)

				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.raw, perr.Raw)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEvents_RawTextIsKeptExactly(t *testing.T) {
	t.Parallel()

	raw := "I couldn't read this calendar clearly."

	_, err := ParseEvents(raw)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, raw, perr.Raw)
}

func TestParseEvents_RoundTrip(t *testing.T) {
	t.Parallel()

	events := []CalendarEvent{
		{Title: "Team Meeting", Date: "2024-01-15", StartTime: ptr("10:00"), Description: ptr("Sync")},
		{Title: "Conference", Date: "2024-01-20", StartTime: ptr("09:00"), EndTime: ptr("17:30"), Location: ptr("Hall B")},
		{Title: "Holiday", Date: "2024-12-25"},
	}

	data, err := json.Marshal(events)
	require.NoError(t, err)

	got, err := ParseEvents("Sure! " + string(data) + " Anything else?")
	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestParseEvents_Idempotent(t *testing.T) {
	t.Parallel()

	raw := "Found these:\n[{\"title\":\"Yoga\",\"date\":\"2024-06-01\",\"startTime\":\"7:00 AM\"}]"

	first, err1 := ParseEvents(raw)
	second, err2 := ParseEvents(raw)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestExtractArrayRegion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		text      string
		want      string
		wantFound bool
	}{
		{name: "no brackets", text: "nothing here"},
		{name: "plain array", text: "[1,2]", want: "[1,2]", wantFound: true},
		{name: "first to last", text: "a [1] b [2] c", want: "[1] b [2]", wantFound: true},
		{name: "multi line", text: "x\n[\n{}\n]\ny", want: "[\n{}\n]", wantFound: true},
		{name: "unclosed", text: "[ never closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, found := ExtractArrayRegion(tt.text)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}
