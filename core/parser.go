package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// arrayRegion spans the first '[' to the last ']' of a response.
var arrayRegion = regexp.MustCompile(`\[[\s\S]*\]`)

type wireEvent struct {
	Title       *string `json:"title"`
	Date        *string `json:"date"`
	StartTime   *string `json:"startTime"`
	EndTime     *string `json:"endTime"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
}

// ExtractArrayRegion returns the bracket-matched region of text, if any.
func ExtractArrayRegion(text string) (string, bool) {
	region := arrayRegion.FindString(text)
	return region, region != ""
}

// ParseEvents turns a model response into events. Models often wrap the array
// in commentary, so the bracketed region is parsed when there is one and the
// whole text otherwise. Unparseable text yields a *ParseError carrying raw.
func ParseEvents(raw string) ([]CalendarEvent, error) {
	text := strings.TrimSpace(raw)

	candidate, found := ExtractArrayRegion(text)
	if !found {
		candidate = text
	}

	var elements []json.RawMessage

	err := json.Unmarshal([]byte(candidate), &elements)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("%w: %w", ErrParseFailure, err)}
	}

	if elements == nil {
		return nil, &ParseError{Raw: raw, Err: fmt.Errorf("%w: response is not a JSON array", ErrParseFailure)}
	}

	events := make([]CalendarEvent, 0, len(elements))

	for i, element := range elements {
		event, err := parseEvent(element)
		if err != nil {
			return nil, &ParseError{
				Raw: raw,
				Err: fmt.Errorf("%w: %w at index %d: %w", ErrParseFailure, ErrMalformedEvent, i, err),
			}
		}

		events = append(events, event)
	}

	return events, nil
}

func parseEvent(element json.RawMessage) (CalendarEvent, error) {
	var wire wireEvent

	err := json.Unmarshal(element, &wire)
	if err != nil {
		return CalendarEvent{}, fmt.Errorf("not an event object: %w", err)
	}

	if wire.Title == nil {
		return CalendarEvent{}, errors.New("title is required")
	}

	if wire.Date == nil {
		return CalendarEvent{}, errors.New("date is required")
	}

	return NormalizeEvent(CalendarEvent{
		Title:       *wire.Title,
		Date:        *wire.Date,
		StartTime:   wire.StartTime,
		EndTime:     wire.EndTime,
		Description: wire.Description,
		Location:    wire.Location,
	})
}
