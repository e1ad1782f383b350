package core

import "time"

// CalendarEvent is one entry extracted from a calendar image. Optional fields
// are nil when absent and serialize as null.
type CalendarEvent struct {
	Title       string  `json:"title" validate:"required"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime   *string `json:"startTime" validate:"omitempty,datetime=15:04"`
	EndTime     *string `json:"endTime" validate:"omitempty,datetime=15:04"`
	Description *string `json:"description"`
	Location    *string `json:"location"`
}

// AllDay reports whether the event has no time of day.
func (e CalendarEvent) AllDay() bool {
	return e.StartTime == nil
}

type Image struct {
	Data      []byte
	FileName  string
	MediaType string
}

type Result struct {
	AnalysisId string          `json:"analysisId,omitempty"`
	Events     []CalendarEvent `json:"events"`
}

type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeEmpty           Outcome = "empty"
	OutcomeRejected        Outcome = "rejected"
	OutcomeUpstreamFailure Outcome = "upstream_failure"
	OutcomeParseFailure    Outcome = "parse_failure"
)

// Analysis is the logged outcome of one extraction call. Events themselves are
// never stored.
type Analysis struct {
	Id           string    `json:"id,omitempty"`
	FileName     string    `json:"fileName,omitempty"`
	MediaType    string    `json:"mediaType,omitempty"`
	SizeBytes    int64     `json:"sizeBytes"`
	EventCount   int       `json:"eventCount"`
	Outcome      Outcome   `json:"outcome,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
}
