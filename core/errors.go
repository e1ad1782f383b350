package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNoImage          = errors.New("no image file provided")
	ErrImageTooLarge    = errors.New("file too large, maximum size is 10MB")
	ErrNotImage         = errors.New("only image files are allowed")
	ErrUpstream         = errors.New("vision model request failed")
	ErrParseFailure     = errors.New("failed to parse calendar events from image")
	ErrMalformedEvent   = errors.New("malformed event")
	ErrAnalysisNotFound = errors.New("analysis not found")
)

// ParseError carries the untouched model response so the caller can show what
// the model actually said.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUpstream, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

// Error is the JSON body of every failed API response.
type Error struct {
	Message     string   `json:"error,omitempty"`
	Err         []string `json:"details,omitempty"`
	RawResponse string   `json:"rawResponse,omitempty"`
}

func NewError(message string, errs ...error) *Error {
	e := &Error{Message: message}

	for _, err := range errs {
		if err != nil {
			e.Err = append(e.Err, err.Error())
		}
	}

	return e
}

// WithRawResponse attaches the model answer that could not be parsed.
func (e *Error) WithRawResponse(raw string) *Error {
	e.RawResponse = raw
	return e
}

func (e *Error) Error() string {
	//nolint:errchkjson
	data, _ := json.Marshal(e)
	return string(data)
}

func (e *Error) Unwrap() error {
	if e == nil || len(e.Err) == 0 {
		return nil
	}

	errs := make([]error, 0, len(e.Err))
	for _, msg := range e.Err {
		errs = append(errs, errors.New(msg))
	}

	return errors.Join(errs...)
}

func (e *Error) Messages() []string {
	return e.Err
}
