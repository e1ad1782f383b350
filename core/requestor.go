package core

import (
	"context"
	"encoding/base64"

	"github.com/rs/zerolog/log"
)

const DefaultMaxTokens = 4000

const ExtractionPrompt = `Please analyze this calendar image and extract all visible events. Look carefully for:
- Event titles/names
- Dates
- Times (if visible)
- Any additional details or descriptions
- Recurring events (like daily/weekly activities)

Return the results as a JSON array where each event has this structure:
{
  "title": "Event title or name",
  "date": "YYYY-MM-DD" (infer the year from context if not shown),
  "startTime": "HH:MM" (24-hour format, or null if not specified),
  "endTime": "HH:MM" (24-hour format, or null if not specified),
  "description": "Any additional details visible",
  "location": "Location if visible, otherwise null"
}

Important guidelines:
- Only extract events that are clearly visible and readable
- If a time is not specified, set startTime and endTime to null
- For all-day events, set both startTime and endTime to null
- Be thorough - look for ALL events on the calendar, including small text
- If you see recurring events (like daily exercise), include each instance
- Infer reasonable descriptions from context when possible
- Return ONLY the JSON array, no other text`

// VisionRequest is one multimodal, single-turn request.
type VisionRequest struct {
	MediaType string
	Data      string
	Prompt    string
	MaxTokens int64
}

// VisionModel sends a request to a vision-capable completion model and
// returns its text answer.
type VisionModel interface {
	Complete(ctx context.Context, req VisionRequest) (string, error)
}

type Requestor interface {
	Request(ctx context.Context, image Image) (string, error)
}

type requestor struct {
	model     VisionModel
	maxTokens int64
}

func NewRequestor(model VisionModel, maxTokens int64) Requestor {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	return &requestor{model: model, maxTokens: maxTokens}
}

// Request validates the image before any external call, then asks the model
// for the events it can see.
func (r *requestor) Request(ctx context.Context, image Image) (string, error) {
	err := ValidateImage(image)
	if err != nil {
		return "", err
	}

	mediaType := image.MediaType
	if mediaType == "" {
		mediaType = MediaTypeFromFileName(image.FileName)
	}

	log.Ctx(ctx).Debug().Str("file", image.FileName).Str("media_type", mediaType).Int("size", len(image.Data)).
		Msg("sending image to vision model")

	text, err := r.model.Complete(ctx, VisionRequest{
		MediaType: mediaType,
		Data:      base64.StdEncoding.EncodeToString(image.Data),
		Prompt:    ExtractionPrompt,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		return "", &UpstreamError{Err: err}
	}

	return text, nil
}
