package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"

	"calendar-photo-converter/core"
	"calendar-photo-converter/pkg/config"
)

var ErrNoText = errors.New("vision model returned no text")

var _ core.VisionModel = (*Client)(nil)

// Client talks to the Anthropic Messages API.
type Client struct {
	messages anthropic.MessageService
	model    string
}

func NewClient(cfg config.Vision) *Client {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// the caller decides about retries, one image costs a full completion
		option.WithMaxRetries(0),
	}

	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}

		opts = append(opts, option.WithBaseURL(base))
	}

	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	for k, v := range cfg.ExtraHeaders {
		opts = append(opts, option.WithHeader(k, v))
	}

	client := anthropic.NewClient(opts...)

	return &Client{messages: client.Messages, model: cfg.Model}
}

func (c *Client) Complete(ctx context.Context, req core.VisionRequest) (string, error) {
	msg, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: req.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(req.MediaType, req.Data),
				anthropic.NewTextBlock(req.Prompt),
			),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			log.Ctx(ctx).Error().Int("status", apiErr.StatusCode).Err(err).Msg("vision model rejected the request")
			return "", fmt.Errorf("anthropic api status %d: %w", apiErr.StatusCode, err)
		}

		return "", err
	}

	var text strings.Builder

	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", ErrNoText
	}

	log.Ctx(ctx).Debug().Str("model", string(msg.Model)).Str("stop_reason", string(msg.StopReason)).
		Int64("input_tokens", msg.Usage.InputTokens).Int64("output_tokens", msg.Usage.OutputTokens).
		Msg("vision model answered")

	return text.String(), nil
}
