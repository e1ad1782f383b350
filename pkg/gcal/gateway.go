package gcal

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"

	"calendar-photo-converter/core"
	"calendar-photo-converter/pkg/config"
)

const defaultDuration = time.Hour

var _ core.CalendarGateway = (*Gateway)(nil)

// Gateway turns extracted events into Google Calendar payloads. It does not
// hold a token and never calls the Calendar API.
type Gateway struct {
	oauth    *oauth2.Config
	location *time.Location
}

type Option func(*Gateway)

func WithLocation(location *time.Location) Option {
	return func(g *Gateway) {
		if location != nil {
			g.location = location
		}
	}
}

func NewGateway(cfg config.Google, opts ...Option) *Gateway {
	gateway := &Gateway{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     google.Endpoint,
		},
		location: time.Local,
	}

	for _, opt := range opts {
		opt(gateway)
	}

	return gateway
}

func (g *Gateway) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

func (g *Gateway) Prepare(ctx context.Context, events []core.CalendarEvent) (int, error) {
	prepared, err := g.Events(events)
	if err != nil {
		return 0, err
	}

	for _, event := range prepared {
		log.Ctx(ctx).Debug().Str("summary", event.Summary).Msg("calendar event prepared")
	}

	log.Ctx(ctx).Info().Int("events", len(prepared)).Msg("calendar events prepared, not sent")

	return len(prepared), nil
}

func (g *Gateway) Events(events []core.CalendarEvent) ([]*calendar.Event, error) {
	prepared := make([]*calendar.Event, 0, len(events))

	for i, event := range events {
		item, err := g.toGoogleEvent(event)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}

		prepared = append(prepared, item)
	}

	return prepared, nil
}

func (g *Gateway) toGoogleEvent(event core.CalendarEvent) (*calendar.Event, error) {
	day, err := time.ParseInLocation(time.DateOnly, event.Date, g.location)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", event.Date, err)
	}

	item := &calendar.Event{Summary: event.Title}

	if event.Description != nil {
		item.Description = *event.Description
	}

	if event.Location != nil {
		item.Location = *event.Location
	}

	if event.AllDay() {
		// the end date of an all-day event is exclusive
		item.Start = &calendar.EventDateTime{Date: day.Format(time.DateOnly)}
		item.End = &calendar.EventDateTime{Date: day.AddDate(0, 0, 1).Format(time.DateOnly)}

		return item, nil
	}

	start, err := at(day, *event.StartTime)
	if err != nil {
		return nil, err
	}

	end := start.Add(defaultDuration)

	if event.EndTime != nil {
		end, err = at(day, *event.EndTime)
		if err != nil {
			return nil, err
		}

		if !end.After(start) {
			end = end.AddDate(0, 0, 1)
		}
	}

	zone := g.location.String()

	item.Start = &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: zone}
	item.End = &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: zone}

	return item, nil
}

func at(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}

	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, day.Location()), nil
}
