package core

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()

	clock24 = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	clock12 = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*([AaPp])\.?\s*[Mm]\.?$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

func ValidateEvent(event CalendarEvent) error {
	event.Title = strings.TrimSpace(event.Title)
	if len(event.Title) == 0 {
		return errors.New("title is required")
	}

	err := validate.Struct(event)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s is invalid (%s)", verrs[0].Field(), verrs[0].Tag())
		}

		return err
	}

	if event.StartTime == nil && event.EndTime != nil {
		return errors.New("end time requires a start time")
	}

	return nil
}

// NormalizeTime converts a model supplied time of day to 24-hour HH:MM. An
// empty value means no time. 12-hour forms such as "2:30 PM" are converted;
// anything else is rejected rather than guessed.
func NormalizeTime(value string) (*string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil //nolint:nilnil
	}

	var hour, minute int

	if m := clock24.FindStringSubmatch(value); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
	} else if m := clock12.FindStringSubmatch(value); m != nil {
		hour, _ = strconv.Atoi(m[1])
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}

		if hour < 1 || hour > 12 {
			return nil, fmt.Errorf("time %q is not a valid 12-hour time", value)
		}

		hour %= 12
		if strings.EqualFold(m[3], "p") {
			hour += 12
		}
	} else {
		return nil, fmt.Errorf("time %q is not in HH:MM format", value)
	}

	if hour > 23 || minute > 59 {
		return nil, fmt.Errorf("time %q is out of range", value)
	}

	normalized := fmt.Sprintf("%02d:%02d", hour, minute)

	return &normalized, nil
}

func normalizeText(value *string) *string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil
	}

	return value
}

// NormalizeEvent cleans optional fields and validates the result. An end time
// without a start time is dropped so the event reads as all day.
func NormalizeEvent(event CalendarEvent) (CalendarEvent, error) {
	var err error

	if event.StartTime != nil {
		event.StartTime, err = NormalizeTime(*event.StartTime)
		if err != nil {
			return CalendarEvent{}, err
		}
	}

	if event.EndTime != nil {
		event.EndTime, err = NormalizeTime(*event.EndTime)
		if err != nil {
			return CalendarEvent{}, err
		}
	}

	if event.StartTime == nil {
		event.EndTime = nil
	}

	event.Title = strings.TrimSpace(event.Title)
	event.Date = strings.TrimSpace(event.Date)
	event.Description = normalizeText(event.Description)
	event.Location = normalizeText(event.Location)

	err = ValidateEvent(event)
	if err != nil {
		return CalendarEvent{}, err
	}

	return event, nil
}
