package resources

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"

	"github.com/rs/zerolog"
	otelog "go.opentelemetry.io/otel/log"
)

var severities = map[zerolog.Level]struct {
	severity otelog.Severity
	text     string
}{
	zerolog.TraceLevel: {otelog.SeverityTrace, "TRACE"},
	zerolog.DebugLevel: {otelog.SeverityDebug, "DEBUG"},
	zerolog.InfoLevel:  {otelog.SeverityInfo, "INFO"},
	zerolog.WarnLevel:  {otelog.SeverityWarn, "WARN"},
	zerolog.ErrorLevel: {otelog.SeverityError, "ERROR"},
	zerolog.FatalLevel: {otelog.SeverityFatal, "FATAL"},
	zerolog.PanicLevel: {otelog.SeverityFatal4, "FATAL"},
}

// LogBridgeHook copies every zerolog record to the OpenTelemetry log API.
// The zerolog output itself is left untouched.
type LogBridgeHook struct {
	logger  otelog.Logger
	service string
	version string
}

func NewLogBridgeHook(provider otelog.LoggerProvider, service string, version string) *LogBridgeHook {
	return &LogBridgeHook{
		logger:  provider.Logger(service, otelog.WithInstrumentationVersion(version)),
		service: service,
		version: version,
	}
}

func (h *LogBridgeHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	fields, ok := eventFields(e)
	if !ok {
		return
	}

	sev, sevText := severity(level)

	var rec otelog.Record
	rec.SetTimestamp(recordTime(fields))
	rec.SetObservedTimestamp(time.Now())
	rec.SetSeverity(sev)
	rec.SetSeverityText(sevText)
	rec.SetBody(otelog.StringValue(msg))
	rec.AddAttributes(otelog.String("service.name", h.service), otelog.String("service.version", h.version))
	rec.AddAttributes(toAttributes(fields)...)

	h.logger.Emit(e.GetCtx(), rec)
}

func severity(level zerolog.Level) (otelog.Severity, string) {
	s, ok := severities[level]
	if !ok {
		return otelog.SeverityInfo, "INFO"
	}

	return s.severity, s.text
}

// eventFields decodes the fields already written to the event. zerolog keeps
// them in an unexported, not yet closed JSON buffer.
func eventFields(e *zerolog.Event) (map[string]any, bool) {
	if e == nil {
		return nil, false
	}

	buf := reflect.ValueOf(e).Elem().FieldByName("buf")
	if !buf.IsValid() || buf.Kind() != reflect.Slice || buf.Type().Elem().Kind() != reflect.Uint8 || buf.Len() == 0 {
		return nil, false
	}

	data := append(append([]byte(nil), buf.Bytes()...), '}')

	var fields map[string]any
	if json.Unmarshal(data, &fields) != nil {
		return nil, false
	}

	return fields, true
}

// toAttributes converts decoded fields, in key order. Level and timestamp are
// already carried by the record itself.
func toAttributes(fields map[string]any) []otelog.KeyValue {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == zerolog.LevelFieldName || k == zerolog.TimestampFieldName {
			continue
		}

		keys = append(keys, k)
	}
	sort.Strings(keys)

	kvs := make([]otelog.KeyValue, 0, len(keys))
	for _, k := range keys {
		kvs = append(kvs, otelog.KeyValue{Key: k, Value: toValue(fields[k])})
	}

	return kvs
}

func toValue(v any) otelog.Value {
	switch x := v.(type) {
	case string:
		return otelog.StringValue(x)
	case bool:
		return otelog.BoolValue(x)
	case float64:
		if x == float64(int64(x)) {
			return otelog.Int64Value(int64(x))
		}

		return otelog.Float64Value(x)
	default:
		return otelog.StringValue(fmt.Sprintf("%v", x))
	}
}

func recordTime(fields map[string]any) time.Time {
	s, _ := fields[zerolog.TimestampFieldName].(string)

	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Now()
	}

	return ts
}
