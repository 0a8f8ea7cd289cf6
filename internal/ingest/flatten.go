package ingest

import (
	"strconv"
	"strings"
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"

	"github.com/AntMonss/claude-monitor/internal/event"
)

// eventPrefixes are exporter prefixes stripped from OTLP event names so
// stored records carry the bare kind: api_request, tool_result, ...
var eventPrefixes = []string{"claude_code.", "codex."}

// flattenAttrs folds OTLP key-value pairs into a flat map. Nested
// kvlists flatten with dotted keys so "user" > "id" becomes "user.id".
func flattenAttrs(kvs []*commonpb.KeyValue, prefix string, out map[string]any) {
	for _, kv := range kvs {
		if kv == nil {
			continue
		}
		key := kv.GetKey()
		if prefix != "" {
			key = prefix + "." + key
		}
		if kvlist := kv.GetValue().GetKvlistValue(); kvlist != nil {
			flattenAttrs(kvlist.GetValues(), key, out)
			continue
		}
		out[key] = anyValue(kv.GetValue())
	}
}

// anyValue unwraps an OTLP AnyValue into a plain Go value.
func anyValue(v *commonpb.AnyValue) any {
	switch val := v.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		return val.StringValue
	case *commonpb.AnyValue_IntValue:
		return val.IntValue
	case *commonpb.AnyValue_DoubleValue:
		return val.DoubleValue
	case *commonpb.AnyValue_BoolValue:
		return val.BoolValue
	case *commonpb.AnyValue_ArrayValue:
		items := make([]any, 0, len(val.ArrayValue.GetValues()))
		for _, item := range val.ArrayValue.GetValues() {
			items = append(items, anyValue(item))
		}
		return items
	case *commonpb.AnyValue_BytesValue:
		return val.BytesValue
	default:
		return nil
	}
}

// agentFor routes a resource batch to an agent by its service name.
// Anything that does not identify itself as codex is treated as claude,
// the dominant exporter.
func agentFor(resourceAttrs map[string]any) event.Agent {
	name, _ := resourceAttrs["service.name"].(string)
	if strings.Contains(strings.ToLower(name), "codex") {
		return event.AgentCodex
	}
	return event.AgentClaude
}

// telemetryEvent maps one OTLP log record to a stored telemetry event.
// Records without an event name carry no useful signal and are dropped.
func telemetryEvent(agent event.Agent, rec *logspb.LogRecord) (event.TelemetryEvent, bool) {
	attrs := make(map[string]any)
	flattenAttrs(rec.GetAttributes(), "", attrs)

	kind := rec.GetEventName()
	if kind == "" {
		kind, _ = attrs["event.name"].(string)
	}
	for _, prefix := range eventPrefixes {
		kind = strings.TrimPrefix(kind, prefix)
	}
	if kind == "" {
		return event.TelemetryEvent{}, false
	}

	ns := rec.GetTimeUnixNano()
	if ns == 0 {
		ns = rec.GetObservedTimeUnixNano()
	}
	ts := int64(ns / 1e6)
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	return event.TelemetryEvent{
		TS:           ts,
		Event:        kind,
		Agent:        agent,
		SessionID:    attrString(attrs, "session.id"),
		DurationMs:   attrFloat(attrs, "duration_ms"),
		Model:        attrString(attrs, "model"),
		InputTokens:  attrInt(attrs, "input_tokens"),
		OutputTokens: attrInt(attrs, "output_tokens"),
		CostUSD:      attrFloat(attrs, "cost_usd"),
		Tool:         attrString(attrs, "tool_name"),
		Error:        attrString(attrs, "error"),
	}, true
}

func attrString(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}

// attrFloat reads a numeric attribute. Exporters are inconsistent about
// encoding numbers, so strings holding numerals are accepted too.
func attrFloat(attrs map[string]any, key string) float64 {
	switch v := attrs[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func attrInt(attrs map[string]any, key string) int64 {
	switch v := attrs[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
