package loader

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Instant is the single point-in-time representation at the input
// boundary. It accepts the formats datasets arrive in and hands a plain
// time.Time to everything downstream; no other package parses time.
//
// Accepted encodings:
//   - RFC3339 string:        "2025-03-10T08:00:00Z"
//   - epoch milliseconds:    1741593600000
//   - split seconds/nanos:   {seconds: 1741593600, nanos: 0}
type Instant struct {
	time.Time
}

type instantParts struct {
	Seconds int64 `yaml:"seconds" json:"seconds"`
	Nanos   int64 `yaml:"nanos" json:"nanos"`
}

// ParseInstant converts one raw scalar into an Instant.
func ParseInstant(raw any) (Instant, error) {
	switch v := raw.(type) {
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return Instant{}, fmt.Errorf("invalid RFC3339 instant %q: %v", v, err)
		}
		return Instant{t.UTC()}, nil
	case int64:
		return Instant{time.UnixMilli(v).UTC()}, nil
	case int:
		return Instant{time.UnixMilli(int64(v)).UTC()}, nil
	case float64:
		return Instant{time.UnixMilli(int64(v)).UTC()}, nil
	case instantParts:
		return Instant{time.Unix(v.Seconds, v.Nanos).UTC()}, nil
	default:
		return Instant{}, fmt.Errorf("unsupported instant encoding %T", raw)
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (i *Instant) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err == nil && !isNumeric(node) {
			parsed, err := ParseInstant(s)
			if err != nil {
				return err
			}
			*i = parsed
			return nil
		}
		var millis int64
		if err := node.Decode(&millis); err != nil {
			return fmt.Errorf("invalid instant scalar %q", node.Value)
		}
		parsed, err := ParseInstant(millis)
		if err != nil {
			return err
		}
		*i = parsed
		return nil
	case yaml.MappingNode:
		var parts instantParts
		if err := node.Decode(&parts); err != nil {
			return fmt.Errorf("invalid instant mapping: %v", err)
		}
		parsed, err := ParseInstant(parts)
		if err != nil {
			return err
		}
		*i = parsed
		return nil
	default:
		return fmt.Errorf("unsupported instant node kind %d", node.Kind)
	}
}

func isNumeric(node *yaml.Node) bool {
	return node.Tag == "!!int" || node.Tag == "!!float"
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *Instant) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseInstant(s)
		if err != nil {
			return err
		}
		*i = parsed
		return nil
	}
	var millis int64
	if err := json.Unmarshal(data, &millis); err == nil {
		parsed, err := ParseInstant(millis)
		if err != nil {
			return err
		}
		*i = parsed
		return nil
	}
	var parts instantParts
	if err := json.Unmarshal(data, &parts); err == nil {
		parsed, err := ParseInstant(parts)
		if err != nil {
			return err
		}
		*i = parsed
		return nil
	}
	return fmt.Errorf("unsupported instant encoding: %s", data)
}
