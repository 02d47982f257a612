package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// EmailUpdateFromMap builds an update from a loosely typed JSON object.
// Keys that are missing stay nil; a JSON null on a nullable field is kept
// as an explicit empty value.
func EmailUpdateFromMap(m map[string]any) EmailUpdate {
	var u EmailUpdate

	if v, ok := first(m, "id", "uid"); ok && v != nil {
		u.ID = cast.ToString(v)
	}
	if v, ok := m["subject"]; ok && v != nil {
		s := cast.ToString(v)
		u.Subject = &s
	}
	if v, ok := first(m, "from", "fromAddr"); ok && v != nil {
		s := cast.ToString(v)
		u.From = &s
	}
	if v, ok := m["date"]; ok {
		u.Date = ParseDate(v)
	}
	if v, ok := m["isRead"]; ok && v != nil {
		b := ToBool(v)
		u.IsRead = &b
	}
	if v, ok := m["processed"]; ok && v != nil {
		b := ToBool(v)
		u.Processed = &b
	}
	u.Body = nullableString(m, "body")
	u.Error = nullableString(m, "error")
	u.ProcessingMessage = nullableString(m, "processing_message")
	u.IntercomID = nullableString(m, "intercom_id")
	if v, ok := m["processing_time"]; ok {
		n := cast.ToInt64(v)
		u.ProcessingTime = &n
	}

	return u
}

// ParseDate interprets epoch milliseconds, numeric strings and common
// timestamp layouts. It returns nil for anything it cannot read.
func ParseDate(v any) *time.Time {
	switch d := v.(type) {
	case nil:
		return nil
	case time.Time:
		return &d
	case float64, float32, int, int32, int64, uint32, uint64:
		ms := cast.ToInt64(d)
		if ms == 0 {
			return nil
		}
		t := time.UnixMilli(ms)
		return &t
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t := time.UnixMilli(ms)
			return &t
		}
		t, err := cast.ToTimeE(s)
		if err != nil {
			return nil
		}
		return &t
	default:
		return nil
	}
}

// ToBool normalizes truthy and falsy values (true, 1, "1", "true", "yes")
func ToBool(v any) bool {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "on", "y":
			return true
		}
	}
	return cast.ToBool(v)
}

// SettingInputFromMap builds a create-or-update payload from a JSON object
func SettingInputFromMap(m map[string]any) SettingInput {
	in := SettingInput{
		ID:       cast.ToInt64(m["id"]),
		Key:      cast.ToString(m["key"]),
		Value:    cast.ToString(m["value"]),
		Category: cast.ToString(m["category"]),
	}
	if v, ok := m["is_encrypted"]; ok {
		in.IsEncrypted = ToBool(v)
	}
	return in
}

// StringMap stringifies every value of a JSON object
func StringMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = cast.ToString(v)
	}
	return out
}

func first(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func nullableString(m map[string]any, key string) *string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	s := ""
	if v != nil {
		s = cast.ToString(v)
	}
	return &s
}
