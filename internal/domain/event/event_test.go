package event

import (
	"testing"
	"time"
)

func TestType_IsValid(t *testing.T) {
	for _, typ := range AllTypes() {
		if !typ.IsValid() {
			t.Errorf("%s should be valid", typ)
		}
	}

	if Type("run.exploded").IsValid() {
		t.Error("unknown type should not be valid")
	}
	if Type("").IsValid() {
		t.Error("empty type should not be valid")
	}
}

func TestType_String(t *testing.T) {
	if got := TypeAreaFinished.String(); got != "area.finished" {
		t.Errorf("Type.String() = %v, want %v", got, "area.finished")
	}
}

func TestNewEvent(t *testing.T) {
	evt := NewEvent(TypeAreaMerged, "run-1", "Bar", map[string]interface{}{"items": 3})

	if evt.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if evt.Type != TypeAreaMerged {
		t.Errorf("Event Type = %v, want %v", evt.Type, TypeAreaMerged)
	}
	if evt.RunID != "run-1" || evt.Area != "Bar" {
		t.Errorf("Event run/area = %v/%v, want run-1/Bar", evt.RunID, evt.Area)
	}
	if time.Since(evt.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}

	other := NewEvent(TypeAreaMerged, "run-1", "Bar", nil)
	if other.ID == evt.ID {
		t.Error("Event IDs should be unique")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeRunCreated, "run-1", "", map[string]interface{}{"key1": "value1"})

	modified := original.WithPayload("key2", "value2")

	if _, exists := original.Payload["key2"]; exists {
		t.Error("Original event should not be modified")
	}
	if modified.Payload["key1"] != "value1" || modified.Payload["key2"] != "value2" {
		t.Errorf("Modified payload = %v", modified.Payload)
	}
	if modified.ID != original.ID || modified.RunID != original.RunID {
		t.Error("Modified event should keep identity fields")
	}
}

func TestEvent_PayloadGetters(t *testing.T) {
	evt := NewEvent(TypeResultsEmailed, "run-1", "", map[string]interface{}{
		"recipient": "ops@example.com",
		"bytes":     120,
		"rows":      int64(7),
		"ratio":     2.0,
	})

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"string", evt.GetPayloadString("recipient"), "ops@example.com"},
		{"string wrong type", evt.GetPayloadString("bytes"), ""},
		{"string missing", evt.GetPayloadString("nope"), ""},
		{"int", evt.GetPayloadInt("bytes"), int64(120)},
		{"int64", evt.GetPayloadInt("rows"), int64(7)},
		{"float", evt.GetPayloadInt("ratio"), int64(2)},
		{"int wrong type", evt.GetPayloadInt("recipient"), int64(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}
