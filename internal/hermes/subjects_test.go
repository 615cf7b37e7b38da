package hermes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestOrderSubjects(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		got  string
		want string
	}{
		{SubjectOrderMatched(id), "marketplace.order." + id + ".matched"},
		{SubjectOrderUnmatched(id), "marketplace.order." + id + ".unmatched"},
		{SubjectOrderBroadcast(id), "marketplace.order." + id + ".broadcast"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestStreamCoversPublishedSubjects(t *testing.T) {
	id := uuid.NewString()
	for _, subject := range []string{
		SubjectOrderMatched(id), SubjectOrderUnmatched(id), SubjectOrderBroadcast(id), SubjectMatchRequest,
	} {
		covered := false
		for _, pattern := range StreamSubjects {
			if strings.HasPrefix(subject, strings.TrimSuffix(pattern, ">")) {
				covered = true
			}
		}
		if !covered {
			t.Errorf("subject %s not captured by stream %v", subject, StreamSubjects)
		}
	}
}

func TestMatchRequestEventDecoding(t *testing.T) {
	data := `{"order":{"id":"6f1c1f8e-8d5a-4a3e-9d55-1f2a3b4c5d6e","title":"Brackets","quantity":25,
		"technical_requirements":{"manufacturing_process":"CNC Machining"}},"max_results":5}`

	var evt MatchRequestEvent
	if err := json.Unmarshal([]byte(data), &evt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Order.Quantity != 25 || evt.MaxResults != 5 {
		t.Errorf("unexpected event %+v", evt)
	}
	if evt.Order.TechnicalRequirements.ManufacturingProcess != "CNC Machining" {
		t.Errorf("unexpected requirements %+v", evt.Order.TechnicalRequirements)
	}
	if evt.EnableFallback != nil {
		t.Error("expected EnableFallback to be unset")
	}
}
