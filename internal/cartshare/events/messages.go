package events

import (
	"encoding/json"
	"time"
)

// RecordEvent is the lightweight change notice published to the broker.
// It carries the record key only; consumers fetch the current record over
// the API, so a lost or reordered event costs freshness, never correctness.
type RecordEvent struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordEvent(key string) RecordEvent {
	return RecordEvent{Key: key, Timestamp: time.Now().UTC()}
}

func (e RecordEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func RecordEventFromJSON(data []byte) (RecordEvent, error) {
	var e RecordEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return RecordEvent{}, err
	}
	return e, nil
}
