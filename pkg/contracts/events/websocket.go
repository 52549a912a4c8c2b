// Package events contains event contract definitions for WebSocket
// notifications sent by the MarketLens server.
package events

import (
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Dataset messages
	MessageTypeDatasetReplaced MessageType = "dataset:replaced"
	MessageTypeDatasetFailed   MessageType = "dataset:failed"

	// Connection messages
	MessageTypeConnect MessageType = "connect"
	MessageTypeError   MessageType = "error"
)

// Message is the envelope of every server-sent WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// NewMessage stamps a message of type t
func NewMessage(t MessageType, traceID string, data interface{}) Message {
	return Message{
		Type:      t,
		Timestamp: time.Now().UTC(),
		TraceID:   traceID,
		Data:      data,
	}
}

// DatasetReplaced announces that queries now run against a new dataset
type DatasetReplaced struct {
	DatasetID     string   `json:"dataset_id"`
	PreviousID    string   `json:"previous_id,omitempty"`
	Source        string   `json:"source"` // directory|upload
	ValueRecords  int      `json:"value_records"`
	VolumeRecords int      `json:"volume_records"`
	Years         []int    `json:"years"`
	Warnings      []string `json:"warnings,omitempty"`
}

// DatasetFailed reports an ingestion that left the active dataset untouched
type DatasetFailed struct {
	Source  string `json:"source"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConnectData is sent to a client right after it registers
type ConnectData struct {
	ClientID  string `json:"client_id"`
	DatasetID string `json:"dataset_id,omitempty"`
}
