package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONB stores arbitrary metadata in a jsonb column.
type JSONB map[string]interface{}

// Value implements driver.Valuer for JSONB.
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for JSONB.
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONB: %T", value)
	}
	return json.Unmarshal(data, j)
}

// Event represents a diagnostics event recorded by the scan engine.
type Event struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EventID     string    `gorm:"uniqueIndex;not null;size:255" json:"event_id"`
	Timestamp   time.Time `gorm:"not null;default:NOW();index:idx_events_timestamp,sort:desc" json:"timestamp"`
	Service     string    `gorm:"not null;size:100;index:idx_events_service" json:"service"`
	EventType   string    `gorm:"not null;size:50;index:idx_events_type" json:"event_type"`
	Severity    string    `gorm:"not null;size:20;index:idx_events_severity" json:"severity"`
	Title       string    `gorm:"not null;size:255" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Metadata    JSONB     `gorm:"type:jsonb" json:"metadata,omitempty"`
	EntityType  string    `gorm:"size:50;index:idx_events_entity,priority:1" json:"entity_type,omitempty"`
	EntityID    string    `gorm:"size:255;index:idx_events_entity,priority:2" json:"entity_id,omitempty"`
	CreatedAt   time.Time `gorm:"not null;default:NOW()" json:"created_at"`
}

// TableName specifies the table name for the Event model
func (Event) TableName() string {
	return "events"
}

// EventSeverity constants for event severity levels
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// EventType constants for scan engine event types
const (
	EventTypeFilesSubmitted = "files_submitted"
	EventTypeScanStarted    = "scan_started"
	EventTypeScanCompleted  = "scan_completed"
	EventTypeScanFailed     = "scan_failed"
	EventTypeThreatDetected = "threat_detected"
)

// EntityType constants for event entity types
const (
	EntityTypeScanItem = "scan_item"
	EntityTypeFile     = "file"
)

// IsValidSeverity checks if a severity level is valid
func IsValidSeverity(severity string) bool {
	switch severity {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	default:
		return false
	}
}
