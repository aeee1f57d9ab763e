// Package events records diagnostics events for the scan engine in
// PostgreSQL. The event log is operational visibility only: nothing in the
// engine reads it back to drive behavior, and it is optional: with no
// database configured every operation is a no-op error the callers may log
// and ignore.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/FileGuard/go-engine/fileguard/postgres"
	"github.com/FileGuard/go-engine/fileguard/postgres/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const serviceName = "scan-engine"

var (
	// ErrNoDatabase reports that no diagnostics database is configured.
	ErrNoDatabase = errors.New("database connection not available")
	// ErrEventNotFound reports an unknown event id.
	ErrEventNotFound = errors.New("event not found")
)

// EventFilters represents filters for querying events
type EventFilters struct {
	Limit     int
	Offset    int
	Severity  string
	EventType string
	StartTime *time.Time
	EndTime   *time.Time
	EntityID  string
}

// RecordScanEvent writes one diagnostics event for a scan item.
func RecordScanEvent(eventType, severity, title, itemID string, metadata map[string]interface{}) error {
	db := postgres.GetDB()
	if db == nil {
		return ErrNoDatabase
	}

	event := models.Event{
		EventID:    uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Service:    serviceName,
		EventType:  eventType,
		Severity:   severity,
		Title:      title,
		Metadata:   models.JSONB(metadata),
		EntityType: models.EntityTypeScanItem,
		EntityID:   itemID,
	}

	if err := db.Create(&event).Error; err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// GetEvents retrieves events from PostgreSQL with filters
func GetEvents(filters EventFilters) ([]models.Event, int, error) {
	db := postgres.GetDB()
	if db == nil {
		return nil, 0, ErrNoDatabase
	}

	query := db.Model(&models.Event{})

	if filters.Severity != "" {
		query = query.Where("severity = ?", filters.Severity)
	}
	if filters.EventType != "" {
		query = query.Where("event_type = ?", filters.EventType)
	}
	if filters.EntityID != "" {
		query = query.Where("entity_id = ?", filters.EntityID)
	}
	if filters.StartTime != nil {
		query = query.Where("timestamp >= ?", filters.StartTime)
	}
	if filters.EndTime != nil {
		query = query.Where("timestamp <= ?", filters.EndTime)
	}

	// Get total count before pagination
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	if filters.Limit > 500 {
		filters.Limit = 500
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	var events []models.Event
	err := query.
		Order("timestamp DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&events).Error

	if err != nil {
		return nil, 0, fmt.Errorf("failed to query events: %w", err)
	}

	return events, int(total), nil
}

// GetEvent retrieves a single event by event_id
func GetEvent(eventID string) (*models.Event, error) {
	db := postgres.GetDB()
	if db == nil {
		return nil, ErrNoDatabase
	}

	var event models.Event
	err := db.Where("event_id = ?", eventID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

// DeleteOldEvents deletes events older than the specified duration.
// This can be used for data retention policies.
func DeleteOldEvents(olderThan time.Duration) (int64, error) {
	db := postgres.GetDB()
	if db == nil {
		return 0, ErrNoDatabase
	}

	cutoffTime := time.Now().Add(-olderThan)
	result := db.Where("timestamp < ?", cutoffTime).Delete(&models.Event{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", result.Error)
	}

	return result.RowsAffected, nil
}
