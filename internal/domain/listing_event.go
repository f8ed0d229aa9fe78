package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ListingEventCreated   = "CREATED"
	ListingEventUpdated   = "UPDATED"
	ListingEventPurchased = "PURCHASED"
	ListingEventClosed    = "CLOSED"
)

type ListingEvent struct {
	EventID      uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	ListingID    uuid.UUID      `gorm:"column:listing_id;type:uuid;not null;index" json:"listing_id"`
	EventType    string         `gorm:"column:event_type;type:varchar(30);not null" json:"event_type"`
	EventData    datatypes.JSON `gorm:"column:event_data;type:json;not null" json:"event_data"`
	ActorAccount *uuid.UUID     `gorm:"column:actor_account_id;type:uuid" json:"actor_account_id"`
	CreatedAt    time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (ListingEvent) TableName() string {
	return "ListingEvents"
}

func (le *ListingEvent) BeforeCreate(tx *gorm.DB) error {
	if le.EventID == uuid.Nil {
		le.EventID = uuid.New()
	}
	return nil
}
