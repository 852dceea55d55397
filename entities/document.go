package entities

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CollectionFeed     = "feed"
	CollectionComments = "comments"
)

// Document is one JSON document of the feed/comment store. Documents are
// addressed by (collection, partition_key, id); CreatedAt mirrors the
// document's own createdAt and is only used for ordering.
type Document struct {
	Collection   string         `gorm:"size:64;primaryKey"`
	PartitionKey string         `gorm:"size:128;primaryKey"`
	ID           string         `gorm:"size:128;primaryKey"`
	Body         datatypes.JSON `gorm:"not null"`
	CreatedAt    time.Time      `gorm:"type:timestamptz;not null;autoCreateTime:false;index"`
	UpdatedAt    time.Time      `gorm:"type:timestamptz;not null"`
}
