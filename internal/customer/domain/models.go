package domain

import (
	"time"

	"gorm.io/datatypes"
)

// CustomerRecord is the local registry side of a customer. The primary key is
// the external payment-processor account identifier, so the two stores agree
// on identity by construction. Records are inserted by onboarding and removed
// by webhook convergence or compensating rollback, never updated in place.
type CustomerRecord struct {
	CustomerID   string            `gorm:"column:customer_id;primaryKey" json:"customer_id"`
	Email        string            `gorm:"not null;uniqueIndex" json:"email"`
	Phone        string            `gorm:"not null;uniqueIndex" json:"phone"`
	Name         datatypes.JSONMap `gorm:"type:jsonb" json:"name"`
	Address      datatypes.JSONMap `gorm:"type:jsonb" json:"address"`
	Metadata     datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CustomerType string            `gorm:"column:customer_type;index" json:"customer_type,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CustomerRecord) TableName() string { return "customers" }

const Table = "customers"
