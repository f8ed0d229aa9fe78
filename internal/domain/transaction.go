package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TxPurchase = "purchase"
	TxSell     = "sell"
	TxRetire   = "retire"
	TxAward    = "award"
)

// Transaction is the ledger journal. A purchase row is the purchase record
// (Amount = Quantity x UnitPrice); a sell row is the seller's sell order.
type Transaction struct {
	TxID         uuid.UUID  `gorm:"column:tx_id;type:uuid;primaryKey" json:"tx_id"`
	Type         string     `gorm:"column:type;type:varchar(20);not null;index" json:"type"`
	AccountID    uuid.UUID  `gorm:"column:account_id;type:uuid;not null;index" json:"account_id"`
	ListingID    *uuid.UUID `gorm:"column:listing_id;type:uuid" json:"listing_id"`
	SubmissionID *uuid.UUID `gorm:"column:submission_id;type:uuid" json:"submission_id"`
	Quantity     int64      `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice    int64      `gorm:"column:unit_price;not null;default:0" json:"unit_price"`
	Amount       int64      `gorm:"column:amount;not null;default:0" json:"amount"`
	CreatedAt    time.Time  `gorm:"column:createdAt" json:"createdAt"`
}

func (Transaction) TableName() string {
	return "Transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.TxID == uuid.Nil {
		t.TxID = uuid.New()
	}
	return nil
}
