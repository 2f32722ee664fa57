package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionRecord is the processor's receipt for a successful charge.
// It is written once, together with the order's move to complete.
type TransactionRecord struct {
	OrderID         uuid.UUID `json:"order_id"`
	TransactionID   string    `json:"transaction_id"`
	ProcessorStatus string    `json:"processor_status"`
	CreatedAt       time.Time `json:"created_at"`
}
