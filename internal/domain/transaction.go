package domain

import "time"

// Transaction Model (one row per bridge operation)
type Transaction struct {
	ID                 uint         `gorm:"primaryKey" json:"id"`                           // Primary key
	OrderID            *string      `gorm:"uniqueIndex;size:16" json:"orderID,omitempty"`   // External order ID, only set for two-leg flows
	Amount             string       `gorm:"not null" json:"amount"`                         // Decimal amount as entered by the user
	PhoneNumber        string       `gorm:"not null;index" json:"phoneNumber"`              // M-Pesa phone number
	TokenType          Token        `gorm:"size:8;not null" json:"tokenType"`               // Token moved on the crypto leg
	TransferType       TransferType `gorm:"size:8" json:"transferType,omitempty"`           // onramp, offramp or empty for direct transfers
	WalletAddress      string       `json:"walletAddress,omitempty"`                        // User wallet for ramp flows
	Network            Network      `gorm:"size:8" json:"network,omitempty"`                // Chain the crypto leg runs on
	TokenTransactionID string       `json:"tokenTransactionId,omitempty"`                   // On-chain transaction hash
	MpesaTransactionID string       `json:"mpesaTransactionId,omitempty"`                   // Aggregator reference
	Status             Status       `gorm:"size:16;not null;default:pending" json:"status"` // Lifecycle status
	Error              string       `gorm:"type:text" json:"error,omitempty"`               // Failure detail, only set when failed
	CreatedAt          time.Time    `gorm:"autoCreateTime;index" json:"createdAt"`          // Creation time
	UpdatedAt          time.Time    `gorm:"autoUpdateTime" json:"updatedAt"`                // Last mutation time
}

// OrderRef returns the order ID or an empty string for single-shot transfers
func (t *Transaction) OrderRef() string {
	if t.OrderID == nil {
		return ""
	}
	return *t.OrderID
}
