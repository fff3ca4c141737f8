package domain

import "time"

// User Model
type User struct {
	ID               uint      `gorm:"primaryKey" json:"id"`                         // Primary key
	WalletAddress    string    `gorm:"uniqueIndex;not null" json:"walletAddress"`    // Wallet address on the crypto side (EVM hex or lsk32)
	MpesaPhoneNumber string    `gorm:"uniqueIndex;not null" json:"mpesaPhoneNumber"` // M-Pesa number on the fiat side, 254XXXXXXXXX
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`              // Registration time
}
