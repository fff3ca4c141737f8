// Package ledger persists users and the transaction rows that track each
// bridge operation.
package ledger

import (
	"context"
	"errors"

	"mpesa_bridge/internal/domain"
	"mpesa_bridge/internal/xerr"

	"gorm.io/gorm"
)

// Fields is the set of columns written by Update and Transition
type Fields struct {
	TokenTransactionID string
	MpesaTransactionID string
	Error              string
}

func (f Fields) columns(status domain.Status) map[string]any {
	cols := map[string]any{"status": status}
	if f.TokenTransactionID != "" {
		cols["token_transaction_id"] = f.TokenTransactionID
	}
	if f.MpesaTransactionID != "" {
		cols["mpesa_transaction_id"] = f.MpesaTransactionID
	}
	if f.Error != "" {
		cols["error"] = f.Error
	}
	return cols
}

// Ledger is the GORM-backed store
type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// CreateUser inserts a user; either identifier already being taken is a conflict
func (l *Ledger) CreateUser(ctx context.Context, user *domain.User) error {
	var count int64
	err := l.db.WithContext(ctx).Model(&domain.User{}).
		Where("wallet_address = ? OR mpesa_phone_number = ?", user.WalletAddress, user.MpesaPhoneNumber).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return xerr.Conflict("A user with this wallet address or M-Pesa number already exists")
	}
	if err := l.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return xerr.Conflict("A user with this wallet address or M-Pesa number already exists")
		}
		return err
	}
	return nil
}

// Create inserts tx in pending state
func (l *Ledger) Create(ctx context.Context, tx *domain.Transaction) error {
	tx.Status = domain.StatusPending
	tx.Error = ""
	if err := l.db.WithContext(ctx).Create(tx).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return xerr.Conflict("transaction with order ID %s already exists", tx.OrderRef())
		}
		return err
	}
	return nil
}

// Update writes status and fields in a single statement
func (l *Ledger) Update(ctx context.Context, id uint, status domain.Status, f Fields) error {
	res := l.db.WithContext(ctx).Model(&domain.Transaction{}).Where("id = ?", id).Updates(f.columns(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return xerr.NotFound("transaction %d not found", id)
	}
	return nil
}

// Transition moves the row from one status to the next. The current status is
// part of the WHERE clause, so a row that already moved on is left untouched.
func (l *Ledger) Transition(ctx context.Context, id uint, from, to domain.Status, f Fields) error {
	if !from.CanTransitionTo(to) {
		return xerr.InvalidState("cannot move transaction from %s to %s", from, to)
	}
	res := l.db.WithContext(ctx).Model(&domain.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(f.columns(to))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return xerr.InvalidState("transaction %d is no longer %s", id, from)
	}
	return nil
}

// FindByOrderID loads a transaction by its external order ID
func (l *Ledger) FindByOrderID(ctx context.Context, orderID string) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := l.db.WithContext(ctx).Where("order_id = ?", orderID).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, xerr.NotFound("transaction %s not found", orderID)
	}
	return &tx, err
}

// ListAll returns every transaction, newest first
func (l *Ledger) ListAll(ctx context.Context) ([]domain.Transaction, error) {
	txs := make([]domain.Transaction, 0)
	err := l.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&txs).Error
	return txs, err
}

// Page is one slice of the transaction history
type Page struct {
	Transactions []domain.Transaction `json:"transactions"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	Total        int64                `json:"total"`
	TotalPages   int                  `json:"total_pages"`
}

// ListPage returns one page of the history, newest first
func (l *Ledger) ListPage(ctx context.Context, page, pageSize int) (*Page, error) {
	var total int64
	if err := l.db.WithContext(ctx).Model(&domain.Transaction{}).Count(&total).Error; err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, pageSize)
	err := l.db.WithContext(ctx).
		Order("created_at desc").Order("id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return &Page{
		Transactions: txs,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
		TotalPages:   (int(total) + pageSize - 1) / pageSize,
	}, nil
}

// ListByPhone returns the transactions of one M-Pesa number, newest first
func (l *Ledger) ListByPhone(ctx context.Context, phone string) ([]domain.Transaction, error) {
	txs := make([]domain.Transaction, 0)
	err := l.db.WithContext(ctx).Where("phone_number = ?", phone).
		Order("created_at desc").Order("id desc").
		Find(&txs).Error
	return txs, err
}
