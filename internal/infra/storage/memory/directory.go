package memory

import (
	"context"
	"sync"

	"glampbook/internal/app/policies"
	domainbooking "glampbook/internal/domain/booking"
)

// UserHistory is the per-user booking index.
type UserHistory struct {
	mu      sync.RWMutex
	history map[string][]domainbooking.ID
}

func NewUserHistory() *UserHistory {
	return &UserHistory{history: make(map[string][]domainbooking.ID)}
}

// AppendBookingToHistory is idempotent so reconciliation may replay it.
func (h *UserHistory) AppendBookingToHistory(ctx context.Context, userID string, bookingID domainbooking.ID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, id := range h.history[userID] {
		if id == bookingID {
			return nil
		}
	}
	h.history[userID] = append(h.history[userID], bookingID)
	return nil
}

func (h *UserHistory) History(userID string) []domainbooking.ID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]domainbooking.ID(nil), h.history[userID]...)
}

// PaymentLedger keeps refund entries per payment transaction.
type PaymentLedger struct {
	mu      sync.RWMutex
	refunds map[string][]policies.RefundRecord
}

func NewPaymentLedger() *PaymentLedger {
	return &PaymentLedger{refunds: make(map[string][]policies.RefundRecord)}
}

// AppendRefund records at most one refund per booking and transaction.
func (l *PaymentLedger) AppendRefund(ctx context.Context, transactionID string, refund policies.RefundRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.refunds[transactionID] {
		if existing.BookingID == refund.BookingID {
			return nil
		}
	}
	l.refunds[transactionID] = append(l.refunds[transactionID], refund)
	return nil
}

func (l *PaymentLedger) Refunds(transactionID string) []policies.RefundRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]policies.RefundRecord(nil), l.refunds[transactionID]...)
}

var (
	_ policies.UserDirectory = (*UserHistory)(nil)
	_ policies.PaymentLedger = (*PaymentLedger)(nil)
)
