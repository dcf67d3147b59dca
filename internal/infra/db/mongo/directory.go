package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"glampbook/internal/app/policies"
	domainbooking "glampbook/internal/domain/booking"
	"glampbook/internal/domain/shared/money"
	"glampbook/internal/pkg/errs"
)

// UserHistory keeps one document per user with the ids of their bookings.
// It runs outside the booking transaction.
type UserHistory struct {
	col *mongo.Collection
}

func NewUserHistory(db *mongo.Database) *UserHistory {
	return &UserHistory{col: db.Collection("user_booking_history")}
}

func (h *UserHistory) AppendBookingToHistory(ctx context.Context, userID string, bookingID domainbooking.ID) error {
	update := bson.M{
		"$addToSet": bson.M{"bookingIds": string(bookingID)},
		"$set":      bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err := h.col.UpdateByID(ctx, userID, update, options.Update().SetUpsert(true))
	if err != nil {
		return errs.Wrapf(err, "mongo: append booking %s to history of %s", bookingID, userID)
	}
	return nil
}

// PaymentLedger keeps refunds per payment transaction, one per booking.
type PaymentLedger struct {
	col *mongo.Collection
}

func NewPaymentLedger(db *mongo.Database) *PaymentLedger {
	return &PaymentLedger{col: db.Collection("payment_ledger")}
}

type refundDocument struct {
	BookingID string      `bson:"bookingId"`
	Amount    money.Money `bson:"amount"`
	Reason    string      `bson:"reason,omitempty"`
	At        time.Time   `bson:"at"`
}

// AppendRefund pushes the refund unless one for the booking is already
// there. On an existing document the filter misses and the upsert hits the
// _id index, which is the already-recorded case.
func (l *PaymentLedger) AppendRefund(ctx context.Context, transactionID string, refund policies.RefundRecord) error {
	filter := bson.M{"_id": transactionID, "refunds.bookingId": bson.M{"$ne": string(refund.BookingID)}}
	update := bson.M{"$push": bson.M{"refunds": refundDocument{
		BookingID: string(refund.BookingID),
		Amount:    refund.Amount,
		Reason:    refund.Reason,
		At:        refund.At.UTC(),
	}}}
	_, err := l.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return errs.Wrapf(err, "mongo: append refund for %s", refund.BookingID)
	}
	return nil
}

var (
	_ policies.UserDirectory = (*UserHistory)(nil)
	_ policies.PaymentLedger = (*PaymentLedger)(nil)
)
