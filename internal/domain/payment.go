package domain

import (
	"context"
	"strings"
	"time"
)

// PaymentMethod is a label for how the member paid; no gateway is involved.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "Cash"
	PaymentMethodCard     PaymentMethod = "Card"
	PaymentMethodTransfer PaymentMethod = "Transfer"
)

var paymentMethods = []PaymentMethod{PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer}

// ParsePaymentMethod accepts any casing of the supported methods.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	raw = strings.TrimSpace(raw)
	for _, m := range paymentMethods {
		if strings.EqualFold(raw, string(m)) {
			return m, nil
		}
	}
	return "", ErrInvalidMethod
}

// Payment is an append-only record of money received for a membership.
type Payment struct {
	ID           int64         `bson:"_id" json:"id"`
	MemberID     int64         `bson:"member_id" json:"member_id"`
	MembershipID int64         `bson:"membership_id" json:"membership_id"`
	Amount       int64         `bson:"amount" json:"amount"`
	Method       PaymentMethod `bson:"method" json:"method"`
	Concept      string        `bson:"concept" json:"concept"`
	Reference    string        `bson:"reference" json:"reference"`
	PaidAt       time.Time     `bson:"paid_at" json:"paid_at"`
}

// PaymentConcept is the free-text description stored with a plan payment.
func PaymentConcept(planName string) string {
	return "Payment for " + planName
}

// PaymentRepository is the payment recorder.
type PaymentRepository interface {
	Record(ctx context.Context, payment *Payment) error
	GetByID(ctx context.Context, id int64) (*Payment, error)
	// List returns the newest payments first.
	List(ctx context.Context, limit int64) ([]*Payment, error)
}
