package domain

import (
	"context"
	"strings"
	"time"
)

const ReceiptStatusIssued = "Issued"

// placeholder used for missing snapshot fields on display
const notAvailable = "N/A"

// Receipt is the immutable snapshot of a settlement. Member and plan fields are copied at
// issuance and never re-derived.
type Receipt struct {
	ID             int64         `bson:"_id" json:"id"`
	Number         string        `bson:"number" json:"number"`
	PaymentID      int64         `bson:"payment_id" json:"payment_id"`
	MembershipID   int64         `bson:"membership_id" json:"membership_id"`
	MemberID       int64         `bson:"member_id" json:"member_id"`
	PlanID         int64         `bson:"plan_id" json:"plan_id"`
	IdempotencyKey string        `bson:"idempotency_key,omitempty" json:"-"`
	Amount         int64         `bson:"amount" json:"amount"`
	Method         PaymentMethod `bson:"method" json:"method"`
	Concept        string        `bson:"concept" json:"concept"`
	PaidAt         time.Time     `bson:"paid_at" json:"paid_at"`

	MemberName  string `bson:"member_name" json:"member_name"`
	MemberRUT   string `bson:"member_rut,omitempty" json:"member_rut,omitempty"`
	MemberEmail string `bson:"member_email,omitempty" json:"member_email,omitempty"`
	MemberPhone string `bson:"member_phone,omitempty" json:"member_phone,omitempty"`

	PlanName     string    `bson:"plan_name" json:"plan_name"`
	DurationDays int       `bson:"duration_days" json:"duration_days"`
	StartDate    time.Time `bson:"start_date" json:"start_date"`
	EndDate      time.Time `bson:"end_date" json:"end_date"`

	IssuedAt time.Time `bson:"issued_at" json:"issued_at"`
	Status   string    `bson:"status" json:"status"`
}

// DisplayReceipt is the read projection served to clients.
type DisplayReceipt struct {
	PaymentID       int64         `json:"payment_id"`
	ReceiptNumber   string        `json:"receipt_number"`
	PaidAt          time.Time     `json:"paid_at"`
	Amount          int64         `json:"amount"`
	Method          PaymentMethod `json:"method"`
	Concept         string        `json:"concept"`
	MemberFirstName string        `json:"member_first_name"`
	MemberLastName  string        `json:"member_last_name"`
	MemberRUT       string        `json:"member_rut"`
	MemberEmail     string        `json:"member_email,omitempty"`
	MemberPhone     string        `json:"member_phone,omitempty"`
	PlanName        string        `json:"plan_name"`
	DurationDays    int           `json:"duration_days"`
	StartDate       time.Time     `json:"start_date"`
	EndDate         time.Time     `json:"end_date"`
	Status          string        `json:"status"`
}

// SplitFullName takes the first token as the first name and joins the remaining tokens as the
// last name. "María José Pérez" yields ("María", "José Pérez"); compound first names are not
// recognised. Empty names yield "N/A" for both parts.
func SplitFullName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return notAvailable, notAvailable
	}
	first = parts[0]
	last = strings.Join(parts[1:], " ")
	if last == "" {
		last = notAvailable
	}
	return first, last
}

// Display projects the stored snapshot.
func (r *Receipt) Display() *DisplayReceipt {
	first, last := SplitFullName(r.MemberName)
	rut := r.MemberRUT
	if rut == "" {
		rut = notAvailable
	}
	return &DisplayReceipt{
		PaymentID:       r.PaymentID,
		ReceiptNumber:   r.Number,
		PaidAt:          r.PaidAt,
		Amount:          r.Amount,
		Method:          r.Method,
		Concept:         r.Concept,
		MemberFirstName: first,
		MemberLastName:  last,
		MemberRUT:       rut,
		MemberEmail:     r.MemberEmail,
		MemberPhone:     r.MemberPhone,
		PlanName:        r.PlanName,
		DurationDays:    r.DurationDays,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		Status:          r.Status,
	}
}

// ReceiptRepository persists issued receipts.
type ReceiptRepository interface {
	// Issue inserts the receipt. A reused idempotency key yields ErrDuplicateIdempotencyKey.
	Issue(ctx context.Context, receipt *Receipt) error
	GetByID(ctx context.Context, id int64) (*Receipt, error)
	GetByPaymentID(ctx context.Context, paymentID int64) (*Receipt, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*Receipt, error)
}

// ReceiptArchive keeps an external copy of issued receipts.
type ReceiptArchive interface {
	Archive(ctx context.Context, receipt *Receipt) (string, error)
}
