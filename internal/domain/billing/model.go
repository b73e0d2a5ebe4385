// Package billing tracks payments made against reports and keeps the
// report's denormalized payment flag in step with the payment record.
package billing

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle of a payment record.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentSuccess  PaymentStatus = "success"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var validPaymentStatuses = map[PaymentStatus]bool{
	PaymentPending: true, PaymentSuccess: true,
	PaymentFailed: true, PaymentRefunded: true,
}

// Payment maps to the payments table.
type Payment struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	ReportID  uuid.UUID     `db:"report_id" json:"report_id"`
	PatientID uuid.UUID     `db:"patient_id" json:"patient_id"`
	Amount    float64       `db:"amount" json:"amount"`
	Currency  string        `db:"currency" json:"currency"`
	Method    string        `db:"method" json:"method"`
	Reference *string       `db:"reference" json:"reference,omitempty"`
	MadeBy    *uuid.UUID    `db:"made_by" json:"made_by,omitempty"`
	Status    PaymentStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}
