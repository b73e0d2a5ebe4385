package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the patient's position in the intake-to-completion workflow.
type Status string

const (
	StatusPendingPayment   Status = "pending_payment"
	StatusInProgress       Status = "in_progress"
	StatusSentToDepartment Status = "sent_to_department"
	StatusReported         Status = "reported"
	StatusCompleted        Status = "completed"
)

// PaymentStatus tracks whether intake payment has been recorded.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// CaseType is the urgency classification chosen at intake.
type CaseType string

const (
	CaseUrgent    CaseType = "Urgent"
	CaseEmergency CaseType = "Emergency"
	CaseRoutine   CaseType = "Routine"
	CaseSTAT      CaseType = "STAT"
)

var validCaseTypes = map[CaseType]bool{
	CaseUrgent: true, CaseEmergency: true, CaseRoutine: true, CaseSTAT: true,
}

var validStatuses = map[Status]bool{
	StatusPendingPayment: true, StatusInProgress: true, StatusSentToDepartment: true,
	StatusReported: true, StatusCompleted: true,
}

// SelectedTest is a denormalized copy of a diagnostic test chosen at intake.
type SelectedTest struct {
	TestID       *uuid.UUID `json:"test_id,omitempty"`
	Name         string     `json:"name"`
	Price        float64    `json:"price"`
	OfferRate    float64    `json:"offer_rate"`
	Code         string     `json:"code"`
	DepartmentID uuid.UUID  `json:"department_id"`
}

// Attachment is a stored file linked to the patient record.
type Attachment struct {
	URL        string    `json:"url"`
	StorageID  string    `json:"storage_id"`
	Filename   string    `json:"filename"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Patient maps to the patients table.
type Patient struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	PatientID       string         `db:"patient_id" json:"patient_id"`
	Name            string         `db:"name" json:"name"`
	Phone           string         `db:"phone" json:"phone"`
	Email           *string        `db:"email" json:"email,omitempty"`
	Gender          *string        `db:"gender" json:"gender,omitempty"`
	Age             *int           `db:"age" json:"age,omitempty"`
	Address         *string        `db:"address" json:"address,omitempty"`
	CaseDescription *string        `db:"case_description" json:"case_description,omitempty"`
	CaseType        CaseType       `db:"case_type" json:"case_type"`
	GovIDType       *string        `db:"gov_id_type" json:"gov_id_type,omitempty"`
	GovIDNumber     *string        `db:"gov_id_number" json:"gov_id_number,omitempty"`
	GovIDFileURL    *string        `db:"gov_id_file_url" json:"gov_id_file_url,omitempty"`
	SelectedTests   []SelectedTest `db:"selected_tests" json:"selected_tests"`
	Attachments     []Attachment   `db:"attachments" json:"attachments"`
	Status          Status         `db:"status" json:"status"`
	PaymentStatus   PaymentStatus  `db:"payment_status" json:"payment_status"`

	DepartmentAssignedTo *uuid.UUID `db:"department_assigned_to" json:"department_assigned_to,omitempty"`
	AssignedDepartment   *string    `db:"assigned_department" json:"assigned_department,omitempty"`
	DepartmentAssignedBy *uuid.UUID `db:"department_assigned_by" json:"department_assigned_by,omitempty"`
	DepartmentAssignedAt *time.Time `db:"department_assigned_at" json:"department_assigned_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Assignment is the department-assignment triple set atomically on a patient.
type Assignment struct {
	DepartmentID   uuid.UUID
	DepartmentName string // stored lower-cased
	AssignedBy     uuid.UUID
	AssignedAt     time.Time
}

// NewPatientID generates the human-readable patient identifier. The PT-<ms>
// format is part of the external contract and must stay bit-exact.
func NewPatientID() string {
	return fmt.Sprintf("PT-%d", time.Now().UnixMilli())
}
