// Package workflow owns the Case/Report lifecycle: it validates status
// transitions, keeps denormalized references between patients, cases and
// reports consistent, and fans change events out to the notification layer.
package workflow

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/ris/ris/internal/platform/blobstore"
)

// CaseStatus is the lifecycle of a diagnostic episode.
type CaseStatus string

const (
	CasePending  CaseStatus = "pending"
	CaseApproved CaseStatus = "approved"
)

var validCaseStatuses = map[CaseStatus]bool{
	CasePending: true, CaseApproved: true,
}

// ReportStatus is the lifecycle of a clinical report. The linear path runs
// pending → in_progress → report_uploaded → reviewed → approved; cancelled
// and paid are side branches reachable from any non-terminal state.
type ReportStatus string

const (
	ReportPending    ReportStatus = "pending"
	ReportInProgress ReportStatus = "in_progress"
	ReportUploaded   ReportStatus = "report_uploaded"
	ReportReviewed   ReportStatus = "reviewed"
	ReportApproved   ReportStatus = "approved"
	ReportCancelled  ReportStatus = "cancelled"
	ReportPaid       ReportStatus = "paid"
)

var validReportStatuses = map[ReportStatus]bool{
	ReportPending: true, ReportInProgress: true, ReportUploaded: true,
	ReportReviewed: true, ReportApproved: true, ReportCancelled: true,
	ReportPaid: true,
}

// reportStatusRank orders the linear portion of the report lifecycle.
var reportStatusRank = map[ReportStatus]int{
	ReportPending:    0,
	ReportInProgress: 1,
	ReportUploaded:   2,
	ReportReviewed:   3,
	ReportApproved:   4,
}

// Terminal report states admit no further transitions without an override.
var terminalReportStatuses = map[ReportStatus]bool{
	ReportApproved: true, ReportCancelled: true, ReportPaid: true,
}

// CanTransition reports whether a report may move between two statuses on
// the normal (non-override) path: strictly forward along the linear
// lifecycle, or sideways into cancelled/paid from a non-terminal state.
func CanTransition(from, to ReportStatus) bool {
	if terminalReportStatuses[from] {
		return false
	}
	if to == ReportCancelled || to == ReportPaid {
		return true
	}
	fromRank, fromLinear := reportStatusRank[from]
	toRank, toLinear := reportStatusRank[to]
	if !fromLinear || !toLinear {
		return false
	}
	return toRank > fromRank
}

// CaseTest is the denormalized copy of a selected diagnostic test carried
// onto the case at creation time.
type CaseTest struct {
	TestID       *uuid.UUID `json:"test_id,omitempty"`
	Name         string     `json:"name"`
	Price        float64    `json:"price"`
	OfferRate    float64    `json:"offer_rate"`
	Code         string     `json:"code"`
	DepartmentID uuid.UUID  `json:"department_id"`
}

// Case maps to the cases table.
type Case struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	CaseNumber    string     `db:"case_number" json:"case_number"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	DepartmentID  uuid.UUID  `db:"department_id" json:"department_id"`
	AssignedTo    *uuid.UUID `db:"assigned_to" json:"assigned_to,omitempty"`
	ReportID      *uuid.UUID `db:"report_id" json:"report_id,omitempty"`
	SelectedTests []CaseTest `db:"selected_tests" json:"selected_tests"`
	Procedure     *string    `db:"procedure" json:"procedure,omitempty"`
	ScheduledAt   *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	Status        CaseStatus `db:"status" json:"status"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Report maps to the reports table.
type Report struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	CaseNumber    string       `db:"case_number" json:"case_number"`
	CaseID        *uuid.UUID   `db:"case_id" json:"case_id,omitempty"`
	PatientID     uuid.UUID    `db:"patient_id" json:"patient_id"`
	DepartmentID  *uuid.UUID   `db:"department_id" json:"department_id,omitempty"`
	CreatedBy     *uuid.UUID   `db:"created_by" json:"created_by,omitempty"`
	AssignedTo    *uuid.UUID   `db:"assigned_to" json:"assigned_to,omitempty"`
	PatientPhone  *string      `db:"patient_phone" json:"patient_phone,omitempty"`
	Indication    *string      `db:"indication" json:"indication,omitempty"`
	Technique     *string      `db:"technique" json:"technique,omitempty"`
	Findings      *string      `db:"findings" json:"findings,omitempty"`
	Impression    *string      `db:"impression" json:"impression,omitempty"`
	Conclusion    *string      `db:"conclusion" json:"conclusion,omitempty"`
	Notes         *string      `db:"notes" json:"notes,omitempty"`
	Procedure     *string      `db:"procedure" json:"procedure,omitempty"`
	ScheduledAt   *time.Time   `db:"scheduled_at" json:"scheduled_at,omitempty"`
	ReportFile    *ReportFile  `db:"report_file" json:"report_file,omitempty"`
	Status        ReportStatus `db:"status" json:"status"`
	PaymentStatus string       `db:"payment_status" json:"payment_status"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// ReportFile is the descriptor of the uploaded clinical document.
type ReportFile struct {
	URL              string    `json:"url"`
	StorageID        string    `json:"storageId"`
	OriginalFilename string    `json:"originalFilename"`
	UploadedBy       uuid.UUID `json:"uploadedBy"`
	UploadedAt       time.Time `json:"uploadedAt"`
}

// FileFromDescriptor builds a ReportFile from a blobstore descriptor.
func FileFromDescriptor(d *blobstore.Descriptor, uploadedBy uuid.UUID) *ReportFile {
	return &ReportFile{
		URL:              d.URL,
		StorageID:        d.StorageID,
		OriginalFilename: d.OriginalFilename,
		UploadedBy:       uploadedBy,
		UploadedAt:       d.UploadedAt,
	}
}

// NewCaseNumber generates the human-readable case number. The CASE-<ms>
// format is part of the external contract and must stay bit-exact.
func NewCaseNumber() string {
	return fmt.Sprintf("CASE-%d", time.Now().UnixMilli())
}

// NewReportNumber generates a case number for reports created without a
// case: CASE-<ms>-<rand 0-999>. Creation from a case reuses the case's own
// number verbatim.
func NewReportNumber() string {
	return fmt.Sprintf("CASE-%d-%d", time.Now().UnixMilli(), rand.Intn(1000))
}
