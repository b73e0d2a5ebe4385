package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ris/ris/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Case Repository ===========

type caseRepoPG struct{ pool *pgxpool.Pool }

func NewCaseRepoPG(pool *pgxpool.Pool) CaseRepository {
	return &caseRepoPG{pool: pool}
}

func (r *caseRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const caseCols = `id, case_number, patient_id, department_id, assigned_to,
	report_id, selected_tests, procedure, scheduled_at, status,
	created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var cs Case
	err := row.Scan(&cs.ID, &cs.CaseNumber, &cs.PatientID, &cs.DepartmentID,
		&cs.AssignedTo, &cs.ReportID, &cs.SelectedTests, &cs.Procedure,
		&cs.ScheduledAt, &cs.Status, &cs.CreatedAt, &cs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCaseNotFound
	}
	return &cs, err
}

func (r *caseRepoPG) Create(ctx context.Context, cs *Case) error {
	cs.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cases (id, case_number, patient_id, department_id,
			assigned_to, report_id, selected_tests, procedure, scheduled_at, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		cs.ID, cs.CaseNumber, cs.PatientID, cs.DepartmentID,
		cs.AssignedTo, cs.ReportID, cs.SelectedTests, cs.Procedure,
		cs.ScheduledAt, cs.Status)
	return err
}

func (r *caseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+caseCols+` FROM cases WHERE id = $1`, id))
}

func (r *caseRepoPG) GetByNumber(ctx context.Context, caseNumber string) (*Case, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx,
		`SELECT `+caseCols+` FROM cases WHERE case_number = $1`, caseNumber))
}

func (r *caseRepoPG) Update(ctx context.Context, cs *Case) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE cases SET assigned_to=$2, selected_tests=$3, procedure=$4,
			scheduled_at=$5, updated_at=NOW()
		WHERE id = $1`,
		cs.ID, cs.AssignedTo, cs.SelectedTests, cs.Procedure, cs.ScheduledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

func (r *caseRepoPG) SetReportID(ctx context.Context, caseID uuid.UUID, reportID *uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE cases SET report_id=$2, updated_at=NOW() WHERE id = $1`, caseID, reportID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

func (r *caseRepoPG) SetStatus(ctx context.Context, caseID uuid.UUID, status CaseStatus) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE cases SET status=$2, updated_at=NOW() WHERE id = $1`, caseID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

func (r *caseRepoPG) List(ctx context.Context, f CaseFilter, limit, offset int) ([]*Case, int, error) {
	where := []string{"TRUE"}
	args := []interface{}{}
	idx := 1

	if f.PatientID != nil {
		where = append(where, fmt.Sprintf("patient_id = $%d", idx))
		args = append(args, *f.PatientID)
		idx++
	}
	if f.DepartmentID != nil {
		where = append(where, fmt.Sprintf("department_id = $%d", idx))
		args = append(args, *f.DepartmentID)
		idx++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM cases WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM cases WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			caseCols, cond, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Case
	for rows.Next() {
		cs, err := scanCase(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, cs)
	}
	return items, total, rows.Err()
}

func (r *caseRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// =========== Report Repository ===========

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewReportRepoPG(pool *pgxpool.Pool) ReportRepository {
	return &reportRepoPG{pool: pool}
}

func (r *reportRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const reportCols = `id, case_number, case_id, patient_id, department_id,
	created_by, assigned_to, patient_phone, indication, technique, findings,
	impression, conclusion, notes, procedure, scheduled_at, report_file,
	status, payment_status, created_at, updated_at`

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.CaseNumber, &rep.CaseID, &rep.PatientID,
		&rep.DepartmentID, &rep.CreatedBy, &rep.AssignedTo, &rep.PatientPhone,
		&rep.Indication, &rep.Technique, &rep.Findings, &rep.Impression,
		&rep.Conclusion, &rep.Notes, &rep.Procedure, &rep.ScheduledAt,
		&rep.ReportFile, &rep.Status, &rep.PaymentStatus,
		&rep.CreatedAt, &rep.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	return &rep, err
}

func (r *reportRepoPG) Create(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reports (id, case_number, case_id, patient_id,
			department_id, created_by, assigned_to, patient_phone, indication,
			technique, findings, impression, conclusion, notes, procedure,
			scheduled_at, report_file, status, payment_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		rep.ID, rep.CaseNumber, rep.CaseID, rep.PatientID,
		rep.DepartmentID, rep.CreatedBy, rep.AssignedTo, rep.PatientPhone,
		rep.Indication, rep.Technique, rep.Findings, rep.Impression,
		rep.Conclusion, rep.Notes, rep.Procedure, rep.ScheduledAt,
		rep.ReportFile, rep.Status, rep.PaymentStatus)
	return err
}

func (r *reportRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE id = $1`, id))
}

func (r *reportRepoPG) GetByCaseNumber(ctx context.Context, caseNumber string) (*Report, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE case_number = $1`, caseNumber))
}

func (r *reportRepoPG) Update(ctx context.Context, rep *Report) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE reports SET assigned_to=$2, indication=$3, technique=$4,
			findings=$5, impression=$6, conclusion=$7, notes=$8, procedure=$9,
			scheduled_at=$10, updated_at=NOW()
		WHERE id = $1`,
		rep.ID, rep.AssignedTo, rep.Indication, rep.Technique,
		rep.Findings, rep.Impression, rep.Conclusion, rep.Notes, rep.Procedure,
		rep.ScheduledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *reportRepoPG) SetStatus(ctx context.Context, id uuid.UUID, status ReportStatus) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE reports SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

// SetFile writes the file descriptor and the resulting status in one
// statement so a report can never carry a file while still pending.
func (r *reportRepoPG) SetFile(ctx context.Context, id uuid.UUID, file *ReportFile, status ReportStatus) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE reports SET report_file=$2, status=$3, updated_at=NOW() WHERE id = $1`,
		id, file, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *reportRepoPG) SetPaymentStatus(ctx context.Context, reportID uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE reports SET payment_status=$2, updated_at=NOW() WHERE id = $1`, reportID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *reportRepoPG) List(ctx context.Context, f ReportFilter, limit, offset int) ([]*Report, int, error) {
	where := []string{"TRUE"}
	args := []interface{}{}
	idx := 1

	if f.PatientID != nil {
		where = append(where, fmt.Sprintf("patient_id = $%d", idx))
		args = append(args, *f.PatientID)
		idx++
	}
	if f.DepartmentID != nil {
		where = append(where, fmt.Sprintf("department_id = $%d", idx))
		args = append(args, *f.DepartmentID)
		idx++
	}
	if f.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", idx))
		args = append(args, f.Status)
		idx++
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM reports WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM reports WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			reportCols, cond, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rep)
	}
	return items, total, rows.Err()
}

func (r *reportRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	return r.List(ctx, ReportFilter{PatientID: &patientID}, limit, offset)
}

func (r *reportRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}
