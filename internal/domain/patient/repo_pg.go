package patient

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, patient_id, name, phone, email, gender, age, address,
	case_description, case_type, gov_id_type, gov_id_number, gov_id_file_url,
	selected_tests, attachments, status, payment_status,
	department_assigned_to, assigned_department, department_assigned_by,
	department_assigned_at, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientID, &p.Name, &p.Phone, &p.Email, &p.Gender,
		&p.Age, &p.Address, &p.CaseDescription, &p.CaseType, &p.GovIDType,
		&p.GovIDNumber, &p.GovIDFileURL, &p.SelectedTests, &p.Attachments,
		&p.Status, &p.PaymentStatus, &p.DepartmentAssignedTo,
		&p.AssignedDepartment, &p.DepartmentAssignedBy, &p.DepartmentAssignedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, patient_id, name, phone, email, gender, age,
			address, case_description, case_type, gov_id_type, gov_id_number,
			gov_id_file_url, selected_tests, attachments, status, payment_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		p.ID, p.PatientID, p.Name, p.Phone, p.Email, p.Gender, p.Age,
		p.Address, p.CaseDescription, p.CaseType, p.GovIDType, p.GovIDNumber,
		p.GovIDFileURL, p.SelectedTests, p.Attachments, p.Status, p.PaymentStatus)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE patient_id = $1`, patientID))
}

func (r *repoPG) FindByPhone(ctx context.Context, phone string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE phone = $1 ORDER BY created_at DESC LIMIT 1`, phone))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$2, phone=$3, email=$4, gender=$5, age=$6,
			address=$7, case_description=$8, case_type=$9, gov_id_type=$10,
			gov_id_number=$11, gov_id_file_url=$12, selected_tests=$13,
			attachments=$14, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Phone, p.Email, p.Gender, p.Age,
		p.Address, p.CaseDescription, p.CaseType, p.GovIDType,
		p.GovIDNumber, p.GovIDFileURL, p.SelectedTests, p.Attachments)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetPayment(ctx context.Context, id uuid.UUID, payment PaymentStatus, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET payment_status=$2, status=$3, updated_at=NOW() WHERE id = $1`,
		id, payment, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAssignment writes the assignment triple and the sent_to_department
// status in a single statement so the fields can never drift apart.
func (r *repoPG) SetAssignment(ctx context.Context, id uuid.UUID, a Assignment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET department_assigned_to=$2, assigned_department=$3,
			department_assigned_by=$4, department_assigned_at=$5,
			status=$6, updated_at=NOW()
		WHERE id = $1`,
		id, a.DepartmentID, strings.ToLower(a.DepartmentName),
		a.AssignedBy, a.AssignedAt, StatusSentToDepartment)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshAssignedDepartmentName re-syncs the denormalized lowercase
// department name on every patient assigned to the department.
func (r *repoPG) RefreshAssignedDepartmentName(ctx context.Context, departmentID uuid.UUID, name string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET assigned_department=$2, updated_at=NOW() WHERE department_assigned_to = $1`,
		departmentID, strings.ToLower(name))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Patient, int, error) {
	where := []string{"TRUE"}
	args := []interface{}{}
	idx := 1

	add := func(clause string, value interface{}) {
		where = append(where, fmt.Sprintf(clause, idx))
		args = append(args, value)
		idx++
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.PaymentStatus != "" {
		add("payment_status = $%d", f.PaymentStatus)
	}
	if f.DepartmentID != nil {
		add("department_assigned_to = $%d", *f.DepartmentID)
	}
	if f.Name != "" {
		add("name ILIKE $%d", "%"+f.Name+"%")
	}
	if f.CreatedAfter != "" {
		add("created_at >= $%d", f.CreatedAfter)
	}
	if f.CreatedBefore != "" {
		add("created_at < $%d", f.CreatedBefore)
	}

	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patients WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM patients WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
			patientCols, cond, idx, idx+1), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
