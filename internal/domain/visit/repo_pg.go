package visit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revivehealth/clinic/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const visitCols = `id, patient_id, status, assigned_role, doctor_id, vitals,
	lab_referral_details, version, created_at, updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.Status, &v.AssignedRole, &v.DoctorID,
		&v.Vitals, &v.LabReferralDetails, &v.Version, &v.CreatedAt, &v.UpdatedAt)
	return &v, err
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	v.Version = 1
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO visits (id, patient_id, status, assigned_role, doctor_id,
			vitals, lab_referral_details, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		v.ID, v.PatientID, v.Status, v.AssignedRole, v.DoctorID,
		v.Vitals, v.LabReferralDetails, v.Version)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM visits WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, v *Visit, expectedVersion int) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE visits SET status=$2, assigned_role=$3, doctor_id=$4, vitals=$5,
			lab_referral_details=$6, version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $7`,
		v.ID, v.Status, v.AssignedRole, v.DoctorID, v.Vitals,
		v.LabReferralDetails, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleVisit
	}
	v.Version = expectedVersion + 1
	return nil
}

func (r *repoPG) ListQueue(ctx context.Context, role Role, statuses []Status, limit, offset int) ([]*Visit, int, error) {
	where := `WHERE assigned_role = $1`
	args := []interface{}{role}
	if len(statuses) > 0 {
		where += fmt.Sprintf(` AND status = ANY($%d)`, len(args)+1)
		strs := make([]string, len(statuses))
		for i, s := range statuses {
			strs[i] = string(s)
		}
		args = append(args, strs)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visits `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+visitCols+` FROM visits `+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	return r.queryVisits(ctx, query, args, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Visit, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM visits WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + visitCols + ` FROM visits WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.queryVisits(ctx, query, []interface{}{patientID, limit, offset}, total)
}

func (r *repoPG) queryVisits(ctx context.Context, query string, args []interface{}, total int) ([]*Visit, int, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, v)
	}
	return result, total, rows.Err()
}
