package clinicalnote

import (
	"context"

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

const noteCols = `id, visit_id, doctor_id, symptoms, diagnosis, notes,
	prescription, lab_tests, next_step, created_at`

func scanNote(row pgx.Row) (*ClinicalNote, error) {
	var n ClinicalNote
	err := row.Scan(&n.ID, &n.VisitID, &n.DoctorID, &n.Symptoms, &n.Diagnosis,
		&n.Notes, &n.Prescription, &n.LabTests, &n.NextStep, &n.CreatedAt)
	return &n, err
}

func (r *repoPG) Create(ctx context.Context, n *ClinicalNote) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO clinical_notes (id, visit_id, doctor_id, symptoms, diagnosis,
			notes, prescription, lab_tests, next_step)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ID, n.VisitID, n.DoctorID, n.Symptoms, n.Diagnosis,
		n.Notes, n.Prescription, n.LabTests, n.NextStep)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClinicalNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx,
		`SELECT `+noteCols+` FROM clinical_notes WHERE id = $1`, id))
}

func (r *repoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*ClinicalNote, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+noteCols+` FROM clinical_notes WHERE visit_id = $1 ORDER BY created_at`,
		visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*ClinicalNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
