package casualty

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

const triageCols = `id, visit_id, complaint, notes, action, doctor_id, created_by, created_at`

func scanTriage(row pgx.Row) (*TriageRecord, error) {
	var rec TriageRecord
	err := row.Scan(&rec.ID, &rec.VisitID, &rec.Complaint, &rec.Notes,
		&rec.Action, &rec.DoctorID, &rec.CreatedBy, &rec.CreatedAt)
	return &rec, err
}

func (r *repoPG) Create(ctx context.Context, rec *TriageRecord) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO triage_records (id, visit_id, complaint, notes, action,
			doctor_id, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.VisitID, rec.Complaint, rec.Notes, rec.Action,
		rec.DoctorID, rec.CreatedBy)
	return err
}

func (r *repoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*TriageRecord, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+triageCols+` FROM triage_records WHERE visit_id = $1 ORDER BY created_at`,
		visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*TriageRecord
	for rows.Next() {
		rec, err := scanTriage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*TriageRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM triage_records`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+triageCols+` FROM triage_records ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*TriageRecord
	for rows.Next() {
		rec, err := scanTriage(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, rec)
	}
	return result, total, rows.Err()
}
