package billing

import (
	"context"
	"time"

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

const invoiceCols = `id, visit_id, patient_name, payment_status, subtotal,
	amount_due, version, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.VisitID, &inv.PatientName, &inv.PaymentStatus,
		&inv.Subtotal, &inv.AmountDue, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt)
	return &inv, err
}

func (r *repoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	inv.Version = 1
	q := r.conn(ctx)
	_, err := q.Exec(ctx, `
		INSERT INTO invoices (id, visit_id, patient_name, payment_status,
			subtotal, amount_due, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		inv.ID, inv.VisitID, inv.PatientName, inv.PaymentStatus,
		inv.Subtotal, inv.AmountDue, inv.Version)
	if err != nil {
		return err
	}
	return r.insertItems(ctx, inv)
}

func (r *repoPG) insertItems(ctx context.Context, inv *Invoice) error {
	q := r.conn(ctx)
	for _, item := range inv.Items {
		item.ID = uuid.New()
		item.InvoiceID = inv.ID
		_, err := q.Exec(ctx, `
			INSERT INTO invoice_line_items (id, invoice_id, description, dept,
				provenance, qty, unit_price, amount, batch, hsn_code,
				gst_percent, dosage, duration, needs_pricing, line_no)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			item.ID, item.InvoiceID, item.Description, item.Dept,
			item.Provenance, item.Qty, item.UnitPrice, item.Amount, item.Batch,
			item.HSNCode, item.GSTPercent, item.Dosage, item.Duration,
			item.NeedsPricing, item.Position)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repoPG) GetByVisit(ctx context.Context, visitID uuid.UUID) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE visit_id = $1`, visitID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repoPG) loadItems(ctx context.Context, inv *Invoice) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, invoice_id, description, dept, provenance, qty, unit_price,
			amount, batch, hsn_code, gst_percent, dosage, duration,
			needs_pricing, line_no
		FROM invoice_line_items WHERE invoice_id = $1 ORDER BY line_no`, inv.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description,
			&item.Dept, &item.Provenance, &item.Qty, &item.UnitPrice,
			&item.Amount, &item.Batch, &item.HSNCode, &item.GSTPercent,
			&item.Dosage, &item.Duration, &item.NeedsPricing, &item.Position); err != nil {
			return err
		}
		inv.Items = append(inv.Items, &item)
	}
	return rows.Err()
}

func (r *repoPG) Update(ctx context.Context, inv *Invoice, expectedVersion int) error {
	q := r.conn(ctx)
	tag, err := q.Exec(ctx, `
		UPDATE invoices SET patient_name=$2, payment_status=$3, subtotal=$4,
			amount_due=$5, version=version+1, updated_at=NOW()
		WHERE id = $1 AND version = $6`,
		inv.ID, inv.PatientName, inv.PaymentStatus, inv.Subtotal,
		inv.AmountDue, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleInvoice
	}
	inv.Version = expectedVersion + 1

	if _, err := q.Exec(ctx, `DELETE FROM invoice_line_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return err
	}
	return r.insertItems(ctx, inv)
}

func (r *repoPG) List(ctx context.Context, status PaymentStatus, limit, offset int) ([]*Invoice, int, error) {
	q := r.conn(ctx)

	var total int
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE payment_status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx,
		`SELECT `+invoiceCols+` FROM invoices WHERE payment_status = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for _, inv := range result {
		if err := r.loadItems(ctx, inv); err != nil {
			return nil, 0, err
		}
	}
	return result, total, nil
}

func (r *repoPG) ListPendingVisits(ctx context.Context, limit, offset int) ([]*PendingVisit, int, error) {
	q := r.conn(ctx)

	const where = `FROM visits v
		JOIN patients p ON p.id = v.patient_id
		LEFT JOIN invoices i ON i.visit_id = v.id
		WHERE v.status = 'CLOSED' AND i.id IS NULL`

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) `+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	// p.full_name matches the patients table column (see patient.repoPG).
	rows, err := q.Query(ctx, `
		SELECT v.id, v.patient_id, p.full_name, v.updated_at `+where+`
		ORDER BY v.updated_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*PendingVisit
	for rows.Next() {
		var pv PendingVisit
		if err := rows.Scan(&pv.VisitID, &pv.PatientID, &pv.PatientName, &pv.ClosedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, &pv)
	}
	return result, total, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context, dayStart, dayEnd time.Time) (*Stats, error) {
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			COALESCE(SUM(amount_due) FILTER (WHERE payment_status = 'PAID'
				AND updated_at >= $1 AND updated_at < $2), 0),
			COALESCE(SUM(amount_due) FILTER (WHERE payment_status = 'PENDING'), 0),
			COUNT(*) FILTER (WHERE created_at >= $1 AND created_at < $2)
		FROM invoices`, dayStart, dayEnd).
		Scan(&s.RevenueToday, &s.PendingAmount, &s.InvoicesToday)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
