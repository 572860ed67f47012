package lab

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

type chargeRepoPG struct{ pool *pgxpool.Pool }

func NewChargeRepoPG(pool *pgxpool.Pool) ChargeRepository { return &chargeRepoPG{pool: pool} }

func (r *chargeRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const chargeCols = `id, visit_id, test_name, amount, status, results,
	technician, reported_at, created_at, updated_at`

func scanCharge(row pgx.Row) (*Charge, error) {
	var ch Charge
	err := row.Scan(&ch.ID, &ch.VisitID, &ch.TestName, &ch.Amount, &ch.Status,
		&ch.Results, &ch.Technician, &ch.ReportedAt, &ch.CreatedAt, &ch.UpdatedAt)
	return &ch, err
}

func (r *chargeRepoPG) Create(ctx context.Context, ch *Charge) error {
	ch.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_charges (id, visit_id, test_name, amount, status, results)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		ch.ID, ch.VisitID, ch.TestName, ch.Amount, ch.Status, ch.Results)
	return err
}

func (r *chargeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Charge, error) {
	return scanCharge(r.conn(ctx).QueryRow(ctx,
		`SELECT `+chargeCols+` FROM lab_charges WHERE id = $1`, id))
}

func (r *chargeRepoPG) Update(ctx context.Context, ch *Charge) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_charges SET status=$2, results=$3, technician=$4,
			reported_at=$5, updated_at=NOW()
		WHERE id = $1`,
		ch.ID, ch.Status, ch.Results, ch.Technician, ch.ReportedAt)
	return err
}

func (r *chargeRepoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Charge, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+chargeCols+` FROM lab_charges WHERE visit_id = $1 ORDER BY created_at`,
		visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Charge
	for rows.Next() {
		ch, err := scanCharge(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, ch)
	}
	return result, rows.Err()
}

func (r *chargeRepoPG) ListByStatus(ctx context.Context, status ChargeStatus, limit, offset int) ([]*Charge, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM lab_charges WHERE status = $1`, status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+chargeCols+` FROM lab_charges WHERE status = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*Charge
	for rows.Next() {
		ch, err := scanCharge(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, ch)
	}
	return result, total, rows.Err()
}

type inventoryRepoPG struct{ pool *pgxpool.Pool }

func NewInventoryRepoPG(pool *pgxpool.Pool) InventoryRepository { return &inventoryRepoPG{pool: pool} }

func (r *inventoryRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const inventoryCols = `id, name, category, quantity, unit, reorder_level,
	expiry_date, created_at, updated_at`

func scanInventoryItem(row pgx.Row) (*InventoryItem, error) {
	var item InventoryItem
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.Quantity, &item.Unit,
		&item.ReorderLevel, &item.ExpiryDate, &item.CreatedAt, &item.UpdatedAt)
	return &item, err
}

func (r *inventoryRepoPG) Create(ctx context.Context, item *InventoryItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO lab_inventory (id, name, category, quantity, unit, reorder_level, expiry_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		item.ID, item.Name, item.Category, item.Quantity, item.Unit,
		item.ReorderLevel, item.ExpiryDate)
	return err
}

func (r *inventoryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error) {
	return scanInventoryItem(r.conn(ctx).QueryRow(ctx,
		`SELECT `+inventoryCols+` FROM lab_inventory WHERE id = $1`, id))
}

func (r *inventoryRepoPG) Update(ctx context.Context, item *InventoryItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE lab_inventory SET name=$2, category=$3, quantity=$4, unit=$5,
			reorder_level=$6, expiry_date=$7, updated_at=NOW()
		WHERE id = $1`,
		item.ID, item.Name, item.Category, item.Quantity, item.Unit,
		item.ReorderLevel, item.ExpiryDate)
	return err
}

func (r *inventoryRepoPG) List(ctx context.Context, limit, offset int) ([]*InventoryItem, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lab_inventory`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+inventoryCols+` FROM lab_inventory ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, item)
	}
	return result, total, rows.Err()
}

func (r *inventoryRepoPG) ListLowStock(ctx context.Context) ([]*InventoryItem, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+inventoryCols+` FROM lab_inventory WHERE quantity <= reorder_level ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*InventoryItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
