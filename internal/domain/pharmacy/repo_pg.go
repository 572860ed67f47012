package pharmacy

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

type supplierRepoPG struct{ pool *pgxpool.Pool }

func NewSupplierRepoPG(pool *pgxpool.Pool) SupplierRepository { return &supplierRepoPG{pool: pool} }

const supplierCols = `id, name, phone, email, address, gstin, created_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Phone, &s.Email, &s.Address, &s.GSTIN, &s.CreatedAt)
	return &s, err
}

func (r *supplierRepoPG) Create(ctx context.Context, s *Supplier) error {
	s.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO suppliers (id, name, phone, email, address, gstin)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		s.ID, s.Name, s.Phone, s.Email, s.Address, s.GSTIN)
	return err
}

func (r *supplierRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	return scanSupplier(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+supplierCols+` FROM suppliers WHERE id = $1`, id))
}

func (r *supplierRepoPG) List(ctx context.Context, limit, offset int) ([]*Supplier, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM suppliers`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+supplierCols+` FROM suppliers ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, s)
	}
	return result, total, rows.Err()
}

type stockRepoPG struct{ pool *pgxpool.Pool }

func NewStockRepoPG(pool *pgxpool.Pool) StockRepository { return &stockRepoPG{pool: pool} }

const stockCols = `id, name, batch, barcode, quantity, unit_price, gst_percent,
	hsn_code, expiry_date, supplier_id, created_at, updated_at`

func scanStock(row pgx.Row) (*StockItem, error) {
	var item StockItem
	err := row.Scan(&item.ID, &item.Name, &item.Batch, &item.Barcode, &item.Quantity,
		&item.UnitPrice, &item.GSTPercent, &item.HSNCode, &item.ExpiryDate,
		&item.SupplierID, &item.CreatedAt, &item.UpdatedAt)
	return &item, err
}

func (r *stockRepoPG) Create(ctx context.Context, item *StockItem) error {
	item.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO stock_items (id, name, batch, barcode, quantity, unit_price,
			gst_percent, hsn_code, expiry_date, supplier_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		item.ID, item.Name, item.Batch, item.Barcode, item.Quantity, item.UnitPrice,
		item.GSTPercent, item.HSNCode, item.ExpiryDate, item.SupplierID)
	return err
}

func (r *stockRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*StockItem, error) {
	return scanStock(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+stockCols+` FROM stock_items WHERE id = $1`, id))
}

func (r *stockRepoPG) FindBatch(ctx context.Context, name, batch string, expiry time.Time, supplierID uuid.UUID) (*StockItem, error) {
	return scanStock(conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+stockCols+` FROM stock_items
		WHERE LOWER(name) = LOWER($1) AND batch = $2 AND expiry_date = $3 AND supplier_id = $4`,
		name, batch, expiry, supplierID))
}

func (r *stockRepoPG) AddQuantity(ctx context.Context, id uuid.UUID, qty int) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE stock_items SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1`, id, qty)
	return err
}

func (r *stockRepoPG) Deduct(ctx context.Context, id uuid.UUID, qty int) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE stock_items SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *stockRepoPG) Search(ctx context.Context, name string, limit, offset int) ([]*StockItem, int, error) {
	pattern := "%" + name + "%"

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM stock_items WHERE name ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+stockCols+` FROM stock_items WHERE name ILIKE $1
		ORDER BY name, expiry_date LIMIT $2 OFFSET $3`,
		pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*StockItem
	for rows.Next() {
		item, err := scanStock(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, item)
	}
	return result, total, rows.Err()
}

func (r *stockRepoPG) NearestExpiry(ctx context.Context, barcode string, now time.Time) (*StockItem, error) {
	return scanStock(conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+stockCols+` FROM stock_items
		WHERE barcode = $1 AND quantity > 0 AND expiry_date >= $2
		ORDER BY expiry_date LIMIT 1`,
		barcode, now))
}

func (r *stockRepoPG) FindByName(ctx context.Context, name string) (*StockItem, error) {
	return scanStock(conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+stockCols+` FROM stock_items
		WHERE LOWER(name) = LOWER($1) AND quantity > 0
		ORDER BY expiry_date LIMIT 1`, name))
}

func (r *stockRepoPG) List(ctx context.Context, limit, offset int) ([]*StockItem, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM stock_items`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+stockCols+` FROM stock_items ORDER BY name, expiry_date LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*StockItem
	for rows.Next() {
		item, err := scanStock(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, item)
	}
	return result, total, rows.Err()
}

type purchaseRepoPG struct{ pool *pgxpool.Pool }

func NewPurchaseRepoPG(pool *pgxpool.Pool) PurchaseRepository { return &purchaseRepoPG{pool: pool} }

func (r *purchaseRepoPG) Create(ctx context.Context, inv *PurchaseInvoice) error {
	inv.ID = uuid.New()
	q := conn(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO purchase_invoices (id, supplier_id, invoice_number, purchase_date, total)
		VALUES ($1,$2,$3,$4,$5)`,
		inv.ID, inv.SupplierID, inv.InvoiceNumber, inv.PurchaseDate, inv.Total)
	if err != nil {
		return err
	}
	for _, item := range inv.Items {
		item.ID = uuid.New()
		item.PurchaseID = inv.ID
		_, err := q.Exec(ctx, `
			INSERT INTO purchase_items (id, purchase_id, name, batch, quantity,
				unit_cost, unit_price, gst_percent, hsn_code, barcode, expiry_date)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			item.ID, item.PurchaseID, item.Name, item.Batch, item.Quantity,
			item.UnitCost, item.UnitPrice, item.GSTPercent, item.HSNCode,
			item.Barcode, item.ExpiryDate)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *purchaseRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseInvoice, error) {
	q := conn(ctx, r.pool)
	var inv PurchaseInvoice
	err := q.QueryRow(ctx, `
		SELECT id, supplier_id, invoice_number, purchase_date, total, created_at
		FROM purchase_invoices WHERE id = $1`, id).
		Scan(&inv.ID, &inv.SupplierID, &inv.InvoiceNumber, &inv.PurchaseDate, &inv.Total, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, purchase_id, name, batch, quantity, unit_cost, unit_price,
			gst_percent, hsn_code, barcode, expiry_date
		FROM purchase_items WHERE purchase_id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.Name, &item.Batch,
			&item.Quantity, &item.UnitCost, &item.UnitPrice, &item.GSTPercent,
			&item.HSNCode, &item.Barcode, &item.ExpiryDate); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, &item)
	}
	return &inv, rows.Err()
}

func (r *purchaseRepoPG) List(ctx context.Context, limit, offset int) ([]*PurchaseInvoice, int, error) {
	q := conn(ctx, r.pool)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_invoices`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := q.Query(ctx, `
		SELECT id, supplier_id, invoice_number, purchase_date, total, created_at
		FROM purchase_invoices ORDER BY purchase_date DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []*PurchaseInvoice
	for rows.Next() {
		var inv PurchaseInvoice
		if err := rows.Scan(&inv.ID, &inv.SupplierID, &inv.InvoiceNumber,
			&inv.PurchaseDate, &inv.Total, &inv.CreatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, &inv)
	}
	return result, total, rows.Err()
}

type saleRepoPG struct{ pool *pgxpool.Pool }

func NewSaleRepoPG(pool *pgxpool.Pool) SaleRepository { return &saleRepoPG{pool: pool} }

func (r *saleRepoPG) Create(ctx context.Context, sale *Sale) error {
	sale.ID = uuid.New()
	q := conn(ctx, r.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO pharmacy_sales (id, visit_id, total)
		VALUES ($1,$2,$3)`,
		sale.ID, sale.VisitID, sale.Total)
	if err != nil {
		return err
	}
	for _, item := range sale.Items {
		item.ID = uuid.New()
		item.SaleID = sale.ID
		_, err := q.Exec(ctx, `
			INSERT INTO sale_items (id, sale_id, stock_item_id, name, batch,
				quantity, unit_price, amount)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			item.ID, item.SaleID, item.StockItemID, item.Name, item.Batch,
			item.Quantity, item.UnitPrice, item.Amount)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *saleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Sale, error) {
	q := conn(ctx, r.pool)
	var sale Sale
	err := q.QueryRow(ctx, `
		SELECT id, visit_id, total, created_at FROM pharmacy_sales WHERE id = $1`, id).
		Scan(&sale.ID, &sale.VisitID, &sale.Total, &sale.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepoPG) ListByVisit(ctx context.Context, visitID uuid.UUID) ([]*Sale, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, visit_id, total, created_at FROM pharmacy_sales
		WHERE visit_id = $1 ORDER BY created_at`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []*Sale
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(&sale.ID, &sale.VisitID, &sale.Total, &sale.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, &sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, sale := range sales {
		if err := r.loadItems(ctx, sale); err != nil {
			return nil, err
		}
	}
	return sales, nil
}

func (r *saleRepoPG) loadItems(ctx context.Context, sale *Sale) error {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, sale_id, stock_item_id, name, batch, quantity, unit_price, amount
		FROM sale_items WHERE sale_id = $1`, sale.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.StockItemID, &item.Name,
			&item.Batch, &item.Quantity, &item.UnitPrice, &item.Amount); err != nil {
			return err
		}
		sale.Items = append(sale.Items, &item)
	}
	return rows.Err()
}
