package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eshaffer321/sitebuy-backend/internal/domain/matcher"
	"github.com/eshaffer321/sitebuy-backend/internal/domain/procurement"
)

// Storage provides SQLite database access for procurement records.
// It implements the Repository interface.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage opens (or creates) the SQLite database at dbPath and applies
// pending migrations.
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection serializes the sweep
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Storage{db: db, now: time.Now}, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func notFound(err error, what, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", what, id, err)
}

// ================================================================
// ORGANIZATION SETTINGS
// ================================================================

// GetTolerance returns the organization's tolerance override.
func (s *Storage) GetTolerance(ctx context.Context, organizationID string) (*matcher.Tolerance, error) {
	var tol matcher.Tolerance
	err := s.db.QueryRowContext(ctx, `
		SELECT price_percentage, quantity_percentage, tax_freight_cap, delivery_percentage
		FROM organization_settings WHERE organization_id = ?
	`, organizationID).Scan(&tol.PricePercentage, &tol.QuantityPercentage, &tol.TaxFreightCap, &tol.DeliveryPercentage)
	if err != nil {
		return nil, notFound(err, "organization settings", organizationID)
	}
	return &tol, nil
}

// SaveTolerance stores the organization's tolerance override.
func (s *Storage) SaveTolerance(ctx context.Context, organizationID string, tol matcher.Tolerance) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organization_settings
		(organization_id, price_percentage, quantity_percentage, tax_freight_cap, delivery_percentage, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(organization_id) DO UPDATE SET
			price_percentage = excluded.price_percentage,
			quantity_percentage = excluded.quantity_percentage,
			tax_freight_cap = excluded.tax_freight_cap,
			delivery_percentage = excluded.delivery_percentage,
			updated_at = excluded.updated_at
	`, organizationID, tol.PricePercentage, tol.QuantityPercentage, tol.TaxFreightCap, tol.DeliveryPercentage, s.now())
	if err != nil {
		return fmt.Errorf("save tolerance for %s: %w", organizationID, err)
	}
	return nil
}

// ================================================================
// PURCHASE ORDERS
// ================================================================

// SavePurchaseOrder inserts or replaces a purchase order and its lines.
func (s *Storage) SavePurchaseOrder(ctx context.Context, po *procurement.PurchaseOrder) error {
	if po.CreatedAt.IsZero() {
		po.CreatedAt = s.now()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_orders
			(id, organization_id, project_id, vendor_id, number, status,
			 subtotal, tax_amount, freight_amount, total_amount, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				organization_id = excluded.organization_id,
				project_id = excluded.project_id,
				vendor_id = excluded.vendor_id,
				number = excluded.number,
				status = excluded.status,
				subtotal = excluded.subtotal,
				tax_amount = excluded.tax_amount,
				freight_amount = excluded.freight_amount,
				total_amount = excluded.total_amount,
				updated_at = excluded.updated_at
		`, po.ID, po.OrganizationID, po.ProjectID, po.VendorID, po.Number, po.Status,
			po.Subtotal, po.TaxAmount, po.FreightAmount, po.TotalAmount, po.CreatedAt, s.now())
		if err != nil {
			return fmt.Errorf("save purchase order %s: %w", po.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM purchase_order_lines WHERE purchase_order_id = ?`, po.ID); err != nil {
			return fmt.Errorf("clear lines for %s: %w", po.ID, err)
		}
		for i, line := range po.Lines {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO purchase_order_lines
				(id, purchase_order_id, position, sku, description, quantity, unit,
				 unit_price, line_total, material_id, cost_code)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, line.ID, po.ID, i, line.SKU, line.Description, line.Quantity, line.Unit,
				line.UnitPrice, line.LineTotal, line.MaterialID, line.CostCode)
			if err != nil {
				return fmt.Errorf("save line %s of %s: %w", line.ID, po.ID, err)
			}
		}
		return nil
	})
}

const purchaseOrderColumns = `
	id, organization_id, project_id, vendor_id, number, status,
	subtotal, tax_amount, freight_amount, total_amount, created_at`

func scanPurchaseOrder(row rowScanner) (*procurement.PurchaseOrder, error) {
	po := &procurement.PurchaseOrder{}
	err := row.Scan(&po.ID, &po.OrganizationID, &po.ProjectID, &po.VendorID, &po.Number, &po.Status,
		&po.Subtotal, &po.TaxAmount, &po.FreightAmount, &po.TotalAmount, &po.CreatedAt)
	if err != nil {
		return nil, err
	}
	return po, nil
}

func (s *Storage) loadLines(ctx context.Context, po *procurement.PurchaseOrder) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, description, quantity, unit, unit_price, line_total, material_id, cost_code
		FROM purchase_order_lines WHERE purchase_order_id = ? ORDER BY position
	`, po.ID)
	if err != nil {
		return fmt.Errorf("query lines for %s: %w", po.ID, err)
	}
	defer func() { _ = rows.Close() }()

	po.Lines = nil
	for rows.Next() {
		var l procurement.PurchaseOrderLine
		if err := rows.Scan(&l.ID, &l.SKU, &l.Description, &l.Quantity, &l.Unit,
			&l.UnitPrice, &l.LineTotal, &l.MaterialID, &l.CostCode); err != nil {
			return fmt.Errorf("scan line for %s: %w", po.ID, err)
		}
		po.Lines = append(po.Lines, l)
	}
	return rows.Err()
}

// GetPurchaseOrder retrieves a purchase order with its lines.
func (s *Storage) GetPurchaseOrder(ctx context.Context, id string) (*procurement.PurchaseOrder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE id = ?`, id)
	po, err := scanPurchaseOrder(row)
	if err != nil {
		return nil, notFound(err, "purchase order", id)
	}
	if err := s.loadLines(ctx, po); err != nil {
		return nil, err
	}
	return po, nil
}

// ListPurchaseOrdersByProject returns the project's purchase orders with lines.
func (s *Storage) ListPurchaseOrdersByProject(ctx context.Context, projectID string) ([]procurement.PurchaseOrder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+purchaseOrderColumns+` FROM purchase_orders WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list purchase orders for %s: %w", projectID, err)
	}

	var orders []procurement.PurchaseOrder
	for rows.Next() {
		po, err := scanPurchaseOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan purchase order: %w", err)
		}
		orders = append(orders, *po)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	// Lines are loaded after the cursor closes; the pool has one connection
	for i := range orders {
		if err := s.loadLines(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// ================================================================
// DELIVERIES
// ================================================================

// SaveDelivery inserts or replaces a delivery.
func (s *Storage) SaveDelivery(ctx context.Context, d *procurement.Delivery) error {
	linesJSON, err := toJSON(d.Lines)
	if err != nil {
		return fmt.Errorf("encode delivery lines: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, purchase_order_id, status, received_at, lines_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			purchase_order_id = excluded.purchase_order_id,
			status = excluded.status,
			received_at = excluded.received_at,
			lines_json = excluded.lines_json
	`, d.ID, d.PurchaseOrderID, d.Status, nullTime(&d.ReceivedAt), linesJSON, s.now())
	if err != nil {
		return fmt.Errorf("save delivery %s: %w", d.ID, err)
	}
	return nil
}

func (s *Storage) queryDeliveries(ctx context.Context, query string, arg string) ([]procurement.Delivery, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []procurement.Delivery
	for rows.Next() {
		var (
			d          procurement.Delivery
			receivedAt sql.NullTime
			linesJSON  string
		)
		if err := rows.Scan(&d.ID, &d.PurchaseOrderID, &d.Status, &receivedAt, &linesJSON); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		if receivedAt.Valid {
			d.ReceivedAt = receivedAt.Time
		}
		if err := fromJSON(linesJSON, &d.Lines); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ListDeliveriesByPurchaseOrder returns every delivery against a PO.
func (s *Storage) ListDeliveriesByPurchaseOrder(ctx context.Context, purchaseOrderID string) ([]procurement.Delivery, error) {
	return s.queryDeliveries(ctx, `
		SELECT id, purchase_order_id, status, received_at, lines_json
		FROM deliveries WHERE purchase_order_id = ? ORDER BY created_at, id
	`, purchaseOrderID)
}

// ListDeliveriesByProject returns deliveries against the project's POs.
func (s *Storage) ListDeliveriesByProject(ctx context.Context, projectID string) ([]procurement.Delivery, error) {
	return s.queryDeliveries(ctx, `
		SELECT d.id, d.purchase_order_id, d.status, d.received_at, d.lines_json
		FROM deliveries d JOIN purchase_orders po ON po.id = d.purchase_order_id
		WHERE po.project_id = ? ORDER BY d.created_at, d.id
	`, projectID)
}

// ================================================================
// INVOICES
// ================================================================

// SaveInvoice inserts or replaces an invoice, including its match results.
func (s *Storage) SaveInvoice(ctx context.Context, inv *procurement.Invoice) error {
	linesJSON, err := toJSON(inv.Lines)
	if err != nil {
		return fmt.Errorf("encode invoice lines: %w", err)
	}
	exceptions := inv.Exceptions
	if exceptions == nil {
		exceptions = []procurement.Exception{}
	}
	exceptionsJSON, err := toJSON(exceptions)
	if err != nil {
		return fmt.Errorf("encode exceptions: %w", err)
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO invoices
		(id, organization_id, project_id, vendor_id, number, uploaded_by, status,
		 purchase_order_id, delivery_id, subtotal, tax_amount, freight_amount, total_amount,
		 lines_json, match_status, match_variance, exceptions_json, matched_at, match_note,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			organization_id = excluded.organization_id,
			project_id = excluded.project_id,
			vendor_id = excluded.vendor_id,
			number = excluded.number,
			uploaded_by = excluded.uploaded_by,
			status = excluded.status,
			purchase_order_id = excluded.purchase_order_id,
			delivery_id = excluded.delivery_id,
			subtotal = excluded.subtotal,
			tax_amount = excluded.tax_amount,
			freight_amount = excluded.freight_amount,
			total_amount = excluded.total_amount,
			lines_json = excluded.lines_json,
			match_status = excluded.match_status,
			match_variance = excluded.match_variance,
			exceptions_json = excluded.exceptions_json,
			matched_at = excluded.matched_at,
			match_note = excluded.match_note,
			updated_at = excluded.updated_at
	`, inv.ID, inv.OrganizationID, inv.ProjectID, inv.VendorID, inv.Number, inv.UploadedBy, inv.Status,
		inv.PurchaseOrderID, inv.DeliveryID, inv.Subtotal, inv.TaxAmount, inv.FreightAmount, inv.TotalAmount,
		linesJSON, inv.MatchStatus, inv.MatchVariance, exceptionsJSON, nullTime(inv.MatchedAt), inv.MatchNote,
		inv.CreatedAt, s.now())
	if err != nil {
		return fmt.Errorf("save invoice %s: %w", inv.ID, err)
	}
	return nil
}

// SaveInvoiceIfStatus performs a compare-and-set on the invoice status.
func (s *Storage) SaveInvoiceIfStatus(ctx context.Context, inv *procurement.Invoice, expected procurement.InvoiceStatus) error {
	linesJSON, err := toJSON(inv.Lines)
	if err != nil {
		return fmt.Errorf("encode invoice lines: %w", err)
	}
	exceptions := inv.Exceptions
	if exceptions == nil {
		exceptions = []procurement.Exception{}
	}
	exceptionsJSON, err := toJSON(exceptions)
	if err != nil {
		return fmt.Errorf("encode exceptions: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices SET
			vendor_id = ?, number = ?, uploaded_by = ?, status = ?,
			purchase_order_id = ?, delivery_id = ?, subtotal = ?, tax_amount = ?,
			freight_amount = ?, total_amount = ?, lines_json = ?, match_status = ?,
			match_variance = ?, exceptions_json = ?, matched_at = ?, match_note = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`, inv.VendorID, inv.Number, inv.UploadedBy, inv.Status,
		inv.PurchaseOrderID, inv.DeliveryID, inv.Subtotal, inv.TaxAmount,
		inv.FreightAmount, inv.TotalAmount, linesJSON, inv.MatchStatus,
		inv.MatchVariance, exceptionsJSON, nullTime(inv.MatchedAt), inv.MatchNote,
		s.now(), inv.ID, expected)
	if err != nil {
		return fmt.Errorf("save invoice %s: %w", inv.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save invoice %s: %w", inv.ID, err)
	}
	if n == 1 {
		return nil
	}

	var current procurement.InvoiceStatus
	err = s.db.QueryRowContext(ctx, `SELECT status FROM invoices WHERE id = ?`, inv.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("invoice %s: %w", inv.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("load invoice %s status: %w", inv.ID, err)
	}
	return fmt.Errorf("%w: invoice %s is %s, expected %s",
		procurement.ErrInvalidTransition, inv.ID, current, expected)
}

const invoiceColumns = `
	id, organization_id, project_id, vendor_id, number, uploaded_by, status,
	purchase_order_id, delivery_id, subtotal, tax_amount, freight_amount, total_amount,
	lines_json, match_status, match_variance, exceptions_json, matched_at, match_note, created_at`

func scanInvoice(row rowScanner) (*procurement.Invoice, error) {
	var (
		inv            procurement.Invoice
		linesJSON      string
		exceptionsJSON string
		matchedAt      sql.NullTime
	)
	err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.ProjectID, &inv.VendorID, &inv.Number, &inv.UploadedBy, &inv.Status,
		&inv.PurchaseOrderID, &inv.DeliveryID, &inv.Subtotal, &inv.TaxAmount, &inv.FreightAmount, &inv.TotalAmount,
		&linesJSON, &inv.MatchStatus, &inv.MatchVariance, &exceptionsJSON, &matchedAt, &inv.MatchNote, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	inv.MatchedAt = timePtr(matchedAt)
	if err := fromJSON(linesJSON, &inv.Lines); err != nil {
		return nil, err
	}
	if err := fromJSON(exceptionsJSON, &inv.Exceptions); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Storage) queryInvoices(ctx context.Context, where string, arg any) ([]procurement.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE `+where+` ORDER BY created_at, id`, arg)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []procurement.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

// GetInvoice retrieves an invoice by ID.
func (s *Storage) GetInvoice(ctx context.Context, id string) (*procurement.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "invoice", id)
	}
	return inv, nil
}

// ListInvoicesByStatus returns invoices in the given lifecycle status.
func (s *Storage) ListInvoicesByStatus(ctx context.Context, status procurement.InvoiceStatus) ([]procurement.Invoice, error) {
	return s.queryInvoices(ctx, "status = ?", status)
}

// ListInvoicesByProject returns every invoice for a project.
func (s *Storage) ListInvoicesByProject(ctx context.Context, projectID string) ([]procurement.Invoice, error) {
	return s.queryInvoices(ctx, "project_id = ?", projectID)
}

// RecordInvoiceEvent appends an audit entry.
func (s *Storage) RecordInvoiceEvent(ctx context.Context, event *InvoiceEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO invoice_events (invoice_id, from_status, to_status, actor, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.InvoiceID, event.FromStatus, event.ToStatus, event.Actor, event.Note, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("record event for invoice %s: %w", event.InvoiceID, err)
	}
	event.ID, _ = result.LastInsertId()
	return nil
}

// ListInvoiceEvents returns the audit trail, oldest first.
func (s *Storage) ListInvoiceEvents(ctx context.Context, invoiceID string) ([]InvoiceEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, from_status, to_status, actor, note, created_at
		FROM invoice_events WHERE invoice_id = ? ORDER BY id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list events for invoice %s: %w", invoiceID, err)
	}
	defer func() { _ = rows.Close() }()

	var events []InvoiceEvent
	for rows.Next() {
		var e InvoiceEvent
		if err := rows.Scan(&e.ID, &e.InvoiceID, &e.FromStatus, &e.ToStatus, &e.Actor, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ================================================================
// ESTIMATES AND MATERIALS
// ================================================================

// SaveContractEstimate inserts or replaces a budget line.
func (s *Storage) SaveContractEstimate(ctx context.Context, est *procurement.ContractEstimate) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO contract_estimates (id, project_id, cost_code, description, awarded_value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			cost_code = excluded.cost_code,
			description = excluded.description,
			awarded_value = excluded.awarded_value
	`, est.ID, est.ProjectID, est.CostCode, est.Description, est.AwardedValue)
	if err != nil {
		return fmt.Errorf("save contract estimate %s: %w", est.ID, err)
	}
	return nil
}

// ListContractEstimates returns a project's budget lines.
func (s *Storage) ListContractEstimates(ctx context.Context, projectID string) ([]procurement.ContractEstimate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, cost_code, description, awarded_value
		FROM contract_estimates WHERE project_id = ? ORDER BY cost_code, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list contract estimates for %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []procurement.ContractEstimate
	for rows.Next() {
		var e procurement.ContractEstimate
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.CostCode, &e.Description, &e.AwardedValue); err != nil {
			return nil, fmt.Errorf("scan contract estimate: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveMaterial inserts or replaces a project material.
func (s *Storage) SaveMaterial(ctx context.Context, m *procurement.Material) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO materials (id, project_id, name, cost_code) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			name = excluded.name,
			cost_code = excluded.cost_code
	`, m.ID, m.ProjectID, m.Name, m.CostCode)
	if err != nil {
		return fmt.Errorf("save material %s: %w", m.ID, err)
	}
	return nil
}

// ListMaterials returns a project's materials.
func (s *Storage) ListMaterials(ctx context.Context, projectID string) ([]procurement.Material, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, name, cost_code FROM materials WHERE project_id = ? ORDER BY id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list materials for %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []procurement.Material
	for rows.Next() {
		var m procurement.Material
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Name, &m.CostCode); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
