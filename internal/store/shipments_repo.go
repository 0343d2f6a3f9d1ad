package store

import (
	"context"

	"github.com/eliseohh/shipbot/internal/models"
	"github.com/pkg/errors"
)

const shipmentViewColumns = `
  s.ID, s.CODE, s.PROVIDER_ID, s.STATUS,
  sp.NAME, IFNULL(sp.URL, '')
FROM shipments s
JOIN ship_providers sp ON s.PROVIDER_ID = sp.ID`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipmentView(r rowScanner) (*models.ShipmentView, error) {
	var v models.ShipmentView
	var status int
	if err := r.Scan(
		&v.ID, &v.Code, &v.CarrierID, &status,
		&v.Carrier.Name, &v.Carrier.URLTemplate,
	); err != nil {
		return nil, err
	}
	v.Delivered = status == models.StatusDelivered
	v.Carrier.ID = v.CarrierID
	return &v, nil
}

func (d *DB) InsertShipment(ctx context.Context, s models.Shipment) error {
	status := models.StatusNotDelivered
	if s.Delivered {
		status = models.StatusDelivered
	}
	_, err := d.ExecContext(ctx,
		`INSERT INTO shipments (ID, CODE, PROVIDER_ID, STATUS) VALUES (?, ?, ?, ?)`,
		s.ID, s.Code, s.CarrierID, status)
	if err != nil {
		d.log.Warn("insert shipment", "code", s.Code, "error", err.Error())
		return classify(err, "insert shipment")
	}
	return nil
}

func (d *DB) ShipmentExists(ctx context.Context, code string) (bool, error) {
	var count int
	if err := d.QueryRowContext(ctx, `SELECT COUNT(*) FROM shipments WHERE CODE = ?`, code).Scan(&count); err != nil {
		return false, classify(err, "count shipments")
	}
	return count > 0, nil
}

// UpdateShipmentStatus returns the number of rows touched; zero means no
// shipment has that code.
func (d *DB) UpdateShipmentStatus(ctx context.Context, code string, delivered bool) (int64, error) {
	status := models.StatusNotDelivered
	if delivered {
		status = models.StatusDelivered
	}
	res, err := d.ExecContext(ctx, `UPDATE shipments SET STATUS = ? WHERE CODE = ?`, status, code)
	if err != nil {
		return 0, classify(err, "update shipment status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

func (d *DB) GetShipmentView(ctx context.Context, code string) (*models.ShipmentView, error) {
	row := d.QueryRowContext(ctx, `SELECT`+shipmentViewColumns+` WHERE s.CODE = ?`, code)
	v, err := scanShipmentView(row)
	if err != nil {
		return nil, classify(err, "select shipment")
	}
	return v, nil
}

func (d *DB) ListShipmentsByStatus(ctx context.Context, delivered bool) ([]*models.ShipmentView, error) {
	status := models.StatusNotDelivered
	if delivered {
		status = models.StatusDelivered
	}
	rows, err := d.QueryContext(ctx, `SELECT`+shipmentViewColumns+` WHERE s.STATUS = ? ORDER BY s.rowid`, status)
	if err != nil {
		return nil, classify(err, "select shipments")
	}
	defer rows.Close()

	out := make([]*models.ShipmentView, 0)
	for rows.Next() {
		v, err := scanShipmentView(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan shipment")
		}
		out = append(out, v)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
