package store

import (
	"context"

	"github.com/eliseohh/shipbot/internal/models"
	"github.com/pkg/errors"
)

func (d *DB) InsertCarrier(ctx context.Context, name, urlTemplate string) (*models.Carrier, error) {
	res, err := d.ExecContext(ctx, `INSERT INTO ship_providers (NAME, URL) VALUES (?, ?)`, name, urlTemplate)
	if err != nil {
		d.log.Warn("insert carrier", "name", name, "error", err.Error())
		return nil, classify(err, "insert carrier")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, errors.Wrap(err, "carrier id")
	}
	return &models.Carrier{ID: id, Name: name, URLTemplate: urlTemplate}, nil
}

func (d *DB) ListCarriers(ctx context.Context) ([]*models.Carrier, error) {
	rows, err := d.QueryContext(ctx, `SELECT ID, NAME, IFNULL(URL, '') FROM ship_providers ORDER BY ID`)
	if err != nil {
		return nil, classify(err, "select carriers")
	}
	defer rows.Close()

	out := make([]*models.Carrier, 0)
	for rows.Next() {
		var c models.Carrier
		if err := rows.Scan(&c.ID, &c.Name, &c.URLTemplate); err != nil {
			return nil, errors.Wrap(err, "scan carrier")
		}
		out = append(out, &c)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (d *DB) GetCarrier(ctx context.Context, id int64) (*models.Carrier, error) {
	var c models.Carrier
	err := d.QueryRowContext(ctx, `SELECT ID, NAME, IFNULL(URL, '') FROM ship_providers WHERE ID = ?`, id).
		Scan(&c.ID, &c.Name, &c.URLTemplate)
	if err != nil {
		return nil, classify(err, "select carrier")
	}
	return &c, nil
}

func (d *DB) GetCarrierByName(ctx context.Context, name string) (*models.Carrier, error) {
	var c models.Carrier
	err := d.QueryRowContext(ctx, `SELECT ID, NAME, IFNULL(URL, '') FROM ship_providers WHERE NAME = ?`, name).
		Scan(&c.ID, &c.Name, &c.URLTemplate)
	if err != nil {
		return nil, classify(err, "select carrier")
	}
	return &c, nil
}
