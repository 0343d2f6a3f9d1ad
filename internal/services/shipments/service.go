package shipments

import (
	"context"

	"github.com/eliseohh/shipbot/internal/models"
	"github.com/eliseohh/shipbot/internal/services/carriers"
	"github.com/eliseohh/shipbot/internal/store"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrExists is returned by AddShipment when the code is already tracked.
	ErrExists = errors.New("shipment already exists")
	// ErrUnknownCarrier is returned by AddShipment when no carrier has the given name.
	ErrUnknownCarrier = errors.New("unknown carrier")
)

type Repository interface {
	GetCarrierByName(ctx context.Context, name string) (*models.Carrier, error)
	InsertShipment(ctx context.Context, s models.Shipment) error
	ShipmentExists(ctx context.Context, code string) (bool, error)
	UpdateShipmentStatus(ctx context.Context, code string, delivered bool) (int64, error)
	GetShipmentView(ctx context.Context, code string) (*models.ShipmentView, error)
	ListShipmentsByStatus(ctx context.Context, delivered bool) ([]*models.ShipmentView, error)
}

// Service is the shipment registry.
type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) AddShipment(ctx context.Context, code, carrierName string) (*models.Shipment, error) {
	if code == "" {
		return nil, errors.New("code is required")
	}

	exists, err := s.repo.ShipmentExists(ctx, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrExists
	}

	c, err := s.repo.GetCarrierByName(ctx, carriers.NormalizeName(carrierName))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownCarrier
	}
	if err != nil {
		return nil, err
	}

	sh := models.Shipment{
		ID:        uuid.NewString(),
		Code:      code,
		CarrierID: c.ID,
	}
	if err := s.repo.InsertShipment(ctx, sh); err != nil {
		// Lost a race with a concurrent add of the same code.
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrExists
		}
		return nil, err
	}
	return &sh, nil
}

// SetStatus reports how many shipments were updated. Zero means the code is
// unknown; the caller decides how to surface that.
func (s *Service) SetStatus(ctx context.Context, code string, delivered bool) (int64, error) {
	return s.repo.UpdateShipmentStatus(ctx, code, delivered)
}

// GetStatusAndURL returns the shipment with its resolved tracking URL, or an
// error wrapping store.ErrNotFound.
func (s *Service) GetStatusAndURL(ctx context.Context, code string) (*models.ShipmentView, error) {
	v, err := s.repo.GetShipmentView(ctx, code)
	if err != nil {
		return nil, err
	}
	v.TrackingURL = carriers.ResolveTemplate(v.Carrier.URLTemplate, v.Code)
	return v, nil
}

// ListOngoing returns the not-delivered shipments in storage order.
func (s *Service) ListOngoing(ctx context.Context) ([]*models.ShipmentView, error) {
	return s.repo.ListShipmentsByStatus(ctx, false)
}
