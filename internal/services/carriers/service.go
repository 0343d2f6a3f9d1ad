package carriers

import (
	"context"
	"strings"

	"github.com/eliseohh/shipbot/internal/models"
	"github.com/pkg/errors"
)

type Repository interface {
	InsertCarrier(ctx context.Context, name, urlTemplate string) (*models.Carrier, error)
	ListCarriers(ctx context.Context) ([]*models.Carrier, error)
	GetCarrier(ctx context.Context, id int64) (*models.Carrier, error)
}

// Service is the carrier registry. Carriers are append-only.
type Service struct {
	repo Repository
}

func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// AddCarrier stores a carrier under its upper-cased name.
func (s *Service) AddCarrier(ctx context.Context, name, urlTemplate string) (*models.Carrier, error) {
	name = NormalizeName(name)
	if name == "" {
		return nil, errors.New("carrier name is required")
	}
	if urlTemplate == "" {
		return nil, errors.New("carrier url is required")
	}
	return s.repo.InsertCarrier(ctx, name, urlTemplate)
}

func (s *Service) ListCarriers(ctx context.Context) ([]*models.Carrier, error) {
	return s.repo.ListCarriers(ctx)
}

func (s *Service) ResolveURL(ctx context.Context, carrierID int64, code string) (string, error) {
	c, err := s.repo.GetCarrier(ctx, carrierID)
	if err != nil {
		return "", err
	}
	return ResolveTemplate(c.URLTemplate, code), nil
}

// ResolveTemplate replaces every placeholder occurrence with code.
func ResolveTemplate(urlTemplate, code string) string {
	return strings.ReplaceAll(urlTemplate, models.CodePlaceholder, code)
}

func NormalizeName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
