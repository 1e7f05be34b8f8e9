package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/astrialabs/astrochat/domain"
	"github.com/astrialabs/astrochat/internal/astro"
)

// ChartRequest is the input for a new chart calculation.
type ChartRequest struct {
	Name          string `json:"name"`
	ChartType     string `json:"chart_type,omitempty"`
	HouseSystem   string `json:"house_system,omitempty"`
	ZodiacSystem  string `json:"zodiac_system,omitempty"`
	BirthDate     string `json:"birth_date"`
	BirthTime     string `json:"birth_time"`
	BirthLocation string `json:"birth_location"`
}

// CreateChart computes and stores a chart for the owner. Birth fields left
// empty fall back to the owner's profile.
func (s *Service) CreateChart(ctx context.Context, ownerID string, req ChartRequest) (*domain.Chart, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.BirthDate == "" || req.BirthTime == "" || req.BirthLocation == "" {
		user, err := s.repo.GetUser(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if req.BirthDate == "" {
			req.BirthDate = user.BirthDate
		}
		if req.BirthTime == "" {
			req.BirthTime = user.BirthTime
		}
		if req.BirthLocation == "" {
			req.BirthLocation = user.BirthLocation
		}
	}
	if req.BirthDate == "" || req.BirthTime == "" || req.BirthLocation == "" {
		return nil, fmt.Errorf("birth_date, birth_time and birth_location are required")
	}

	lat, lon, err := astro.ParseLocation(req.BirthLocation)
	if err != nil {
		return nil, fmt.Errorf("invalid birth_location: %w", err)
	}
	result, err := astro.Compute(req.BirthDate, req.BirthTime, lat, lon)
	if err != nil {
		return nil, fmt.Errorf("failed to compute chart: %w", err)
	}
	positions, err := result.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to encode chart: %w", err)
	}

	chart := &domain.Chart{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		Name:          req.Name,
		ChartType:     chartTypeOrDefault(req.ChartType),
		HouseSystem:   houseSystemOrDefault(req.HouseSystem),
		ZodiacSystem:  zodiacSystemOrDefault(req.ZodiacSystem),
		BirthDate:     req.BirthDate,
		BirthTime:     req.BirthTime,
		BirthLocation: req.BirthLocation,
		Latitude:      lat,
		Longitude:     lon,
		Positions:     positions,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.repo.CreateChart(ctx, chart); err != nil {
		return nil, fmt.Errorf("failed to store chart: %w", err)
	}
	return chart, nil
}

// GetChart returns one of the owner's charts.
func (s *Service) GetChart(ctx context.Context, chartID, ownerID string) (*domain.Chart, error) {
	return s.repo.GetChart(ctx, chartID, ownerID)
}

// ListCharts returns the owner's charts.
func (s *Service) ListCharts(ctx context.Context, ownerID string) ([]domain.Chart, error) {
	return s.repo.ListCharts(ctx, ownerID)
}

// DeleteChart removes one of the owner's charts.
func (s *Service) DeleteChart(ctx context.Context, chartID, ownerID string) error {
	return s.repo.DeleteChart(ctx, chartID, ownerID)
}

func chartTypeOrDefault(v string) domain.ChartType {
	if v == "" {
		return domain.ChartTypeBirth
	}
	return domain.ChartType(v)
}

func houseSystemOrDefault(v string) domain.HouseSystem {
	if v == "" {
		return domain.HousePlacidus
	}
	return domain.HouseSystem(v)
}

func zodiacSystemOrDefault(v string) domain.ZodiacSystem {
	if v == "" {
		return domain.ZodiacTropical
	}
	return domain.ZodiacSystem(v)
}
