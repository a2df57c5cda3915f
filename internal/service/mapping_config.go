package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
	"github.com/emerginginv/trace-aid-sub011/internal/repository"
)

// InvalidConfigError marks a mapping config rejected before storage.
type InvalidConfigError struct {
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return "invalid mapping config: " + e.Reason
}

// MappingConfigService manages the reusable, named mapping configs
// stored per organization and source system.
type MappingConfigService struct {
	store repository.MappingStore
}

// NewMappingConfigService creates a new MappingConfigService.
func NewMappingConfigService(store repository.MappingStore) *MappingConfigService {
	return &MappingConfigService{store: store}
}

// GetConfig retrieves the stored config for a source system, or
// (nil, nil) when none exists.
func (s *MappingConfigService) GetConfig(ctx context.Context, orgID uuid.UUID, sourceSystem string) (*domain.MappingConfig, error) {
	return s.store.GetConfig(ctx, orgID, sourceSystem)
}

// SaveConfig validates and stores a mapping config.
func (s *MappingConfigService) SaveConfig(ctx context.Context, orgID uuid.UUID, config *domain.MappingConfig) error {
	if config.SourceSystem == "" {
		return &InvalidConfigError{Reason: "source_system is required"}
	}
	for category, cc := range config.Categories {
		if cc.UnmappedAction == "" {
			continue
		}
		if !domain.IsValidUnmappedAction(cc.UnmappedAction) {
			return &InvalidConfigError{Reason: fmt.Sprintf("category %s: unknown unmapped action %q", category, cc.UnmappedAction)}
		}
		if cc.UnmappedAction == domain.UnmappedUseDefault && cc.DefaultValue == "" {
			return &InvalidConfigError{Reason: fmt.Sprintf("category %s: use_default requires a default value", category)}
		}
	}
	return s.store.SaveConfig(ctx, orgID, config)
}
