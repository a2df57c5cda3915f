package domain

// UnmappedAction is the policy applied when an external category value
// has no exact match and no configured mapping.
type UnmappedAction string

const (
	UnmappedSkip        UnmappedAction = "skip"
	UnmappedUseOriginal UnmappedAction = "use_original"
	UnmappedUseDefault  UnmappedAction = "use_default"
)

// ValidUnmappedActions lists every accepted unmapped-value policy.
var ValidUnmappedActions = []UnmappedAction{UnmappedSkip, UnmappedUseOriginal, UnmappedUseDefault}

// IsValidUnmappedAction checks whether an unmapped-value policy is known.
func IsValidUnmappedAction(a UnmappedAction) bool {
	for _, v := range ValidUnmappedActions {
		if v == a {
			return true
		}
	}
	return false
}

// TypeMapping translates one external category value to a canonical
// picklist value.
type TypeMapping struct {
	ExternalValue  string `json:"external_value"`
	CanonicalValue string `json:"canonical_value"`
	AutoCreate     bool   `json:"auto_create"`
}

// CategoryConfig holds the mapping rules for one picklist category
// (update_type, activity_type, ...).
type CategoryConfig struct {
	Mappings       []TypeMapping  `json:"mappings"`
	AutoCreate     bool           `json:"auto_create"`
	UnmappedAction UnmappedAction `json:"unmapped_action"`
	DefaultValue   string         `json:"default_value,omitempty"`
}

// MappingConfig is a named, reusable per-organization mapping set.
type MappingConfig struct {
	Name         string                    `json:"name"`
	SourceSystem string                    `json:"source_system"`
	Categories   map[string]CategoryConfig `json:"categories"`
}

// Category returns the config for a category, falling back to a
// pass-through config (use_original, no auto-create) when the category
// is not configured.
func (c *MappingConfig) Category(name string) CategoryConfig {
	if c != nil {
		if cc, ok := c.Categories[name]; ok {
			return cc
		}
	}
	return CategoryConfig{UnmappedAction: UnmappedUseOriginal}
}

// MatchType records how a mapping resolution was satisfied.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchMapped   MatchType = "mapped"
	MatchCreated  MatchType = "created"
	MatchDefault  MatchType = "default"
	MatchOriginal MatchType = "original"
)

// MappingResult is the outcome of resolving one external category value.
type MappingResult struct {
	Value      string    `json:"value"`
	WasCreated bool      `json:"was_created"`
	MatchType  MatchType `json:"match_type"`
}

// AppliedMapping records one mapping resolution for dry-run display.
type AppliedMapping struct {
	Category      string    `json:"category"`
	ExternalValue string    `json:"external_value"`
	Value         string    `json:"value"`
	MatchType     MatchType `json:"match_type"`
	WasCreated    bool      `json:"was_created"`
}
