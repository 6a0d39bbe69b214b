// Package table builds the six downstream database tables from raw
// fetch output and stages their reconciled deltas for upload.
package table

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Downstream table names.
const (
	Category               = "category"
	Platform               = "platform"
	CurrentPriceByPlatform = "current_price_by_platform"
	GameCategory           = "game_category"
	GameDynamic            = "game_dynamic"
	GameStatic             = "game_static"
)

// SteamPlatformID is the platform row representing the Steam storefront.
// Games without price deals elsewhere default to it.
const SteamPlatformID = 61

// Spec describes one downstream table: its identity columns (the key the
// reconciler diffs on and the uploader upserts/deletes by) and its column
// order.
type Spec struct {
	Name     string
	Identity []string
	Columns  []string
}

// Order returns the build order. current_price_by_platform must precede
// game_dynamic, which consumes it as an intermediate.
func Order() []string {
	return []string{
		Category,
		Platform,
		CurrentPriceByPlatform,
		GameCategory,
		GameDynamic,
		GameStatic,
	}
}

func defaultSpecs() map[string]Spec {
	return map[string]Spec{
		Category: {
			Name:     Category,
			Identity: []string{"id"},
			Columns:  []string{"id", "category_name"},
		},
		Platform: {
			Name:     Platform,
			Identity: []string{"id"},
			Columns:  []string{"id", "name"},
		},
		CurrentPriceByPlatform: {
			Name:     CurrentPriceByPlatform,
			Identity: []string{"game_id", "platform_id"},
			Columns:  []string{"game_id", "platform_id", "discount_rate", "discount_price", "url"},
		},
		GameCategory: {
			Name:     GameCategory,
			Identity: []string{"id"},
			Columns:  []string{"id", "category_id", "game_id"},
		},
		GameDynamic: {
			Name:     GameDynamic,
			Identity: []string{"game_id"},
			Columns: []string{
				"game_id", "rating", "active_players", "lowest_platform",
				"lowest_price", "history_lowest_price", "on_sale", "total_reviews",
			},
		},
		GameStatic: {
			Name:     GameStatic,
			Identity: []string{"id"},
			Columns: []string{
				"id", "title", "original_title", "description", "release_date",
				"publisher", "developer", "thumbnail", "price",
				"is_singleplay", "is_multiplay",
			},
		},
	}
}

// Override adjusts one table's metadata from configuration. Identity
// replaces the table's identity columns; Required replaces the NOT NULL
// columns learned from the database schema.
type Override struct {
	Identity []string `mapstructure:"identity"`
	Required []string `mapstructure:"required"`
}

// DecodeOverrides decodes the raw per-table config section. Values are
// decoded weakly so YAML scalars and comma-joined strings both work.
func DecodeOverrides(raw map[string]any) (map[string]Override, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	overrides := make(map[string]Override, len(raw))
	for name, section := range raw {
		var o Override
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			WeaklyTypedInput: true,
			Result:           &o,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build override decoder: %w", err)
		}
		if err := dec.Decode(section); err != nil {
			return nil, fmt.Errorf("invalid override for table %s: %w", name, err)
		}
		overrides[name] = o
	}
	return overrides, nil
}

// Specs returns the table specs with identity overrides applied.
func Specs(overrides map[string]Override) map[string]Spec {
	specs := defaultSpecs()
	for name, o := range overrides {
		spec, ok := specs[name]
		if !ok || len(o.Identity) == 0 {
			continue
		}
		spec.Identity = o.Identity
		specs[name] = spec
	}
	return specs
}

// Identity returns the default identity columns for a table, or nil for
// an unknown table.
func Identity(name string) []string {
	return defaultSpecs()[name].Identity
}
