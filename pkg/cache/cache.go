// Package cache implements the two-tier response cache: a fast ephemeral
// tier in front of the durable SQLite store. Freshness is governed by a
// static per-type TTL table, not per-entry expiry.
package cache

import (
	"strings"
	"time"
)

// Type classifies a cache entry and selects its TTL.
type Type string

const (
	TypePOI        Type = "poi"
	TypeLocation   Type = "location"
	TypeImage      Type = "image"
	TypeValidation Type = "ai_validation"
	TypeGapFill    Type = "ai_gapfill"
	TypeStrategy   Type = "ai_strategy"
)

// Types lists all known cache types, in prune order.
func Types() []Type {
	return []Type{TypePOI, TypeLocation, TypeImage, TypeValidation, TypeGapFill, TypeStrategy}
}

// TTL returns how long entries of this type stay fresh.
// Unknown types fall back to one day.
func (t Type) TTL() time.Duration {
	switch t {
	case TypePOI:
		return 7 * 24 * time.Hour
	case TypeLocation:
		return 30 * 24 * time.Hour
	case TypeImage:
		return 14 * 24 * time.Hour
	case TypeValidation:
		return 3 * 24 * time.Hour
	case TypeGapFill:
		return 24 * time.Hour
	case TypeStrategy:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Key builds a semantic cache key from type, service and query parts.
// Parts are trimmed and lowercased so logically equal queries share an
// entry; empty parts are skipped.
func Key(t Type, service string, parts ...string) string {
	elems := make([]string, 0, len(parts)+2)
	elems = append(elems, string(t), service)
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			elems = append(elems, p)
		}
	}
	return strings.Join(elems, ":")
}
