package review

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrNoAppMapping indicates a bank has no known store app identifier.
var ErrNoAppMapping = errors.New("review: no app mapping for bank")

// AppIDs maps bank names to store app identifiers.
type AppIDs map[string]string

// DefaultAppIDs returns the built-in bank to app mapping.
func DefaultAppIDs() AppIDs {
	return AppIDs{
		"CBE":    "com.combanketh.mobilebanking",
		"BOA":    "com.boa.boaMobileBanking",
		"Dashen": "com.dashen.dashensuperapp",
	}
}

// Lookup returns the app identifier for bank, or ErrNoAppMapping.
func (a AppIDs) Lookup(bank string) (string, error) {
	id, ok := a[bank]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: %q", ErrNoAppMapping, bank)
	}
	return id, nil
}

// Merge returns a new mapping where entries from other override a.
func (a AppIDs) Merge(other AppIDs) AppIDs {
	out := make(AppIDs, len(a)+len(other))
	maps.Copy(out, a)
	maps.Copy(out, other)
	return out
}

// Banks returns the bank names in sorted order.
func (a AppIDs) Banks() []string {
	return slices.Sorted(maps.Keys(a))
}
