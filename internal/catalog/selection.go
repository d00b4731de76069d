package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrItemUnavailable       = errors.New("menu item is not available")
	ErrUnknownSupplement     = errors.New("supplement does not belong to this menu item")
	ErrSupplementUnavailable = errors.New("supplement is not available")
	ErrMissingObligatory     = errors.New("an obligatory supplement must be chosen")
)

// Select resolves the chosen supplement ids of item. When an item has
// obligatory supplements of a kind, at least one of them must be picked.
func Select(item MenuItem, all []Supplement, extraIDs, garnitureIDs []string) (extras, garnitures []Supplement, err error) {
	if !item.Available {
		return nil, nil, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
	}
	byID := make(map[string]Supplement, len(all))
	for _, s := range all {
		byID[s.ID] = s
	}

	pick := func(ids []string, kind Kind) ([]Supplement, error) {
		out := make([]Supplement, 0, len(ids))
		seen := map[string]bool{}
		for _, id := range ids {
			s, ok := byID[id]
			if !ok || s.Kind != kind || s.MenuItemID != item.ID {
				return nil, fmt.Errorf("%w: %s", ErrUnknownSupplement, id)
			}
			if !s.Available {
				return nil, fmt.Errorf("%w: %s", ErrSupplementUnavailable, s.Name)
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, s)
		}
		return out, nil
	}
	if extras, err = pick(extraIDs, KindExtra); err != nil {
		return nil, nil, err
	}
	if garnitures, err = pick(garnitureIDs, KindGarniture); err != nil {
		return nil, nil, err
	}

	for _, kind := range []Kind{KindExtra, KindGarniture} {
		chosen := extras
		if kind == KindGarniture {
			chosen = garnitures
		}
		if hasObligatory(all, kind) && !containsObligatory(chosen) {
			return nil, nil, fmt.Errorf("%w: %s for %s", ErrMissingObligatory, kind, item.Name)
		}
	}
	return extras, garnitures, nil
}

func hasObligatory(all []Supplement, kind Kind) bool {
	for _, s := range all {
		if s.Kind == kind && s.Obligatory && s.Available {
			return true
		}
	}
	return false
}

func containsObligatory(chosen []Supplement) bool {
	for _, s := range chosen {
		if s.Obligatory {
			return true
		}
	}
	return false
}
