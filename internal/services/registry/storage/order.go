package storage

import (
	"fmt"
	"strings"

	"github.com/xrfone/registry/internal/services/registry/domain"
)

// Order selects the direction of a sorted read.
type Order int

const (
	// OrderAscending sorts by the declared key field, ascending.
	OrderAscending Order = iota
	// OrderDescending sorts by the declared key field, descending.
	OrderDescending
)

// ParseOrder maps the accepted string synonyms onto an Order,
// case-insensitively. Unrecognized values are a validation error, never a
// silent default.
func ParseOrder(value string) (Order, error) {
	switch strings.ToLower(value) {
	case "asc", "ascending":
		return OrderAscending, nil
	case "desc", "descending":
		return OrderDescending, nil
	default:
		return OrderAscending, fmt.Errorf("%w: invalid order type: %q", domain.ErrValidation, value)
	}
}

// String returns the SQL direction keyword.
func (o Order) String() string {
	if o == OrderDescending {
		return "DESC"
	}
	return "ASC"
}
