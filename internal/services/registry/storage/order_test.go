package storage

import (
	"errors"
	"testing"

	"github.com/xrfone/registry/internal/services/registry/domain"
)

func TestParseOrderSynonyms(t *testing.T) {
	cases := []struct {
		value string
		want  Order
	}{
		{value: "asc", want: OrderAscending},
		{value: "ascending", want: OrderAscending},
		{value: "ASC", want: OrderAscending},
		{value: "Ascending", want: OrderAscending},
		{value: "desc", want: OrderDescending},
		{value: "descending", want: OrderDescending},
		{value: "DESC", want: OrderDescending},
		{value: "Descending", want: OrderDescending},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			got, err := ParseOrder(tc.value)
			if err != nil {
				t.Fatalf("ParseOrder(%q): %v", tc.value, err)
			}
			if got != tc.want {
				t.Fatalf("ParseOrder(%q) = %v, want %v", tc.value, got, tc.want)
			}
		})
	}
}

func TestParseOrderRejectsUnknownValues(t *testing.T) {
	for _, value := range []string{"", "up", "descend", "1"} {
		if _, err := ParseOrder(value); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("ParseOrder(%q): expected validation error, got %v", value, err)
		}
	}
}

func TestOrderString(t *testing.T) {
	if got := OrderAscending.String(); got != "ASC" {
		t.Fatalf("expected ASC, got %q", got)
	}
	if got := OrderDescending.String(); got != "DESC" {
		t.Fatalf("expected DESC, got %q", got)
	}
}

func TestUpdateAssetFieldsEmpty(t *testing.T) {
	if !(UpdateAssetFields{}).Empty() {
		t.Fatal("zero value should be empty")
	}
	name := "renamed"
	if (UpdateAssetFields{Name: &name}).Empty() {
		t.Fatal("field set should not be empty")
	}
}
