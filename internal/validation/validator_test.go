package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Name string  `json:"name" validate:"required"`
	Qty  int     `json:"qty" validate:"min=1"`
	Kind string  `json:"kind" validate:"oneof=extra garniture"`
	Lat  float64 `json:"lat" validate:"latitude"`
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Qty: 0, Kind: "other", Lat: 200})
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("err=%v, want *Error", err)
	}
	if len(verr.Fields) != 4 {
		t.Fatalf("fields=%d, want 4: %v", len(verr.Fields), verr)
	}
	if verr.Fields[0].Field != "name" || !strings.Contains(verr.Error(), "name is required") {
		t.Fatalf("unexpected first field: %+v", verr.Fields[0])
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(sample{Name: "Attiéké", Qty: 2, Kind: "extra", Lat: 5.3}); err != nil {
		t.Fatalf("err=%v", err)
	}
}
