package cashier

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func exampleCart(t *testing.T) Cart {
	t.Helper()
	var c Cart
	var err error
	c, err = c.Apply(AddLine{Line: Line{ID: "l1", Name: "Poulet", BasePrice: d(2500),
		Extras: []Choice{{SupplementID: "x1", Name: "Piment", Price: d(500)}}, Quantity: 2}})
	if err != nil {
		t.Fatal(err)
	}
	c, err = c.Apply(AddLine{Line: Line{ID: "l2", Name: "Jus", BasePrice: d(1000), Quantity: 1}})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCart_ExampleTotals(t *testing.T) {
	c := exampleCart(t)
	if got := c.Lines[0].Total(); !got.Equal(d(6000)) {
		t.Fatalf("line 1 = %s", got)
	}
	if got := c.Lines[1].Total(); !got.Equal(d(1000)) {
		t.Fatalf("line 2 = %s", got)
	}
	if got := c.Total(); !got.Equal(d(7000)) {
		t.Fatalf("cart = %s", got)
	}
}

func TestCart_LineTotalFormula(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		base := rng.Int63n(10000)
		l := Line{ID: "l", BasePrice: d(base), Quantity: 1 + rng.Intn(9)}
		sum := base
		for j := 0; j < rng.Intn(4); j++ {
			p := rng.Int63n(1000)
			sum += p
			l.Extras = append(l.Extras, Choice{Price: d(p)})
		}
		for j := 0; j < rng.Intn(3); j++ {
			p := rng.Int63n(1000)
			sum += p
			l.Garnitures = append(l.Garnitures, Choice{Price: d(p)})
		}
		want := d(sum * int64(l.Quantity))
		if !l.Total().Equal(want) {
			t.Fatalf("line %+v: total %s want %s", l, l.Total(), want)
		}
	}
}

func TestCart_SetQuantityZeroRemoves(t *testing.T) {
	c := exampleCart(t)
	next, err := c.Apply(SetQuantity{LineID: "l1", Quantity: 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(next.Lines) != 1 || next.Lines[0].ID != "l2" {
		t.Fatalf("lines=%+v", next.Lines)
	}
	if len(c.Lines) != 2 {
		t.Fatal("Apply modified the original cart")
	}
}

func TestCart_SetQuantity(t *testing.T) {
	c := exampleCart(t)
	next, err := c.Apply(SetQuantity{LineID: "l2", Quantity: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !next.Total().Equal(d(9000)) {
		t.Fatalf("total=%s", next.Total())
	}
	if c.Lines[1].Quantity != 1 {
		t.Fatal("Apply modified the original line")
	}
}

func TestCart_Errors(t *testing.T) {
	c := exampleCart(t)
	cases := []struct {
		name string
		a    Action
		want error
	}{
		{"remove unknown", RemoveLine{LineID: "nope"}, ErrLineNotFound},
		{"quantity unknown", SetQuantity{LineID: "nope", Quantity: 2}, ErrLineNotFound},
		{"negative quantity", SetQuantity{LineID: "l1", Quantity: -1}, ErrInvalidQuantity},
		{"add zero quantity", AddLine{Line: Line{ID: "l3", BasePrice: d(1), Quantity: 0}}, ErrInvalidQuantity},
		{"add negative price", AddLine{Line: Line{ID: "l3", BasePrice: d(-1), Quantity: 1}}, ErrNegativePrice},
		{"add duplicate id", AddLine{Line: Line{ID: "l1", BasePrice: d(1), Quantity: 1}}, ErrDuplicateLine},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := c.Apply(tc.a)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err=%v want %v", err, tc.want)
			}
			if !next.Total().Equal(c.Total()) {
				t.Fatal("failed action changed the cart")
			}
		})
	}
}
