package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TotalIsSumOfSubtotals(t *testing.T) {
	items := []LineItem{
		{ProductID: "tour-1", InventoryID: "inv-adult", UnitPrice: 100000, Quantity: 2},
		{ProductID: "tour-1", InventoryID: "inv-child", UnitPrice: 80000, Quantity: 1},
	}

	o, err := New("o-1", "N-1", Customer{UserID: "u-1"}, items, []Traveler{{Name: "Kim"}}, "")
	require.NoError(t, err)

	assert.Equal(t, int64(280000), o.Total)
	assert.Equal(t, DefaultCurrency, o.Currency)
	assert.Equal(t, StatusPending, o.Status)
	require.Len(t, o.History, 1)
	assert.Equal(t, StatusPending, o.History[0].Status)
}

func TestLineItem_UnitsAndSubtotal(t *testing.T) {
	tests := []struct {
		name     string
		item     LineItem
		units    int
		subtotal int64
	}{
		{
			name:     "flat quantity",
			item:     LineItem{UnitPrice: 5000, Quantity: 3},
			units:    3,
			subtotal: 15000,
		},
		{
			name:     "traveler counts share unit price",
			item:     LineItem{UnitPrice: 1000, Quantity: 9, Travelers: &TravelerCounts{Adult: 2, Child: 1}},
			units:    3,
			subtotal: 3000,
		},
		{
			name: "per type prices",
			item: LineItem{
				UnitPrice: 100000,
				Travelers: &TravelerCounts{Adult: 2, Child: 1, Infant: 1},
				Prices:    &TravelerPrices{Adult: 100000, Child: 80000},
			},
			units:    4,
			subtotal: 380000,
		},
		{
			name:     "empty traveler counts fall back to quantity",
			item:     LineItem{UnitPrice: 10, Quantity: 2, Travelers: &TravelerCounts{}},
			units:    2,
			subtotal: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.units, tt.item.Units())
			assert.Equal(t, tt.subtotal, tt.item.Subtotal())
		})
	}
}

func TestNew_Rejects(t *testing.T) {
	_, err := New("o", "n", Customer{}, nil, nil, "")
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = New("o", "n", Customer{}, []LineItem{{UnitPrice: 1, Quantity: 0}}, nil, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = New("o", "n", Customer{}, []LineItem{{UnitPrice: -1, Quantity: 1}}, nil, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestClone_IsDeep(t *testing.T) {
	o, err := New("o", "n", Customer{UserID: "u"}, []LineItem{{UnitPrice: 1, Quantity: 1, Travelers: &TravelerCounts{Adult: 1}}}, nil, "")
	require.NoError(t, err)

	c := o.Clone()
	c.Items[0].Travelers.Adult = 5
	c.History[0].Note = "changed"

	assert.Equal(t, 1, o.Items[0].Travelers.Adult)
	assert.Empty(t, o.History[0].Note)
}

func TestReservedItems(t *testing.T) {
	o := &Order{Items: []LineItem{
		{InventoryID: "a", Reserved: 2},
		{InventoryID: "", Reserved: 0},
		{InventoryID: "b", Reserved: 0},
		{InventoryID: "c", Reserved: 1},
	}}
	assert.Equal(t, []int{0, 3}, o.ReservedItems())
}
