package tax

import (
	"testing"

	"github.com/nimasrn/pos-ledger/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestResolver_Resolve(t *testing.T) {
	r := DefaultResolver()

	tests := []struct {
		name        string
		category    string
		location    string
		wantTaxable bool
		wantSource  model.TaxabilitySource
	}{
		{"taxable default", "new_appliance", "", true, model.SourceProductDefault},
		{"non-taxable default", "extended_warranty", "lake_charles", false, model.SourceProductDefault},
		{"display name is normalised", " Used Appliance ", "", true, model.SourceProductDefault},
		{"unknown category", "gift_card", "", false, model.SourceProductDefault},
		{"location override wins", "extended_warranty", "Jennings", true, model.SourceLocationOverride},
		{"override only matches its category", "ebay_sale", "jennings", false, model.SourceProductDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			taxable, source := r.Resolve(tt.category, tt.location)
			assert.Equal(t, tt.wantTaxable, taxable)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestResolver_LaterOverrideWins(t *testing.T) {
	r := NewResolver(
		Override{Location: "lafayette", Category: "parts", Taxable: false},
		Override{Location: "lafayette", Category: "parts", Taxable: true},
	)
	taxable, source := r.Resolve("parts", "lafayette")
	assert.True(t, taxable)
	assert.Equal(t, model.SourceLocationOverride, source)
}

func TestResolver_ResolveWithPayment(t *testing.T) {
	r := DefaultResolver()
	cash := model.PaymentType{Name: "cash", Taxable: true}
	acima := model.PaymentType{Name: "acima", Taxable: false}

	taxable, source := r.ResolveWithPayment("new_appliance", "lake_charles", []model.PaymentType{cash})
	assert.True(t, taxable)
	assert.Equal(t, model.SourceProductDefault, source)

	taxable, source = r.ResolveWithPayment("new_appliance", "lake_charles", []model.PaymentType{cash, acima})
	assert.False(t, taxable)
	assert.Equal(t, model.SourcePaymentType, source)

	taxable, source = r.ResolveWithPayment("ebay_sale", "", []model.PaymentType{acima})
	assert.False(t, taxable)
	assert.Equal(t, model.SourceProductDefault, source)
}

func TestResolver_ResolveWithPaymentOnlyExemptsLeaseToOwn(t *testing.T) {
	r := DefaultResolver()
	stripe := model.PaymentType{Name: "stripe_payment", Taxable: false}
	ebay := model.PaymentType{Name: "ebay_payment", Taxable: false}

	taxable, source := r.ResolveWithPayment("parts", "lake_charles", []model.PaymentType{stripe, ebay})
	assert.True(t, taxable)
	assert.Equal(t, model.SourceProductDefault, source)

	taxable, source = r.ResolveWithPayment("parts", "lake_charles", []model.PaymentType{{Name: " Acima "}})
	assert.False(t, taxable)
	assert.Equal(t, model.SourcePaymentType, source)
}

func TestManual(t *testing.T) {
	taxable, source := Manual(true)
	assert.True(t, taxable)
	assert.Equal(t, model.SourceManualOverride, source)
}
