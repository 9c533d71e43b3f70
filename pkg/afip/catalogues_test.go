package afip

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestVoucherTypeForBuyer(t *testing.T) {
	assert.Equal(t, VoucherFacturaA, VoucherTypeForBuyer("20123456789"), "comprador con CUIT recibe Factura A")
	assert.Equal(t, VoucherFacturaB, VoucherTypeForBuyer(""), "consumidor final recibe Factura B")
	assert.Equal(t, VoucherFacturaB, VoucherTypeForBuyer("   "), "CUIT en blanco cuenta como consumidor final")
}

func TestVoucherTypeLetter(t *testing.T) {
	assert.Equal(t, "A", VoucherTypeLetter(VoucherFacturaA))
	assert.Equal(t, "B", VoucherTypeLetter(VoucherFacturaB))
	assert.Equal(t, "C", VoucherTypeLetter(VoucherFacturaC))
	assert.Equal(t, "?", VoucherTypeLetter(999))
}

func TestIVARateIDFor(t *testing.T) {
	assert.Equal(t, IVARateID21, IVARateIDFor(decimal.NewFromInt(21)))
	assert.Equal(t, IVARateID10_5, IVARateIDFor(decimal.NewFromFloat(10.5)))
	assert.Equal(t, IVARateID27, IVARateIDFor(decimal.NewFromInt(27)))
	assert.Equal(t, IVARateID0, IVARateIDFor(decimal.Zero))
	// Tasas no catalogadas caen en la alícuota general.
	assert.Equal(t, IVARateID21, IVARateIDFor(decimal.NewFromFloat(19.5)))
}

func TestSplitGross(t *testing.T) {
	rate21 := decimal.NewFromInt(21)

	t.Run("caso canónico: 1000 al 21%", func(t *testing.T) {
		net, tax := SplitGross(decimal.NewFromInt(1000), rate21)
		assert.True(t, net.Equal(decimal.NewFromFloat(826.45)), "neto: %s", net)
		assert.True(t, tax.Equal(decimal.NewFromFloat(173.55)), "iva: %s", tax)
	})

	t.Run("neto + IVA reconstruyen el bruto exacto", func(t *testing.T) {
		for _, gross := range []string{"0.01", "1.00", "99.99", "1234.56", "1000000.00"} {
			g := decimal.RequireFromString(gross)
			net, tax := SplitGross(g, rate21)
			assert.True(t, net.Add(tax).Equal(g), "bruto %s: %s + %s", gross, net, tax)
		}
	})

	t.Run("tasa cero deja todo en neto", func(t *testing.T) {
		net, tax := SplitGross(decimal.NewFromInt(500), decimal.Zero)
		assert.True(t, net.Equal(decimal.NewFromInt(500)))
		assert.True(t, tax.IsZero())
	})
}
