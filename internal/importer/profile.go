package importer

import (
	"strings"

	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

// Profile describes the column layout of a rent-roll export.
// Adding a new layout is just adding a new Profile to the profiles slice.
type Profile struct {
	Name       string
	Comma      rune
	UnitCol    string
	PayerCol   string
	AmountCol  string
	DueCol     string
	TypeCol    string // optional
	DescCol    string // optional
	DateLayout string
	Decimal    decimalStyle
	Types      map[string]ledger.PaymentType
}

type decimalStyle int

const (
	decimalPoint decimalStyle = iota // 1,234.56
	decimalComma                     // 1.234,56
)

// requiredCols returns the column names that must be present for this profile to match.
func (p Profile) requiredCols() []string {
	return []string{p.UnitCol, p.PayerCol, p.AmountCol, p.DueCol}
}

// paymentType maps a cell to a payment type. Canonical names are accepted by every profile.
func (p Profile) paymentType(cell string) (ledger.PaymentType, bool) {
	key := strings.ToLower(strings.TrimSpace(cell))
	if key == "" {
		return ledger.PaymentTypeCharges, true
	}

	switch t := ledger.PaymentType(key); t {
	case ledger.PaymentTypeRent, ledger.PaymentTypeCharges, ledger.PaymentTypePurchase,
		ledger.PaymentTypeService, ledger.PaymentTypeOther:
		return t, true
	}

	t, ok := p.Types[key]

	return t, ok
}

// profiles is the ordered list of layouts tried during auto-detection.
var profiles = []Profile{
	{
		Name:       "condo",
		Comma:      ',',
		UnitCol:    "unit_id",
		PayerCol:   "payer_id",
		AmountCol:  "amount",
		DueCol:     "due_date",
		TypeCol:    "type",
		DescCol:    "description",
		DateLayout: "2006-01-02",
		Decimal:    decimalPoint,
	},
	{
		Name:       "mapa de quotas",
		Comma:      ';',
		UnitCol:    "Fração",
		PayerCol:   "Condómino",
		AmountCol:  "Montante",
		DueCol:     "Vencimento",
		TypeCol:    "Tipo",
		DescCol:    "Descrição",
		DateLayout: "02-01-2006",
		Decimal:    decimalComma,
		Types: map[string]ledger.PaymentType{
			"renda":       ledger.PaymentTypeRent,
			"quota":       ledger.PaymentTypeCharges,
			"condomínio":  ledger.PaymentTypeCharges,
			"compra":      ledger.PaymentTypePurchase,
			"serviço":     ledger.PaymentTypeService,
			"outro":       ledger.PaymentTypeOther,
			"fundo comum": ledger.PaymentTypeCharges,
		},
	},
}
