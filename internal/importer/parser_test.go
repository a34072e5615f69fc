package importer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/condo/internal/importer"
	"github.com/MrJamesThe3rd/condo/internal/ledger"
)

const (
	unitA  = "7a1c3f0e-5b1d-4c55-9b62-0d7f5a3c2e11"
	unitB  = "c2b8e6d4-1f3a-4e7b-8a9c-5d6e7f8a9b0c"
	payerA = "0b9d8c7e-6f5a-4b3c-9d2e-1f0a9b8c7d6e"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestParser_CondoLayout(t *testing.T) {
	csv := "unit_id,payer_id,amount,type,due_date,description\n" +
		unitA + "," + payerA + ",950.00,rent,2026-04-01,April rent\n" +
		unitB + ",,\"1,250.50\",charges,2026-04-08,\n"

	rows, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, uuid.MustParse(unitA), *rows[0].UnitID)
	assert.Equal(t, uuid.MustParse(payerA), rows[0].PayerID)
	assert.True(t, decimal.RequireFromString("950").Equal(rows[0].Amount))
	assert.Equal(t, ledger.PaymentTypeRent, rows[0].Type)
	assert.Equal(t, date(2026, 4, 1), rows[0].DueDate)
	assert.Equal(t, "April rent", rows[0].Description)

	assert.Equal(t, uuid.Nil, rows[1].PayerID, "an empty payer is left for the caller")
	assert.True(t, decimal.RequireFromString("1250.50").Equal(rows[1].Amount))
	assert.Equal(t, ledger.PaymentTypeCharges, rows[1].Type)
}

func TestParser_MapaDeQuotas(t *testing.T) {
	csv := `Mapa de quotas - Edifício Riverside
Período;Abril 2026

Fração;Condómino;Tipo;Montante;Vencimento;Descrição
` + unitA + `;` + payerA + `;Quota;1.234,56;08-04-2026;Quota abril
` + unitB + `;;Renda;950,00 €;01-04-2026;
Total;;;2.184,56;;
`

	rows, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, ledger.PaymentTypeCharges, rows[0].Type)
	assert.True(t, decimal.RequireFromString("1234.56").Equal(rows[0].Amount))
	assert.Equal(t, date(2026, 4, 8), rows[0].DueDate)
	assert.Equal(t, "Quota abril", rows[0].Description)

	assert.Equal(t, ledger.PaymentTypeRent, rows[1].Type)
	assert.True(t, decimal.RequireFromString("950").Equal(rows[1].Amount))
}

func TestParser_Latin1Encoding(t *testing.T) {
	utf8CSV := "Fração;Condómino;Montante;Vencimento;Descrição\n" +
		unitA + ";" + payerA + ";45,00;01-05-2026;LIMPEZA ESCADAS\n"

	latin1, err := charmap.Windows1252.NewEncoder().Bytes([]byte(utf8CSV))
	require.NoError(t, err)

	rows, err := importer.NewParser().Parse(bytes.NewReader(latin1))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "LIMPEZA ESCADAS", rows[0].Description)
}

func TestParser_DifferentColumnOrder(t *testing.T) {
	csv := "Random;MetaData\n" +
		"Vencimento;Montante;Fração;Condómino;Ignored\n" +
		"01-05-2026;-10,00;" + unitA + ";" + payerA + ";XXX\n"

	rows, err := importer.NewParser().Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.True(t, decimal.RequireFromString("-10").Equal(rows[0].Amount), "sign is kept for the ledger to reject")
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr string
	}{
		{
			name:    "empty file",
			csv:     "",
			wantErr: "no matching rent-roll format",
		},
		{
			name:    "bad unit",
			csv:     "unit_id,payer_id,amount,due_date\n2B," + payerA + ",10.00,2026-04-01\n",
			wantErr: "row 2: bad unit_id",
		},
		{
			name:    "bad amount",
			csv:     "unit_id,payer_id,amount,due_date\n" + unitA + "," + payerA + ",ten,2026-04-01\n",
			wantErr: "bad amount",
		},
		{
			name:    "unknown type",
			csv:     "unit_id,payer_id,amount,type,due_date\n" + unitA + "," + payerA + ",10,fees,2026-04-01\n",
			wantErr: `unknown payment type "fees"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := importer.NewParser().Parse(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParser_HeaderOnly(t *testing.T) {
	rows, err := importer.NewParser().Parse(strings.NewReader("unit_id,payer_id,amount,due_date\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}
