package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRate(t *testing.T) {
	tests := []struct {
		in      string
		want    Rate
		wantErr bool
	}{
		{"0.1075", 1075, false},
		{"0.1", 1000, false},
		{"0", 0, false},
		{"1", RateScale, false},
		{"0.10750", 1075, false},
		{"0.10755", 0, true},
		{"-0.01", 0, true},
		{"1.5", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRate(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRate_ScanAndValue(t *testing.T) {
	r := Rate(1075)
	v, err := r.Value()
	require.NoError(t, err)
	assert.Equal(t, "0.1075", v)

	for _, raw := range []interface{}{0.1075, "0.1075", []byte("0.1075")} {
		var got Rate
		require.NoError(t, got.Scan(raw))
		assert.Equal(t, Rate(1075), got)
	}
}

func TestRate_JSON(t *testing.T) {
	b, err := json.Marshal(Rate(825))
	require.NoError(t, err)
	assert.Equal(t, `"0.0825"`, string(b))

	var r Rate
	require.NoError(t, json.Unmarshal([]byte(`0.0825`), &r))
	assert.Equal(t, Rate(825), r)
	require.NoError(t, json.Unmarshal([]byte(`"0.1075"`), &r))
	assert.Equal(t, Rate(1075), r)
}

func TestTicket_DerivedBalances(t *testing.T) {
	ticket := &Ticket{
		Total: 11074,
		Transactions: []*Transaction{
			{Tenders: []*Tender{{Amount: 5000}, {Amount: 3000}}},
			{Tenders: []*Tender{{Amount: 1000}}},
		},
	}
	assert.Equal(t, int64(9000), ticket.TotalPaid())
	assert.Equal(t, int64(2074), ticket.BalanceOwed())
	assert.True(t, ticket.IsOpen())

	ticket.Transactions[1].Tenders = append(ticket.Transactions[1].Tenders, &Tender{Amount: 3000})
	assert.Equal(t, int64(-926), ticket.BalanceOwed())
	assert.False(t, ticket.IsOpen())
}
