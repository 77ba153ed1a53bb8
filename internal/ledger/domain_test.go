package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name      string
		totalFee  float64
		totalPaid float64
		duePassed bool
		want      FeeStatus
	}{
		{"untouched account", 1000, 0, false, StatusPending},
		{"partial payment", 1000, 400, false, StatusPartial},
		{"fully paid", 1000, 1000, false, StatusPaid},
		{"overpaid still paid", 1000, 1200, false, StatusPaid},
		{"unpaid past due", 1000, 0, true, StatusOverdue},
		{"partial past due", 1000, 400, true, StatusOverdue},
		{"paid past due stays paid", 1000, 1000, true, StatusPaid},
		{"zero fee counts as settled", 0, 0, false, StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveStatus(tc.totalFee, tc.totalPaid, tc.duePassed))
		})
	}
}

func TestDeriveStatusIsIdempotent(t *testing.T) {
	// Same inputs, same answer, no matter how often it is recomputed.
	for i := 0; i < 5; i++ {
		require.Equal(t, StatusPartial, DeriveStatus(2000, 750, false))
	}
}

func TestFormatReceiptNumber(t *testing.T) {
	require.Equal(t, "26-27-000001", FormatReceiptNumber("2026-2027", 1))
	require.Equal(t, "26-27-000123", FormatReceiptNumber("2026-2027", 123))
	require.Equal(t, "31-32-999999", FormatReceiptNumber("2031-2032", 999999))
}

func TestPaymentModeValid(t *testing.T) {
	for _, m := range []PaymentMode{ModeCash, ModeUPI, ModeBankTransfer, ModeCheque, ModeOnline} {
		require.True(t, m.Valid())
	}
	require.False(t, PaymentMode("barter").Valid())
	require.False(t, PaymentMode("").Valid())
}
