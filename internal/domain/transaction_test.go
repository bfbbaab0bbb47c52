package domain

import (
	"errors"
	"testing"
)

func TestNormalizeAmount(t *testing.T) {
	testCases := []struct {
		amount  string
		want    string
		wantErr error
	}{
		{amount: "100", want: "100.00"},
		{amount: "100.5", want: "100.50"},
		{amount: "100.500", want: "100.50"},
		{amount: "0.01", want: "0.01"},
		{amount: "0", wantErr: ErrNonPositiveAmount},
		{amount: "-5", wantErr: ErrNonPositiveAmount},
		{amount: "1.005", wantErr: ErrInvalidAmount},
		{amount: "ten", wantErr: ErrInvalidAmount},
		{amount: "", wantErr: ErrInvalidAmount},
	}

	for _, tc := range testCases {
		got, err := NormalizeAmount(tc.amount)
		if !errors.Is(err, tc.wantErr) {
			t.Errorf("NormalizeAmount(%q) returned error %v, want %v", tc.amount, err, tc.wantErr)
			continue
		}

		if got != tc.want {
			t.Errorf("NormalizeAmount(%q) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}
