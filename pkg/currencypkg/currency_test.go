package currencypkg

import "testing"

func TestIsSupportedCurrency(t *testing.T) {
	for _, c := range SupportedCurrencies {
		if !IsSupportedCurrency(c) {
			t.Errorf("IsSupportedCurrency(%q) = false, want true", c)
		}
	}

	for _, c := range []string{"", "usd", "RUB", "USDT"} {
		if IsSupportedCurrency(c) {
			t.Errorf("IsSupportedCurrency(%q) = true, want false", c)
		}
	}
}
