// Package randompkg provides functionality for generating random application items.
package randompkg

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz"

	// AccountNumberPrefix starts every generated account number.
	AccountNumberPrefix = "ACC"
)

// Intn is a shortcut for generating a random integer between 0 and max using crypto/rand.
func Intn(max int) int64 {
	nBig, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}

	return nBig.Int64()
}

// Float64 is a shortcut for generating a random float between 0 and 1 using crypto/rand.
func Float64() float64 {
	return float64(Intn(1<<32)) / (1 << 32)
}

// IntBetween generates a random integer between min and max.
func IntBetween(min, max int) int32 {
	return int32(Intn(max-min+1)) + int32(min)
}

// FloatBetween generates a random decimal number between min and max rounded down to 2 decimals.
func FloatBetween(min, max float64) float64 {
	numInRange := min + Float64()*(max-min)
	return math.Floor(numInRange*100) / 100
}

// String generates a random string of length n.
func String(n int) string {
	var sb strings.Builder

	k := len(alphabet)

	for i := 0; i < n; i++ {
		c := alphabet[Intn(k)]

		_ = sb.WriteByte(c) // The returned err is always nil.
	}

	return sb.String()
}

// Owner generates a random owner name.
func Owner() string {
	return String(6)
}

// MoneyAmountBetween generates a random amount of money between min and max with 2 decimals.
func MoneyAmountBetween(min, max float64) string {
	return decimal.NewFromFloat(FloatBetween(min, max)).StringFixed(2)
}

// Currency generates a random currency code.
func Currency() string {
	currencies := []string{"USD", "EUR", "RMB"}
	return currencies[Intn(len(currencies))]
}

// Email generates a random email.
func Email() string {
	return fmt.Sprintf("%s@email.com", String(10))
}

// AccountNumber generates a human facing account number: the prefix, the last
// 8 digits of the unix millisecond clock and 4 random digits.
func AccountNumber(now time.Time) string {
	ms := fmt.Sprintf("%08d", now.UnixMilli()%100_000_000)
	return fmt.Sprintf("%s%s%04d", AccountNumberPrefix, ms, Intn(10_000))
}
