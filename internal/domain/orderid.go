package domain

import (
	"crypto/rand"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var orderIDPattern = regexp.MustCompile(`^D-[0-9A-Z]{6}-[0-9A-Z]{2}$`)

// NewOrderID returns an ID of the form D-XXXXXX-XX. The first block comes
// from the millisecond clock, the second is random. Uniqueness is only
// probabilistic; the unique index on the ledger catches collisions.
func NewOrderID() string {
	return newOrderID(time.Now())
}

func newOrderID(now time.Time) string {
	clock := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	if len(clock) > 6 {
		clock = clock[len(clock)-6:] // Keep the fast-moving tail
	} else {
		clock = strings.Repeat("0", 6-len(clock)) + clock
	}
	return "D-" + clock + "-" + randomBase36(2)
}

func randomBase36(n int) string {
	var sb strings.Builder
	max := big.NewInt(int64(len(base36)))
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		sb.WriteByte(base36[v.Int64()])
	}
	return sb.String()
}

// IsOrderID reports whether s has the D-XXXXXX-XX shape
func IsOrderID(s string) bool {
	return orderIDPattern.MatchString(s)
}
