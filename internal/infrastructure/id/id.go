package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// UUIDGenerator issues order identifiers.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator { return UUIDGenerator{} }

func (UUIDGenerator) NewID() string { return uuid.NewString() }

// OrderNumbers issues human readable order numbers: the local timestamp
// (yyMMddHHmmss) followed by four random digits.
type OrderNumbers struct {
	loc  *time.Location
	rand io.Reader
}

func NewOrderNumbers(loc *time.Location) *OrderNumbers {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderNumbers{loc: loc, rand: rand.Reader}
}

func (g *OrderNumbers) NewOrderNumber(now time.Time) string {
	n, err := rand.Int(g.rand, big.NewInt(10000))
	suffix := int64(0)
	if err == nil {
		suffix = n.Int64()
	}
	return now.In(g.loc).Format("060102150405") + fmt.Sprintf("%04d", suffix)
}

const paymentPrefix = "pay_"

// PaymentIDs issues ULID based payment identifiers. The prefix keeps them
// visibly distinct from order uuids and provider transaction ids.
type PaymentIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewPaymentIDs() *PaymentIDs {
	return &PaymentIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *PaymentIDs) NewPaymentID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return paymentPrefix + ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}
