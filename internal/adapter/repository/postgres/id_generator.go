package postgres

import (
	"math/rand/v2"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/iho/bankledger/internal/domain"
)

// ULIDGenerator generates ULID-based IDs.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}

// AccountNumberGenerator draws uniformly random 8-digit account numbers.
type AccountNumberGenerator struct{}

// NewAccountNumberGenerator creates a new AccountNumberGenerator.
func NewAccountNumberGenerator() *AccountNumberGenerator {
	return &AccountNumberGenerator{}
}

// Generate returns a number in [domain.AccountNumberMin, domain.AccountNumberMax].
func (g *AccountNumberGenerator) Generate() string {
	n := domain.AccountNumberMin + rand.IntN(domain.AccountNumberMax-domain.AccountNumberMin+1)
	return strconv.Itoa(n)
}
