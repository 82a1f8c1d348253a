// Package payment verifies that a submitted transaction pays for a quiz
// result: a successful transfer of at least the quoted amount to the
// receiver on the expected chain.
package payment

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"blockiq/internal/model"
)

var (
	ErrInvalidTxHash     = errors.New("malformed transaction hash")
	ErrTxNotFound        = errors.New("transaction not found")
	ErrTxPending         = errors.New("transaction not yet mined")
	ErrTxFailed          = errors.New("transaction reverted")
	ErrWrongRecipient    = errors.New("transaction pays a different address")
	ErrInsufficientValue = errors.New("transaction value below the quoted amount")
	ErrWrongChain        = errors.New("transaction is on a different chain")
)

// Requirement is what a transaction must satisfy to unlock a result
type Requirement struct {
	Receiver    string
	MinValueWei decimal.Decimal
	ChainID     int64
}

// Confirmer checks a transaction against a Requirement and returns the
// accepted transfer. SessionID and ConfirmedAt are left for the caller.
type Confirmer interface {
	Confirm(ctx context.Context, txHash string, req Requirement) (*model.PaymentReceipt, error)
}

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// NormalizeTxHash validates a 32-byte hex hash and lower-cases it
func NormalizeTxHash(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !txHashPattern.MatchString(s) {
		return "", ErrInvalidTxHash
	}
	return strings.ToLower(s), nil
}

// IsRejection reports whether err means the transaction itself does not
// qualify, as opposed to the check being unable to run
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidTxHash, ErrTxNotFound, ErrTxPending, ErrTxFailed,
		ErrWrongRecipient, ErrInsufficientValue, ErrWrongChain,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// StaticConfirmer accepts every well-formed hash as a payment of exactly
// the required amount. It backs local development when no RPC endpoint is
// configured.
type StaticConfirmer struct{}

func (StaticConfirmer) Confirm(_ context.Context, txHash string, req Requirement) (*model.PaymentReceipt, error) {
	hash, err := NormalizeTxHash(txHash)
	if err != nil {
		return nil, err
	}
	return &model.PaymentReceipt{
		TxHash:   hash,
		To:       req.Receiver,
		ValueWei: req.MinValueWei.String(),
		ChainID:  req.ChainID,
	}, nil
}
