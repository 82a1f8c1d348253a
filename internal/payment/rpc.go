package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"blockiq/internal/model"
)

// RetryConfig controls how long a pending transaction is polled
type RetryConfig struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	// MaxElapsed bounds the whole confirmation; zero means one attempt
	MaxElapsed time.Duration
}

// DefaultRetryConfig suits a two-second L2 block time
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      1.5,
		MaxInterval:     4 * time.Second,
		MaxElapsed:      30 * time.Second,
	}
}

// RPCConfirmer reads transactions from an Ethereum JSON-RPC endpoint
type RPCConfirmer struct {
	url        string
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
	nextID     atomic.Int64
}

// NewRPCConfirmer creates a confirmer for the endpoint at url
func NewRPCConfirmer(url string, retry RetryConfig, logger *slog.Logger) *RPCConfirmer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RPCConfirmer{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry:  retry,
		logger: logger,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcTransaction struct {
	Hash        string  `json:"hash"`
	From        string  `json:"from"`
	To          *string `json:"to"`
	Value       string  `json:"value"`
	ChainID     string  `json:"chainId"`
	BlockNumber *string `json:"blockNumber"`
}

type rpcReceipt struct {
	Status      string `json:"status"`
	BlockNumber string `json:"blockNumber"`
}

// call performs one JSON-RPC request and decodes its result into out. A
// JSON null result leaves out untouched and reports found=false.
func (c *RPCConfirmer) call(ctx context.Context, method string, params []any, out any) (bool, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("%s: read body: %w", method, err)
	}
	if resp.StatusCode >= 400 {
		return false, fmt.Errorf("%s: endpoint returned %d: %s", method, resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return false, fmt.Errorf("%s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return false, fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return false, nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return false, fmt.Errorf("%s: decode result: %w", method, err)
	}
	return true, nil
}

// ChainID asks the endpoint which chain it serves
func (c *RPCConfirmer) ChainID(ctx context.Context) (int64, error) {
	var hex string
	found, err := c.call(ctx, "eth_chainId", []any{}, &hex)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, errors.New("eth_chainId returned no result")
	}
	id, err := parseHexBig(hex)
	if err != nil {
		return 0, fmt.Errorf("eth_chainId: %w", err)
	}
	return id.Int64(), nil
}

// Confirm polls until the transaction is mined or the retry budget runs
// out, then checks it against req
func (c *RPCConfirmer) Confirm(ctx context.Context, txHash string, req Requirement) (*model.PaymentReceipt, error) {
	hash, err := NormalizeTxHash(txHash)
	if err != nil {
		return nil, err
	}

	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	if chainID != req.ChainID {
		return nil, fmt.Errorf("%w: endpoint serves %d, want %d", ErrWrongChain, chainID, req.ChainID)
	}

	var (
		tx      rpcTransaction
		receipt rpcReceipt
	)
	attempt := 0
	operation := func() error {
		attempt++
		found, err := c.call(ctx, "eth_getTransactionByHash", []any{hash}, &tx)
		if err != nil {
			return err
		}
		if !found {
			return ErrTxNotFound
		}
		found, err = c.call(ctx, "eth_getTransactionReceipt", []any{hash}, &receipt)
		if err != nil {
			return err
		}
		if !found {
			return ErrTxPending
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("payment not confirmed yet", "tx", hash, "attempt", attempt, "retry_in", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, c.backOff(ctx), notify); err != nil {
		return nil, err
	}

	return checkTransfer(hash, &tx, &receipt, chainID, req)
}

func (c *RPCConfirmer) backOff(ctx context.Context) backoff.BackOff {
	if c.retry.MaxElapsed <= 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retry.InitialInterval
	b.Multiplier = c.retry.Multiplier
	b.MaxInterval = c.retry.MaxInterval
	b.MaxElapsedTime = c.retry.MaxElapsed
	return backoff.WithContext(b, ctx)
}

func checkTransfer(hash string, tx *rpcTransaction, receipt *rpcReceipt, chainID int64, req Requirement) (*model.PaymentReceipt, error) {
	if receipt.Status != "0x1" {
		return nil, ErrTxFailed
	}

	if tx.ChainID != "" {
		txChain, err := parseHexBig(tx.ChainID)
		if err != nil {
			return nil, fmt.Errorf("transaction chainId: %w", err)
		}
		if txChain.Int64() != req.ChainID {
			return nil, fmt.Errorf("%w: transaction signed for %s", ErrWrongChain, txChain)
		}
	}

	if tx.To == nil || !strings.EqualFold(*tx.To, req.Receiver) {
		return nil, ErrWrongRecipient
	}

	value, err := parseHexBig(tx.Value)
	if err != nil {
		return nil, fmt.Errorf("transaction value: %w", err)
	}
	valueWei := decimal.NewFromBigInt(value, 0)
	if valueWei.LessThan(req.MinValueWei) {
		return nil, fmt.Errorf("%w: paid %s wei, need %s", ErrInsufficientValue, valueWei, req.MinValueWei)
	}

	block, err := parseHexBig(receipt.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("receipt blockNumber: %w", err)
	}

	return &model.PaymentReceipt{
		TxHash:      hash,
		From:        strings.ToLower(tx.From),
		To:          strings.ToLower(*tx.To),
		ValueWei:    valueWei.String(),
		ChainID:     chainID,
		BlockNumber: block.Uint64(),
	}, nil
}

func parseHexBig(s string) (*big.Int, error) {
	digits := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if digits == "" {
		return nil, fmt.Errorf("empty hex quantity %q", s)
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, fmt.Errorf("invalid hex quantity %q", s)
	}
	return n, nil
}
