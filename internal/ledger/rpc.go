package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// RPCClient talks to the token gateway that signs SPL transfers for the
// $EPIC mint.
type RPCClient struct {
	http *resty.Client
	mint string
}

func NewRPCClient(baseURL, mint string, timeout time.Duration) *RPCClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	return &RPCClient{http: c, mint: mint}
}

type transferRequest struct {
	Mint   string          `json:"mint"`
	From   string          `json:"from"`
	To     string          `json:"to"`
	Amount decimal.Decimal `json:"amount"`
}

type transferResponse struct {
	Signature string `json:"signature"`
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

type rpcError struct {
	Message string `json:"message"`
}

func (c *RPCClient) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (string, error) {
	var out transferResponse
	var fail rpcError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(transferRequest{Mint: c.mint, From: from, To: to, Amount: amount}).
		SetResult(&out).
		SetError(&fail).
		Post("/transfer")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", statusError(resp, fail)
	}
	if out.Signature == "" {
		return "", fmt.Errorf("transfer: empty signature")
	}
	return out.Signature, nil
}

func (c *RPCClient) Balance(ctx context.Context, wallet string) (decimal.Decimal, error) {
	var out balanceResponse
	var fail rpcError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("wallet", wallet).
		SetQueryParam("mint", c.mint).
		SetResult(&out).
		SetError(&fail).
		Get("/balance/{wallet}")
	if err != nil {
		return decimal.Zero, err
	}
	if resp.IsError() {
		return decimal.Zero, statusError(resp, fail)
	}
	return out.Balance, nil
}

// Ping checks the gateway is reachable.
func (c *RPCClient) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("chain gateway: %s", resp.Status())
	}
	return nil
}

func statusError(resp *resty.Response, fail rpcError) error {
	if fail.Message != "" {
		return fmt.Errorf("chain gateway %s: %s", resp.Status(), fail.Message)
	}
	return fmt.Errorf("chain gateway %s", resp.Status())
}
