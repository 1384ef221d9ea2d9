package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string { return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message) }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// rpcClient is a minimal Solana JSON-RPC 2.0 transport.
type rpcClient struct {
	url        string
	httpClient *http.Client
	nextID     atomic.Uint64
}

// call invokes method and decodes the result into out (which may be nil).
func (c *rpcClient) call(ctx context.Context, method string, out any, params ...any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: HTTP request failed: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: server error %d: %s", method, resp.StatusCode, string(raw))
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if rr.Error != nil {
		return fmt.Errorf("%s: %w", method, rr.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rr.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

type latestBlockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

type signatureStatus struct {
	ConfirmationStatus string          `json:"confirmationStatus"`
	Err                json.RawMessage `json:"err"`
}

type signatureStatusesResult struct {
	Value []*signatureStatus `json:"value"`
}

type transactionResult struct {
	Meta *struct {
		LogMessages []string `json:"logMessages"`
	} `json:"meta"`
}

type balanceResult struct {
	Value uint64 `json:"value"`
}
