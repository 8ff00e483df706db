// Package watchdog is a Go client for the classification service and the
// mempool simulator.
package watchdog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"

	"github.com/mbd888/watchdog/internal/attestation"
	"github.com/mbd888/watchdog/internal/retry"
)

// Client talks to both watchdog services.
type Client struct {
	httpClient *http.Client

	AVSURL     string // e.g. http://localhost:3001
	MempoolURL string // e.g. http://localhost:4001

	// StreamURL overrides the WebSocket endpoint. Defaults to MempoolURL + "/ws".
	StreamURL string

	// OnMalformed is called with every stream frame that could not be parsed.
	OnMalformed func(frame []byte, err error)

	// ReconnectDelay is the first backoff of SubscribeWithRetry.
	ReconnectDelay time.Duration
}

// NewClient creates a client with default timeouts
func NewClient(avsURL, mempoolURL string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		AVSURL:     strings.TrimRight(avsURL, "/"),
		MempoolURL: strings.TrimRight(mempoolURL, "/"),
	}
}

// Classify asks the AVS for a signed verdict.
func (c *Client) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	var res ClassifyResult
	if err := c.postJSON(ctx, c.AVSURL+"/classify", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SignerAddress fetches the address attestations recover to.
func (c *Client) SignerAddress(ctx context.Context) (common.Address, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AVSURL+"/attestation/signer", nil)
	if err != nil {
		return common.Address{}, err
	}
	var body struct {
		Address string `json:"address"`
	}
	if err := c.do(req, &body); err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(body.Address) {
		return common.Address{}, fmt.Errorf("watchdog: invalid signer address %q", body.Address)
	}
	return common.HexToAddress(body.Address), nil
}

// Rug triggers a rug simulation and returns the acknowledgment.
func (c *Client) Rug(ctx context.Context, token string) (string, error) {
	var res struct {
		Status string `json:"status"`
	}
	if err := c.postJSON(ctx, c.MempoolURL+"/rug", map[string]string{"token": token}, &res); err != nil {
		return "", err
	}
	return res.Status, nil
}

// VerifyAttestation checks that result was signed by signer for req.
func VerifyAttestation(result *ClassifyResult, req ClassifyRequest, signer common.Address) error {
	if result == nil {
		return errors.New("watchdog: nil result")
	}
	return attestation.Verify(attestation.Statement{
		TokenAddress:      req.TokenAddress,
		FunctionSignature: req.FunctionSignature,
		Classification:    result.Classification,
		RiskScore:         result.RiskScore,
	}, result.Signature, signer)
}

// Subscribe streams mempool events to fn until ctx is done or the server
// closes the connection. Each frame is parsed on its own; malformed frames
// are dropped and never end the stream. A nil filter receives everything.
func (c *Client) Subscribe(ctx context.Context, filter *Filter, fn func(Event)) error {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, c.streamURL(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return fmt.Errorf("watchdog: dial stream: %w", &APIError{
				StatusCode: resp.StatusCode,
				Code:       "handshake_rejected",
				Message:    err.Error(),
			})
		}
		return fmt.Errorf("watchdog: dial stream: %w", err)
	}
	defer conn.Close()

	if filter != nil {
		if err := conn.WriteJSON(filter); err != nil {
			return fmt.Errorf("watchdog: send filter: %w", err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				return nil
			}
			return fmt.Errorf("watchdog: read stream: %w", err)
		}

		var ev Event
		if err := json.Unmarshal(frame, &ev); err != nil || ev.Event == "" {
			if err == nil {
				err = errors.New("frame has no event kind")
			}
			if c.OnMalformed != nil {
				c.OnMalformed(frame, err)
			}
			continue
		}
		fn(ev)
	}
}

// SubscribeWithRetry is Subscribe that reconnects with backoff when the
// stream breaks, making at most attempts connections in total. It returns
// when ctx is done, the server closes the stream cleanly, the attempts run
// out, or the server refuses the handshake with a 4xx.
func (c *Client) SubscribeWithRetry(ctx context.Context, filter *Filter, attempts int, fn func(Event)) error {
	policy := retry.DefaultPolicy
	policy.Attempts = attempts
	if c.ReconnectDelay > 0 {
		policy.BaseDelay = c.ReconnectDelay
	}
	return policy.Do(ctx, func(int) error {
		err := c.Subscribe(ctx, filter, fn)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			return retry.Permanent(err)
		}
		return err
	})
}

func (c *Client) streamURL() string {
	if c.StreamURL != "" {
		return c.StreamURL
	}
	u := c.MempoolURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func (c *Client) postJSON(ctx context.Context, url string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Code == "" {
			apiErr.Code = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
