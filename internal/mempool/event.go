// Package mempool simulates a transaction relay that announces a liquidity
// removal and the front-run that answers it.
package mempool

import (
	"encoding/json"
	"fmt"

	"github.com/mbd888/watchdog/internal/realtime"
)

// EventKind tags a mempool event.
type EventKind string

const (
	EventRugAttempt      EventKind = "RugAttempt"
	EventFrontRunSuccess EventKind = "FrontRunSuccess"
)

// Event is one frame on the mempool stream. RugAttempt carries txHash,
// txFrom and token. FrontRunSuccess carries only message.
type Event struct {
	Event   EventKind `json:"event"`
	TxHash  string    `json:"txHash,omitempty"`
	TxFrom  string    `json:"txFrom,omitempty"`
	Token   string    `json:"token,omitempty"`
	Message string    `json:"message,omitempty"`
}

// NewRugAttempt builds the liquidity-removal announcement.
func NewRugAttempt(txHash, txFrom, token string) Event {
	return Event{
		Event:  EventRugAttempt,
		TxHash: txHash,
		TxFrom: txFrom,
		Token:  token,
	}
}

// NewFrontRunSuccess builds the front-run confirmation for token.
func NewFrontRunSuccess(token string) Event {
	return Event{
		Event:   EventFrontRunSuccess,
		Message: fmt.Sprintf("We front-ran liquidity removal for token %s", token),
	}
}

// frame serializes e for the broadcaster. token is the trigger's token,
// used for subscriber filtering even when e does not carry it.
func (e Event) frame(token string) (realtime.Frame, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return realtime.Frame{}, err
	}
	return realtime.Frame{Event: string(e.Event), Token: token, Payload: payload}, nil
}
