// Package stream fans committed coin transfers out to the sender's and the
// recipient's live connections.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
)

// CoinEvent describes a transfer as seen by one of its parties.
type CoinEvent struct {
	TransactionID string    `json:"transaction_id"`
	Direction     string    `json:"direction"`
	Counterparty  string    `json:"counterparty_id"`
	Amount        int64     `json:"amount"`
	Balance       int64     `json:"balance"`
	Timestamp     time.Time `json:"timestamp"`
}

type subscriber struct {
	userID string
	ch     chan CoinEvent
}

// Hub fans out events to subscribers keyed by user.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]subscriber
	next int
}

func New() *Hub {
	return &Hub{subs: make(map[int]subscriber)}
}

// Subscribe registers userID and returns a channel receiving that user's
// events. The channel is closed when ctx ends.
func (h *Hub) Subscribe(ctx context.Context, userID string) <-chan CoinEvent {
	ch := make(chan CoinEvent, 16)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = subscriber{userID: userID, ch: ch}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, id)
		close(ch)
		h.mu.Unlock()
	}()

	return ch
}

// Publish delivers evt to userID's subscribers. Slow subscribers miss events.
func (h *Hub) Publish(userID string, evt CoinEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if s.userID != userID {
			continue
		}
		select {
		case s.ch <- evt:
		default:
		}
	}
}

// NotifyTransfer implements ledger.Notifier.
func (h *Hub) NotifyTransfer(res ledger.TransferResult) {
	ts := res.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	h.Publish(res.SenderID, CoinEvent{
		TransactionID: res.TransactionID,
		Direction:     "sent",
		Counterparty:  res.RecipientID,
		Amount:        res.Amount,
		Balance:       res.SenderBalance,
		Timestamp:     ts,
	})
	h.Publish(res.RecipientID, CoinEvent{
		TransactionID: res.TransactionID,
		Direction:     "received",
		Counterparty:  res.SenderID,
		Amount:        res.Amount,
		Balance:       res.RecipientBalance,
		Timestamp:     ts,
	})
}

// Subscribers reports the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
