package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogsFollower subscribes to the logs of the tracked account and turns each
// notification into a wake-up for the polling loop. Notifications are only a
// hint; transactions are still read through the signature cursor.
type LogsFollower struct {
	ws         *WSClient
	commitment string
	logger     *logrus.Logger
	wake       chan struct{}

	mu      sync.Mutex
	account string
	subID   int
	active  bool
}

// NewLogsFollower creates a follower on top of a connected WSClient
func NewLogsFollower(ws *WSClient, commitment string, logger *logrus.Logger) *LogsFollower {
	if commitment == "" {
		commitment = "confirmed"
	}
	return &LogsFollower{
		ws:         ws,
		commitment: commitment,
		logger:     logger,
		wake:       make(chan struct{}, 1),
	}
}

// Wake fires at most once per burst of notifications
func (f *LogsFollower) Wake() <-chan struct{} {
	return f.wake
}

// Account returns the account currently followed
func (f *LogsFollower) Account() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account
}

// Follow moves the subscription to account
func (f *LogsFollower) Follow(account string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.active && f.account == account {
		return nil
	}

	if f.active {
		if err := f.ws.Unsubscribe(f.subID); err != nil {
			f.logger.WithError(err).WithField("account", f.account).Warn("Failed to drop previous logs subscription")
		}
		f.active = false
	}

	id, err := f.ws.SubscribeToLogs(account, f.commitment, f.onLogs)
	if err != nil {
		return fmt.Errorf("subscribe logs of %s: %w", account, err)
	}

	f.account = account
	f.subID = id
	f.active = true

	f.logger.WithField("account", account).Info("📡 Following account logs")
	return nil
}

func (f *LogsFollower) onLogs(params json.RawMessage) error {
	var notification LogsNotification
	if err := json.Unmarshal(params, &notification); err != nil {
		return fmt.Errorf("decode logs notification: %w", err)
	}

	f.logger.WithFields(logrus.Fields{
		"signature": notification.Result.Value.Signature,
		"slot":      notification.Result.Context.Slot,
	}).Debug("📋 Logs notification")

	select {
	case f.wake <- struct{}{}:
	default:
	}
	return nil
}
