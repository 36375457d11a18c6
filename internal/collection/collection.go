// Package collection holds an in-memory, read-only view of a datamap's
// enriched messages, in the same order they were indexed. Row ids
// returned by vector search are positions into this order.
package collection

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/telefeed/backend/internal/datamap"
	"github.com/telefeed/backend/internal/enrich"
	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/internal/telegram"
	"github.com/telefeed/backend/pkg/logger"
	"go.uber.org/zap"
)

// Collection is an ordered list of enriched messages.
type Collection struct {
	msgs []message.Enriched
}

// Load reads every account batch file (accounts in sorted order) and
// then the live JSONL file. The ordering must stay stable across
// processes, since vector row ids are positions into it.
func Load(m *datamap.Map) (*Collection, error) {
	accounts, err := m.Accounts()
	if err != nil {
		return nil, err
	}
	sort.Strings(accounts)

	var msgs []message.Enriched
	for _, account := range accounts {
		batch, err := enrich.ReadBatch(m.BatchPath(account))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logger.Warn("Account has no enriched batch yet",
					zap.String("datamap", m.Name),
					zap.String("account", account))
				continue
			}
			return nil, fmt.Errorf("account %s: %w", account, err)
		}
		msgs = append(msgs, batch...)
	}

	if _, err := os.Stat(m.LivePath()); err == nil {
		live, err := telegram.ReadJSONL(m.LivePath())
		if err != nil {
			return nil, fmt.Errorf("live file: %w", err)
		}
		msgs = append(msgs, live...)
	}

	logger.Info("Loaded enriched collection",
		zap.String("datamap", m.Name),
		zap.Int("messages", len(msgs)))

	return &Collection{msgs: msgs}, nil
}

// New wraps an already loaded slice, preserving its order.
func New(msgs []message.Enriched) *Collection {
	return &Collection{msgs: msgs}
}

// Get returns the message at the given row position.
func (c *Collection) Get(row int) (message.Enriched, error) {
	if row < 0 || row >= len(c.msgs) {
		return message.Enriched{}, fmt.Errorf("row %d out of range [0, %d)", row, len(c.msgs))
	}
	return c.msgs[row], nil
}

// All returns the messages in indexing order. Callers must not mutate
// the returned slice.
func (c *Collection) All() []message.Enriched {
	return c.msgs
}

// Len reports the number of messages.
func (c *Collection) Len() int {
	return len(c.msgs)
}

// Enriched returns only the messages that carry analysis, preserving
// order.
func (c *Collection) Enriched() []message.Enriched {
	out := make([]message.Enriched, 0, len(c.msgs))
	for _, m := range c.msgs {
		if m.IsEnriched() {
			out = append(out, m)
		}
	}
	return out
}
