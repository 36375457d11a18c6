package enrich

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/telefeed/backend/internal/message"
)

// Appender writes enriched messages to an append-only JSON-Lines file,
// one object per line. A partial write of one record cannot corrupt
// previously written records, and readers can tail the file by consuming
// complete lines only. One Appender per datamap output file; it is the
// single writer.
type Appender struct {
	mu   sync.Mutex
	file *os.File
}

func NewAppender(path string) (*Appender, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream file: %w", err)
	}
	return &Appender{file: file}, nil
}

func (a *Appender) Append(m message.Enriched) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Each record lands in one write call so a reader tailing the file
	// only ever sees whole lines plus at most one partial tail.
	if _, err := a.file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync stream file: %w", err)
	}

	return nil
}

func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.file.Close()
}
