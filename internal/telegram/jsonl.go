package telegram

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/pkg/logger"
	"go.uber.org/zap"
)

// ReadJSONL reads enriched messages from a JSON-lines file. A
// concurrent writer may be mid-append, so a malformed final line is
// skipped with a warning instead of failing the whole read.
func ReadJSONL(path string) ([]message.Enriched, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return DecodeJSONL(f, path)
}

// DecodeJSONL decodes JSON-lines from r. The name is used only for log
// and error context.
func DecodeJSONL(r io.Reader, name string) ([]message.Enriched, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var msgs []message.Enriched
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var msg message.Enriched
		if err := json.Unmarshal([]byte(text), &msg); err != nil {
			// Only the tail may legitimately be incomplete.
			logger.Warn("Skipping malformed JSONL line",
				zap.String("file", name),
				zap.Int("line", line),
				zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", name, err)
	}

	return msgs, nil
}
