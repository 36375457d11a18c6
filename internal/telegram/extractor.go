// Package telegram turns raw channel exports and public preview pages
// into messages.
package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/telefeed/backend/internal/message"
)

// ErrParse marks a message whose text field matches neither known export
// shape. Surfaced rather than swallowed so a format drift in the export
// is visible.
var ErrParse = errors.New("unrecognized message text format")

const exportDateLayout = "2006-01-02T15:04:05"

type export struct {
	Messages []exportMessage `json:"messages"`
}

type exportMessage struct {
	ID        int64           `json:"id"`
	Date      string          `json:"date"`
	Text      json.RawMessage `json:"text"`
	Photo     *string         `json:"photo"`
	Thumbnail *string         `json:"thumbnail"`
	File      *string         `json:"file"`
}

type textEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ExtractMessages parses a Telegram Desktop result.json export into raw
// messages, normalizing dates to the given location.
func ExtractMessages(data []byte, account string, loc *time.Location) ([]message.Raw, error) {
	var ex export
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}

	msgs := make([]message.Raw, 0, len(ex.Messages))
	for _, m := range ex.Messages {
		raw, err := extractMessage(m, account, loc)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", m.ID, err)
		}
		msgs = append(msgs, raw)
	}

	return msgs, nil
}

func extractMessage(m exportMessage, account string, loc *time.Location) (message.Raw, error) {
	date, err := time.ParseInLocation(exportDateLayout, m.Date, loc)
	if err != nil {
		return message.Raw{}, fmt.Errorf("bad date %q: %w", m.Date, err)
	}

	text, err := extractText(m.Text)
	if err != nil {
		return message.Raw{}, err
	}

	return message.Raw{
		Account:  account,
		ID:       m.ID,
		Date:     date.Format(message.DateLayout),
		Text:     text,
		HasPhoto: m.Photo != nil || m.Thumbnail != nil,
		HasVideo: m.File != nil,
	}, nil
}

// extractText handles the export's two text shapes: a plain string, or
// an array mixing strings and {type, text} entity objects. Anything
// else is ErrParse.
func extractText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain, nil
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("%w: %s", ErrParse, truncate(string(raw), 80))
	}

	var text string
	for _, part := range parts {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			text += s
			continue
		}
		var entity textEntity
		if err := json.Unmarshal(part, &entity); err == nil {
			text += entity.Text
			continue
		}
		return "", fmt.Errorf("%w: %s", ErrParse, truncate(string(part), 80))
	}

	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
