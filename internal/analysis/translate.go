package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/abadojack/whatlanggo"

	"github.com/telefeed/backend/internal/llm"
)

// Translator converts source text to English.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// LLMTranslator identifies the source language locally and asks the
// generative backend for a plain translation. English input passes
// through untouched.
type LLMTranslator struct {
	completer Completer
}

func NewLLMTranslator(completer Completer) *LLMTranslator {
	return &LLMTranslator{completer: completer}
}

const translateSystemPrompt = `You are a professional translator. Translate the given Telegram post to English.
Maintain the original formatting. Preserve the tone of the post.
Return only the translated text, nothing else.`

func (t *LLMTranslator) Translate(ctx context.Context, text string) (string, error) {
	info := whatlanggo.Detect(text)
	if info.Lang == whatlanggo.Eng {
		return text, nil
	}

	userPrompt := text
	if info.IsReliable() {
		userPrompt = fmt.Sprintf("Source language: %s\n\n%s", info.Lang.String(), text)
	}

	resp, err := t.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: translateSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0.1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslation, err)
	}

	translation := strings.TrimSpace(resp.Content)
	if translation == "" {
		return "", fmt.Errorf("%w: empty result", ErrTranslation)
	}

	return translation, nil
}
