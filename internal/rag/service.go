// Package rag answers free-text questions by retrieving grounding
// passages from the message index and conditioning a generative model on
// them.
package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/llm"
	"github.com/telefeed/backend/internal/metrics"
	"github.com/telefeed/backend/internal/storage/models"
	"github.com/telefeed/backend/internal/vector"
	"github.com/telefeed/backend/pkg/logger"
)

// DefaultTopK is the number of grounding passages retrieved per
// question.
const DefaultTopK = 20

// PromptForQuestion is returned verbatim for a blank question; no
// retrieval or generation call is made in that case.
const PromptForQuestion = "Please enter a question."

// Retriever is the slice of the vector store the service needs.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]vector.Match, error)
}

// Completer generates the grounded answer.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

// History persists answered questions. Optional; nil disables it.
type History interface {
	InsertQueryRecord(record *models.QueryRecord) error
}

type Service struct {
	retriever Retriever
	completer Completer
	history   History
}

type Answer struct {
	ID           string
	Question     string
	Text         string
	PassageCount int
	LatencyMS    int
}

func NewService(retriever Retriever, completer Completer, history History) *Service {
	return &Service{
		retriever: retriever,
		completer: completer,
		history:   history,
	}
}

const answerSystemPrompt = `You are a knowledgeable and professional journalism bot specializing in fact-checking and international humanitarian law.
You answer questions using text from the reference passages included below. Be sure to respond in complete sentences, providing comprehensive and well-researched information.
Adopt a journalistic tone.

Since the data come from Telegram, be cautious, as it is from a social network and the information can be inaccurate.
Each passage corresponds to a Telegram post: the content, the account and the date of the post are mentioned in each passage.
Keep in mind that several hours may pass between an event and the publication of a message related to it.

If the passage is irrelevant to the answer, you may ignore it.`

// Document renders a message the way it is indexed in the answering
// collection. Account and date are part of the passage text so the
// model can attribute claims.
func Document(account, date, textEnglish string) string {
	return fmt.Sprintf("[Source: Telegram account %s] [Date: %s] %s", account, date, textEnglish)
}

// Answer retrieves the top-k passages for the question and generates a
// grounded response. Zero retrieved passages still attempt generation;
// the model is told it may ignore irrelevant passages.
func (s *Service) Answer(ctx context.Context, question string, k int) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return &Answer{Text: PromptForQuestion}, nil
	}
	if k <= 0 {
		k = DefaultTopK
	}

	start := time.Now()
	answerID := uuid.New().String()

	matches, err := s.retriever.Query(ctx, question, k)
	if err != nil {
		metrics.AnswerTotal.WithLabelValues("retrieval_error").Inc()
		return nil, fmt.Errorf("failed to retrieve passages: %w", err)
	}
	metrics.RetrievedPassages.Observe(float64(len(matches)))

	resp, err := s.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: answerSystemPrompt,
		UserPrompt:   buildAnswerPrompt(question, matches),
		Temperature:  0.1,
	})
	if err != nil {
		metrics.AnswerTotal.WithLabelValues("generation_error").Inc()
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	latency := int(time.Since(start).Milliseconds())
	metrics.AnswerTotal.WithLabelValues("ok").Inc()
	metrics.AnswerDuration.Observe(time.Since(start).Seconds())

	answer := &Answer{
		ID:           answerID,
		Question:     question,
		Text:         resp.Content,
		PassageCount: len(matches),
		LatencyMS:    latency,
	}

	if s.history != nil {
		record := &models.QueryRecord{
			ID:           answerID,
			Question:     question,
			Answer:       resp.Content,
			PassageCount: len(matches),
			LatencyMS:    latency,
			CreatedAt:    time.Now(),
		}
		if err := s.history.InsertQueryRecord(record); err != nil {
			logger.Warn("Failed to persist query record", zap.Error(err))
		}
	}

	logger.Info("Question answered",
		zap.String("answer_id", answerID),
		zap.Int("passages", len(matches)),
		zap.Int("latency_ms", latency),
	)

	return answer, nil
}

// buildAnswerPrompt embeds the question on one line and appends each
// passage with a distinct label so the generator can attribute and
// discount low-relevance passages.
func buildAnswerPrompt(question string, matches []vector.Match) string {
	var builder strings.Builder

	builder.WriteString("QUESTION: ")
	builder.WriteString(strings.ReplaceAll(question, "\n", " "))
	builder.WriteString("\n")

	for i, match := range matches {
		builder.WriteString(fmt.Sprintf("PASSAGE %d: %s\n", i+1, strings.ReplaceAll(match.Text, "\n", " ")))
	}

	return builder.String()
}
