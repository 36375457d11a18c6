package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/rag"
	"github.com/telefeed/backend/pkg/logger"
)

type AnswerHandler struct {
	service *rag.Service
}

func NewAnswerHandler(service *rag.Service) *AnswerHandler {
	return &AnswerHandler{
		service: service,
	}
}

func (h *AnswerHandler) HandleAnswer(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
		TopK     int    `json:"top_k"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	answer, err := h.service.Answer(c.Context(), req.Question, req.TopK)
	if err != nil {
		logger.Error("Failed to answer question", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to answer question",
		})
	}

	return c.JSON(fiber.Map{
		"id":            answer.ID,
		"question":      answer.Question,
		"answer":        answer.Text,
		"passage_count": answer.PassageCount,
		"latency_ms":    answer.LatencyMS,
	})
}
