package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/collection"
	"github.com/telefeed/backend/internal/message"
	"github.com/telefeed/backend/internal/similarity"
	"github.com/telefeed/backend/pkg/logger"
)

type SimilarHandler struct {
	service *similarity.Service
	coll    *collection.Collection
}

func NewSimilarHandler(service *similarity.Service, coll *collection.Collection) *SimilarHandler {
	return &SimilarHandler{
		service: service,
		coll:    coll,
	}
}

// HandleSimilar returns the stored messages most similar to a reference
// text, closest first.
func (h *SimilarHandler) HandleSimilar(c *fiber.Ctx) error {
	var req struct {
		Text string `json:"text"`
		TopK int    `json:"top_k"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	rows, err := h.service.FindSimilar(c.Context(), req.Text, req.TopK)
	if err != nil {
		if errors.Is(err, similarity.ErrEmptyReference) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": similarity.ErrEmptyReference.Error(),
			})
		}
		logger.Error("Failed to find similar messages", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to find similar messages",
		})
	}

	results := make([]fiber.Map, 0, len(rows))
	for _, row := range rows {
		msg, err := h.coll.Get(row)
		if err != nil {
			logger.Warn("Search returned unknown row", zap.Int("row", row))
			continue
		}
		results = append(results, messageView(row, msg))
	}

	return c.JSON(fiber.Map{
		"results": results,
	})
}

func messageView(row int, msg message.Enriched) fiber.Map {
	view := fiber.Map{
		"row":       row,
		"account":   msg.Account,
		"id":        msg.ID,
		"date":      msg.Date,
		"text":      msg.Text,
		"has_photo": msg.HasPhoto,
		"has_video": msg.HasVideo,
	}
	if msg.Analysis != nil {
		view["text_english"] = msg.Analysis.TextEnglish
		view["geolocs"] = msg.Analysis.Geolocs
		view["coordinates"] = msg.Analysis.Coordinates
		view["sentiment"] = msg.Analysis.Sentiment
		view["dominant_sentiment"] = msg.Analysis.Sentiment.Dominant()
	}
	return view
}
