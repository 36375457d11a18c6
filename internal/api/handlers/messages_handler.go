package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/telefeed/backend/internal/collection"
	"github.com/telefeed/backend/internal/storage/sqlite"
	"github.com/telefeed/backend/pkg/logger"
	"go.uber.org/zap"
)

const defaultPageSize = 50

type MessagesHandler struct {
	coll    *collection.Collection
	storage *sqlite.Client
}

func NewMessagesHandler(coll *collection.Collection, storage *sqlite.Client) *MessagesHandler {
	return &MessagesHandler{
		coll:    coll,
		storage: storage,
	}
}

// HandleList pages through the collection in row order.
func (h *MessagesHandler) HandleList(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", defaultPageSize)
	if offset < 0 || limit <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "offset must be >= 0 and limit > 0",
		})
	}

	total := h.coll.Len()
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	results := make([]fiber.Map, 0, end-offset)
	for row := offset; row < end; row++ {
		msg, err := h.coll.Get(row)
		if err != nil {
			continue
		}
		results = append(results, messageView(row, msg))
	}

	return c.JSON(fiber.Map{
		"total":    total,
		"offset":   offset,
		"messages": results,
	})
}

// HandleGet returns one message by its row position.
func (h *MessagesHandler) HandleGet(c *fiber.Ctx) error {
	row, err := strconv.Atoi(c.Params("row"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "row must be an integer",
		})
	}

	msg, err := h.coll.Get(row)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Message not found",
		})
	}

	return c.JSON(messageView(row, msg))
}

// HandleHistory returns recent answered questions.
func (h *MessagesHandler) HandleHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	records, err := h.storage.GetQueryHistory(limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load query history",
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
