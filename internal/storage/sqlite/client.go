package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/telefeed/backend/internal/storage/models"
	"github.com/telefeed/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL,
		answer TEXT,
		passage_count INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		helpful INTEGER NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (query_id) REFERENCES query_history(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_query ON feedback(query_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	_, err := c.db.Exec(
		`INSERT INTO query_history (id, question, answer, passage_count, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Question,
		record.Answer,
		record.PassageCount,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}
	return nil
}

func (c *Client) GetQueryHistory(limit int) ([]models.QueryRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := c.db.Query(
		`SELECT id, question, answer, passage_count, latency_ms, created_at
		 FROM query_history ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var record models.QueryRecord
		var createdAt int64
		if err := rows.Scan(&record.ID, &record.Question, &record.Answer, &record.PassageCount, &record.LatencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan query record: %w", err)
		}
		record.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, record)
	}

	return records, rows.Err()
}

func (c *Client) InsertFeedback(feedback *models.Feedback) error {
	helpful := 0
	if feedback.Helpful {
		helpful = 1
	}

	_, err := c.db.Exec(
		`INSERT INTO feedback (query_id, helpful, comment, created_at) VALUES (?, ?, ?, ?)`,
		feedback.QueryID,
		helpful,
		feedback.Comment,
		feedback.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}
