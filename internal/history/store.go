package history

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"StreamChat/internal/chat"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested history entry does not exist.
var ErrNotFound = errors.New("history: entry not found")

// Entry is one persisted chat exchange.
type Entry struct {
	ID                int64     `json:"id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	RequestID         string    `json:"request_id,omitempty"`
	Endpoint          string    `json:"endpoint_name"`
	Rating            int       `json:"rating"`
	CreatedAt         time.Time `json:"created_at"`
}

// Store persists chat exchanges to SQLite. All failures are the caller's to
// log and swallow; the store never participates in the chat response path.
type Store struct {
	db       *sql.DB
	endpoint string
	logger   *slog.Logger
}

// Open opens the database and creates the schema if needed.
func Open(path, endpoint string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTable := `
	CREATE TABLE IF NOT EXISTS chat_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_message TEXT NOT NULL,
		assistant_response TEXT NOT NULL,
		request_id TEXT,
		endpoint_name TEXT,
		rating INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create chat_history table: %w", err)
	}

	logger.Info("history store initialized", "path", path, "endpoint", endpoint)
	return &Store{db: db, endpoint: endpoint, logger: logger}, nil
}

// Save records one exchange. The assistant side is flattened to its joined
// visible text.
func (s *Store) Save(userText string, resp chat.AssistantResponse) error {
	var requestID sql.NullString
	if resp.RequestID != "" {
		requestID = sql.NullString{String: resp.RequestID, Valid: true}
	}

	_, err := s.db.Exec(
		"INSERT INTO chat_history (user_message, assistant_response, request_id, endpoint_name) VALUES (?, ?, ?, ?)",
		userText, resp.Text(), requestID, s.endpoint,
	)
	if err != nil {
		return fmt.Errorf("failed to save chat interaction: %w", err)
	}

	s.logger.Info("saved chat interaction", "request_id", resp.RequestID)
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	rows, err := s.db.Query(
		"SELECT id, user_message, assistant_response, request_id, endpoint_name, rating, created_at FROM chat_history ORDER BY created_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}
	return entries, nil
}

// Get fetches a single entry for read-only viewing.
func (s *Store) Get(id int64) (Entry, error) {
	row := s.db.QueryRow(
		"SELECT id, user_message, assistant_response, request_id, endpoint_name, rating, created_at FROM chat_history WHERE id = ?",
		id,
	)
	entry, err := scanEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	return entry, err
}

// Rate stores thumbs feedback for an entry: 1 for up, -1 for down, 0 to clear.
func (s *Store) Rate(id int64, rating int) error {
	res, err := s.db.Exec("UPDATE chat_history SET rating = ? WHERE id = ?", rating, id)
	if err != nil {
		return fmt.Errorf("failed to store rating: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntry(scan func(dest ...any) error) (Entry, error) {
	var entry Entry
	var requestID sql.NullString
	var endpoint sql.NullString
	if err := scan(&entry.ID, &entry.UserMessage, &entry.AssistantResponse, &requestID, &endpoint, &entry.Rating, &entry.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("failed to scan history entry: %w", err)
	}
	entry.RequestID = requestID.String
	entry.Endpoint = endpoint.String
	return entry, nil
}
