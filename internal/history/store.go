package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status is the outcome of a recorded conversion.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Source names the surface that ran the conversion.
type Source string

const (
	SourceCLI  Source = "cli"
	SourceHTTP Source = "http"
	SourceMCP  Source = "mcp"
)

// Conversion is one history row.
type Conversion struct {
	ID           string        `json:"id"`
	CreatedAt    time.Time     `json:"created_at"`
	Source       Source        `json:"source"`
	SubtitleName string        `json:"subtitle_name,omitempty"`
	VideoPath    string        `json:"video_path"`
	AudioPath    string        `json:"audio_path,omitempty"`
	Status       Status        `json:"status"`
	Cues         int           `json:"cues"`
	Dropped      int           `json:"dropped"`
	RowErrors    int           `json:"row_errors"`
	Malformed    int           `json:"malformed_timestamps"`
	OutputBytes  int64         `json:"output_bytes"`
	Duration     time.Duration `json:"-"`
	ErrorMessage string        `json:"error,omitempty"`
}

// conversionJSON drops Conversion's methods so MarshalJSON can embed it.
type conversionJSON Conversion

// MarshalJSON reports Duration as whole milliseconds under duration_ms.
func (c Conversion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		conversionJSON
		DurationMS int64 `json:"duration_ms"`
	}{conversionJSON(c), c.Duration.Milliseconds()})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (c *Conversion) UnmarshalJSON(data []byte) error {
	aux := struct {
		*conversionJSON
		DurationMS int64 `json:"duration_ms"`
	}{conversionJSON: (*conversionJSON)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Duration = time.Duration(aux.DurationMS) * time.Millisecond
	return nil
}

// Summary aggregates the history table.
type Summary struct {
	Total     int       `json:"total"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Cues      int       `json:"cues"`
	LastAt    time.Time `json:"last_at,omitzero"`
}

// ErrNotFound is returned by Get for unknown identifiers.
var ErrNotFound = errors.New("conversion not found")

// Store manages conversion history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	defaultListLimit = 20
	// timeLayout is fixed width so created_at sorts correctly as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	columns    = "id, created_at, source, subtitle_name, video_path, audio_path, status, cues, dropped, row_errors, malformed_timestamps, output_bytes, duration_ms, error_message"
)

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts c, assigning an ID and timestamp when they are unset.
func (s *Store) Record(ctx context.Context, c *Conversion) error {
	if c == nil {
		return errors.New("conversion is nil")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.Status == "" {
		c.Status = StatusSucceeded
	}
	if c.Status == StatusSucceeded && strings.TrimSpace(c.VideoPath) == "" {
		return errors.New("succeeded conversion requires a video path")
	}
	if c.Source == "" {
		c.Source = SourceCLI
	}

	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO conversions (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID,
			c.CreatedAt.UTC().Format(timeLayout),
			string(c.Source),
			nullableString(c.SubtitleName),
			c.VideoPath,
			nullableString(c.AudioPath),
			string(c.Status),
			c.Cues,
			c.Dropped,
			c.RowErrors,
			c.Malformed,
			c.OutputBytes,
			c.Duration.Milliseconds(),
			nullableString(c.ErrorMessage),
		)
		if err != nil {
			return fmt.Errorf("insert conversion: %w", err)
		}
		return nil
	})
}

// Get fetches a conversion by identifier.
func (s *Store) Get(ctx context.Context, id string) (*Conversion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM conversions WHERE id = ?`, id)
	c, err := scanConversion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversion: %w", err)
	}
	return c, nil
}

// List returns up to limit conversions, newest first. A non-positive limit
// uses the default page size.
func (s *Store) List(ctx context.Context, limit int) ([]Conversion, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM conversions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversion: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return out, nil
}

// Summarize aggregates counts over the whole table.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var (
		summary   Summary
		succeeded sql.NullInt64
		cues      sql.NullInt64
		lastRaw   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1),
		        SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
		        SUM(cues),
		        MAX(created_at)
		 FROM conversions`, string(StatusSucceeded),
	).Scan(&summary.Total, &succeeded, &cues, &lastRaw)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize conversions: %w", err)
	}
	summary.Succeeded = int(succeeded.Int64)
	summary.Failed = summary.Total - summary.Succeeded
	summary.Cues = int(cues.Int64)
	summary.LastAt = parseTime(lastRaw)
	return summary, nil
}

// Prune deletes conversions created before cutoff and returns the count removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM conversions WHERE created_at < ?`,
			cutoff.UTC().Format(timeLayout))
		if err != nil {
			return fmt.Errorf("prune conversions: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func scanConversion(scanner interface{ Scan(dest ...any) error }) (*Conversion, error) {
	var (
		c            Conversion
		createdRaw   string
		source       string
		subtitleName sql.NullString
		audioPath    sql.NullString
		status       string
		durationMS   int64
		errorMessage sql.NullString
	)
	if err := scanner.Scan(
		&c.ID,
		&createdRaw,
		&source,
		&subtitleName,
		&c.VideoPath,
		&audioPath,
		&status,
		&c.Cues,
		&c.Dropped,
		&c.RowErrors,
		&c.Malformed,
		&c.OutputBytes,
		&durationMS,
		&errorMessage,
	); err != nil {
		return nil, err
	}
	c.CreatedAt = parseTime(sql.NullString{String: createdRaw, Valid: true})
	c.Source = Source(source)
	c.SubtitleName = subtitleName.String
	c.AudioPath = audioPath.String
	c.Status = Status(status)
	c.Duration = time.Duration(durationMS) * time.Millisecond
	c.ErrorMessage = errorMessage.String
	return &c, nil
}

func parseTime(raw sql.NullString) time.Time {
	if !raw.Valid || raw.String == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw.String)
	if err != nil {
		return time.Time{}
	}
	return ts
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
