// Package maillog persists a delivery log for every send attempt so that
// operators can audit what was sent, to whom, and through which provider.
package maillog

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Delivery outcome recorded with each entry.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

const defaultListLimit = 50

// Entry is one delivery log record.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Provider  string    `json:"provider"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	MessageID string    `json:"messageId,omitempty"`
	ThreadID  string    `json:"threadId,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Filter narrows a List call. Zero values mean no constraint.
type Filter struct {
	Recipient string
	Provider  string
	Status    string
	Since     time.Time
	Limit     int
	Offset    int
}

// Store reads and writes delivery log entries in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Record inserts a delivery log entry. A zero ID and CreatedAt are filled in.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO mail_log (id, provider, recipient, subject, message_id, thread_id, status, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.Provider, entry.Recipient, entry.Subject,
		entry.MessageID, entry.ThreadID, entry.Status, entry.Error, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record delivery log entry: %w", err)
	}
	return nil
}

// List returns entries matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query, args := listQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list delivery log entries: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.Provider, &e.Recipient, &e.Subject,
			&e.MessageID, &e.ThreadID, &e.Status, &e.Error, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan delivery log entries: %w", err)
	}
	return entries, nil
}

// listQuery builds the SELECT for the given filter with positional args.
func listQuery(filter Filter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, provider, recipient, subject, message_id, thread_id, status, error, created_at FROM mail_log`)

	var (
		conds []string
		args  []any
	)
	addCond := func(column, value string) {
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}

	if filter.Recipient != "" {
		addCond("recipient", filter.Recipient)
	}
	if filter.Provider != "" {
		addCond("provider", filter.Provider)
	}
	if filter.Status != "" {
		addCond("status", filter.Status)
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		conds = append(conds, "created_at >= $"+strconv.Itoa(len(args)))
	}

	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	sb.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	sb.WriteString(" LIMIT $" + strconv.Itoa(len(args)))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}

	return sb.String(), args
}
