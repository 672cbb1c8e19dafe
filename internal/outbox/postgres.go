package outbox

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-marketplace/internal/apperr"
	"github.com/ariefcatur/go-marketplace/internal/postgres"
)

type PGRepo struct{ DB postgres.DBTX }

func (r *PGRepo) Add(ctx context.Context, m Message) error {
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx, `
		INSERT INTO outbox(id, topic, msg_key, event_type, payload)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Topic, m.Key, m.EventType, string(m.Payload))
	if err != nil {
		return apperr.Storage(fmt.Errorf("insert outbox: %w", err))
	}
	return nil
}

func (r *PGRepo) Pending(ctx context.Context, limit int) ([]Message, error) {
	rows, err := postgres.Conn(ctx, r.DB).Query(ctx, `
		SELECT id::text, topic, msg_key, event_type, payload::text, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("select outbox: %w", err))
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m       Message
			payload string
		)
		if err := rows.Scan(&m.ID, &m.Topic, &m.Key, &m.EventType, &payload, &m.CreatedAt); err != nil {
			return nil, apperr.Storage(err)
		}
		m.Payload = []byte(payload)
		out = append(out, m)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *PGRepo) MarkPublished(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := postgres.Conn(ctx, r.DB).Exec(ctx,
		`UPDATE outbox SET published_at = now() WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return apperr.Storage(fmt.Errorf("mark outbox published: %w", err))
	}
	return nil
}
