package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vibelink/vibelink/pkg/wire"
)

// cacheSchemaVersion guards the local cache layout. A cache written by an
// incompatible build is wiped and rebuilt, never parsed.
const cacheSchemaVersion = "1"

const (
	activeChatKey     = "activeChat"
	availabilityKey   = "availability"
	themeKey          = "theme"
	messagesKeyPrefix = "chat_messages_"
)

// Cache is the client's local key-value store: the resumable room, the
// conversation transcript, and a couple of UI preferences. Losing it only
// costs convenience.
type Cache struct {
	db *sql.DB
}

func OpenCache(ctx context.Context, db *sql.DB) (*Cache, error) {
	c := &Cache{db: db}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}

	version, ok, err := c.Get(ctx, "schema_version")
	if err != nil {
		return nil, err
	}
	if !ok || version != cacheSchemaVersion {
		// wipe, never try to migrate a stale cache
		if _, err := db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
			return nil, fmt.Errorf("reset cache: %w", err)
		}
		if err := c.Put(ctx, "schema_version", cacheSchemaVersion); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = @key`, sql.Named("key", key))
	var value string
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return value, true, nil
}

func (c *Cache) Put(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (@key, @value)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		sql.Named("key", key), sql.Named("value", value))
	if err != nil {
		return fmt.Errorf("cache put %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM kv WHERE key = @key`, sql.Named("key", key))
	if err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// SaveMessages persists the transcript for a room. Snapshots are stored
// already burned; an image must never outlive its countdown by hiding in
// the cache.
func (c *Cache) SaveMessages(ctx context.Context, roomID string, messages []Message) error {
	stored := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Pending {
			continue
		}
		if m.Type == wire.ImageMessage {
			m.Text = SnapshotExpiredText
			m.Expired = true
		}
		stored = append(stored, m)
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	return c.Put(ctx, messagesKeyPrefix+roomID, string(data))
}

func (c *Cache) LoadMessages(ctx context.Context, roomID string) ([]Message, error) {
	raw, ok, err := c.Get(ctx, messagesKeyPrefix+roomID)
	if err != nil || !ok {
		return nil, err
	}
	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return messages, nil
}

func (c *Cache) ClearMessages(ctx context.Context, roomID string) error {
	return c.Delete(ctx, messagesKeyPrefix+roomID)
}

func (c *Cache) SaveActiveChat(ctx context.Context, room wire.RoomData) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal active chat: %w", err)
	}
	return c.Put(ctx, activeChatKey, string(data))
}

// ActiveChat returns the room to resume into, if any.
func (c *Cache) ActiveChat(ctx context.Context) (*wire.RoomData, error) {
	raw, ok, err := c.Get(ctx, activeChatKey)
	if err != nil || !ok {
		return nil, err
	}
	var room wire.RoomData
	if err := json.Unmarshal([]byte(raw), &room); err != nil {
		return nil, fmt.Errorf("unmarshal active chat: %w", err)
	}
	return &room, nil
}

func (c *Cache) ClearActiveChat(ctx context.Context) error {
	return c.Delete(ctx, activeChatKey)
}

func (c *Cache) SaveAvailability(ctx context.Context, available bool) error {
	v := "0"
	if available {
		v = "1"
	}
	return c.Put(ctx, availabilityKey, v)
}

func (c *Cache) Availability(ctx context.Context) (bool, error) {
	v, _, err := c.Get(ctx, availabilityKey)
	return v == "1", err
}

func (c *Cache) SaveTheme(ctx context.Context, theme string) error {
	return c.Put(ctx, themeKey, theme)
}

func (c *Cache) Theme(ctx context.Context) (string, error) {
	v, _, err := c.Get(ctx, themeKey)
	return v, err
}
