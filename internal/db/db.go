package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            username TEXT NOT NULL,
            profile_picture_url TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS friend_edges (
            user_id TEXT NOT NULL,
            friend_id TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(user_id, friend_id)
        );`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
            sender_id TEXT NOT NULL,
            recipient_id TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(sender_id, recipient_id)
        );`,
		`CREATE TABLE IF NOT EXISTS rooms (
            id TEXT PRIMARY KEY,
            user1_id TEXT NOT NULL,
            user2_id TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE(user1_id, user2_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            sender_id TEXT NOT NULL,
            sender_name TEXT NOT NULL DEFAULT '',
            text TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_room_created_idx
            ON messages(room_id, created_at DESC);`,
		// Change feeds for the conversation index: mutations notify the
		// affected user ids, message inserts notify the room id.
		`CREATE OR REPLACE FUNCTION notify_friend_edges() RETURNS trigger AS $$
        BEGIN
            PERFORM pg_notify('friend_edges_changed', COALESCE(NEW.user_id, OLD.user_id));
            RETURN COALESCE(NEW, OLD);
        END;
        $$ LANGUAGE plpgsql;`,
		`DROP TRIGGER IF EXISTS friend_edges_notify ON friend_edges;`,
		`CREATE TRIGGER friend_edges_notify
            AFTER INSERT OR UPDATE OR DELETE ON friend_edges
            FOR EACH ROW EXECUTE FUNCTION notify_friend_edges();`,
		`CREATE OR REPLACE FUNCTION notify_rooms() RETURNS trigger AS $$
        BEGIN
            PERFORM pg_notify('rooms_changed', COALESCE(NEW.user1_id, OLD.user1_id));
            PERFORM pg_notify('rooms_changed', COALESCE(NEW.user2_id, OLD.user2_id));
            RETURN COALESCE(NEW, OLD);
        END;
        $$ LANGUAGE plpgsql;`,
		`DROP TRIGGER IF EXISTS rooms_notify ON rooms;`,
		`CREATE TRIGGER rooms_notify
            AFTER INSERT OR UPDATE OR DELETE ON rooms
            FOR EACH ROW EXECUTE FUNCTION notify_rooms();`,
		`CREATE OR REPLACE FUNCTION notify_room_messages() RETURNS trigger AS $$
        BEGIN
            PERFORM pg_notify('room_messages', NEW.room_id);
            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql;`,
		`DROP TRIGGER IF EXISTS messages_notify ON messages;`,
		`CREATE TRIGGER messages_notify
            AFTER INSERT ON messages
            FOR EACH ROW EXECUTE FUNCTION notify_room_messages();`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
