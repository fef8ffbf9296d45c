package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"conversation-index/internal/models"
	"conversation-index/internal/roomid"
)

const latestMessageFetchTimeout = 5 * time.Second

// RoomRepo is a sqlx implementation of RoomStore.
type RoomRepo struct {
	db       *sqlx.DB
	notifier *Notifier
}

// NewRoomRepo constructs a RoomRepo.
func NewRoomRepo(db *sqlx.DB, notifier *Notifier) *RoomRepo {
	return &RoomRepo{db: db, notifier: notifier}
}

type roomRow struct {
	ID        string    `db:"id"`
	User1ID   string    `db:"user1_id"`
	User2ID   string    `db:"user2_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (row roomRow) toModel() models.Room {
	return models.Room{
		ID:           row.ID,
		Participants: []string{row.User1ID, row.User2ID},
		CreatedAt:    row.CreatedAt,
	}
}

type roomWithLatestRow struct {
	roomRow
	MsgID        *string    `db:"msg_id"`
	MsgSenderID  *string    `db:"msg_sender_id"`
	MsgSender    *string    `db:"msg_sender_name"`
	MsgText      *string    `db:"msg_text"`
	MsgCreatedAt *time.Time `db:"msg_created_at"`
}

func (row roomWithLatestRow) toSnapshot() models.RoomSnapshot {
	snap := models.RoomSnapshot{Room: row.toModel()}
	if row.MsgID != nil {
		snap.LatestMessage = &models.Message{
			ID:         *row.MsgID,
			RoomID:     row.ID,
			SenderID:   *row.MsgSenderID,
			SenderName: *row.MsgSender,
			Text:       *row.MsgText,
			CreatedAt:  *row.MsgCreatedAt,
		}
	}
	return snap
}

// GetRoomsForUser returns the user's rooms, each joined with the newest
// message in its log, in one query.
func (r *RoomRepo) GetRoomsForUser(ctx context.Context, userID string) ([]models.RoomSnapshot, error) {
	query := `SELECT r.id, r.user1_id, r.user2_id, r.created_at,
            m.id AS msg_id, m.sender_id AS msg_sender_id, m.sender_name AS msg_sender_name,
            m.text AS msg_text, m.created_at AS msg_created_at
        FROM rooms r
        LEFT JOIN LATERAL (
            SELECT id, sender_id, sender_name, text, created_at
            FROM messages WHERE room_id = r.id
            ORDER BY created_at DESC LIMIT 1
        ) m ON TRUE
        WHERE r.user1_id=$1 OR r.user2_id=$1
        ORDER BY r.created_at ASC`

	var rows []roomWithLatestRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}

	snapshots := make([]models.RoomSnapshot, 0, len(rows))
	for _, row := range rows {
		snapshots = append(snapshots, row.toSnapshot())
	}
	return snapshots, nil
}

// GetRoom fetches a room by id.
func (r *RoomRepo) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	var row roomRow
	err := r.db.GetContext(ctx, &row, `SELECT id, user1_id, user2_id, created_at FROM rooms WHERE id=$1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return models.Room{}, err
	}
	return row.toModel(), nil
}

// EnsureRoom creates the room for the pair if absent and returns it either
// way. The identifier is derived from the sorted participant ids, so the
// argument order does not matter.
func (r *RoomRepo) EnsureRoom(ctx context.Context, userA, userB string) (models.Room, error) {
	id, err := roomid.Derive(userA, userB)
	if err != nil {
		return models.Room{}, err
	}
	participants, err := roomid.Participants(userA, userB)
	if err != nil {
		return models.Room{}, err
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO rooms (id, user1_id, user2_id) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
		id, participants[0], participants[1])
	if err != nil {
		return models.Room{}, err
	}
	return r.GetRoom(ctx, id)
}

// ListMessages returns the room's log ordered oldest first.
func (r *RoomRepo) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT id, room_id, sender_id, sender_name, text, created_at
        FROM messages WHERE room_id=$1 ORDER BY created_at ASC`, roomID)
	return msgs, err
}

// AppendMessage stores a message in the room's log.
func (r *RoomRepo) AppendMessage(ctx context.Context, roomID, senderID, senderName, text string) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (id, room_id, sender_id, sender_name, text)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, room_id, sender_id, sender_name, text, created_at`,
		uuid.NewString(), roomID, senderID, senderName, text).
		Scan(&msg.ID, &msg.RoomID, &msg.SenderID, &msg.SenderName, &msg.Text, &msg.CreatedAt)
	return msg, err
}

// LatestMessage returns the newest message in the room, or nil when the log
// is empty.
func (r *RoomRepo) LatestMessage(ctx context.Context, roomID string) (*models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT id, room_id, sender_id, sender_name, text, created_at
        FROM messages WHERE room_id=$1 ORDER BY created_at DESC LIMIT 1`, roomID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SubscribeRooms fires onChange whenever the user's room set changes.
func (r *RoomRepo) SubscribeRooms(userID string, onChange func()) (Subscription, error) {
	return r.notifier.SubscribeRoomChanges(userID, onChange), nil
}

// SubscribeLatestMessage refetches the head of the room's message stream on
// every message notification and hands it to onMessage.
func (r *RoomRepo) SubscribeLatestMessage(roomID string, onMessage func(*models.Message)) (Subscription, error) {
	sub := r.notifier.SubscribeMessageChanges(roomID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), latestMessageFetchTimeout)
		defer cancel()

		msg, err := r.LatestMessage(ctx, roomID)
		if err != nil {
			log.Printf("latest message fetch failed room=%s: %v", roomID, err)
			return
		}
		if msg != nil {
			onMessage(msg)
		}
	})
	return sub, nil
}

var _ RoomStore = (*RoomRepo)(nil)
