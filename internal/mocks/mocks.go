package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"conversation-index/internal/models"
	"conversation-index/internal/repositories"
)

type FriendEdgeStoreMock struct {
	mock.Mock
}

func (m *FriendEdgeStoreMock) GetFriendIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

func (m *FriendEdgeStoreMock) AreFriends(ctx context.Context, userID, friendID string) (bool, error) {
	args := m.Called(ctx, userID, friendID)
	return args.Bool(0), args.Error(1)
}

func (m *FriendEdgeStoreMock) AddFriend(ctx context.Context, userID, friendID string) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

func (m *FriendEdgeStoreMock) RemoveFriend(ctx context.Context, userID, friendID string) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

func (m *FriendEdgeStoreMock) SubscribeFriends(userID string, onChange func()) (repositories.Subscription, error) {
	args := m.Called(userID, onChange)
	var sub repositories.Subscription
	if val := args.Get(0); val != nil {
		sub = val.(repositories.Subscription)
	}
	return sub, args.Error(1)
}

type FriendRequestStoreMock struct {
	mock.Mock
}

func (m *FriendRequestStoreMock) SendRequest(ctx context.Context, senderID, recipientID string) error {
	args := m.Called(ctx, senderID, recipientID)
	return args.Error(0)
}

func (m *FriendRequestStoreMock) ListIncomingRequests(ctx context.Context, recipientID string) ([]models.FriendRequest, error) {
	args := m.Called(ctx, recipientID)
	var requests []models.FriendRequest
	if val := args.Get(0); val != nil {
		requests = val.([]models.FriendRequest)
	}
	return requests, args.Error(1)
}

func (m *FriendRequestStoreMock) AcceptRequest(ctx context.Context, recipientID, senderID string) error {
	args := m.Called(ctx, recipientID, senderID)
	return args.Error(0)
}

func (m *FriendRequestStoreMock) DeclineRequest(ctx context.Context, recipientID, senderID string) error {
	args := m.Called(ctx, recipientID, senderID)
	return args.Error(0)
}

type RoomStoreMock struct {
	mock.Mock
}

func (m *RoomStoreMock) GetRoomsForUser(ctx context.Context, userID string) ([]models.RoomSnapshot, error) {
	args := m.Called(ctx, userID)
	var rooms []models.RoomSnapshot
	if val := args.Get(0); val != nil {
		rooms = val.([]models.RoomSnapshot)
	}
	return rooms, args.Error(1)
}

func (m *RoomStoreMock) GetRoom(ctx context.Context, roomID string) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomStoreMock) EnsureRoom(ctx context.Context, userID, otherUserID string) (models.Room, error) {
	args := m.Called(ctx, userID, otherUserID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomStoreMock) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *RoomStoreMock) AppendMessage(ctx context.Context, roomID, senderID, senderName, text string) (models.Message, error) {
	args := m.Called(ctx, roomID, senderID, senderName, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *RoomStoreMock) LatestMessage(ctx context.Context, roomID string) (*models.Message, error) {
	args := m.Called(ctx, roomID)
	var msg *models.Message
	if val := args.Get(0); val != nil {
		msg = val.(*models.Message)
	}
	return msg, args.Error(1)
}

func (m *RoomStoreMock) SubscribeRooms(userID string, onChange func()) (repositories.Subscription, error) {
	args := m.Called(userID, onChange)
	var sub repositories.Subscription
	if val := args.Get(0); val != nil {
		sub = val.(repositories.Subscription)
	}
	return sub, args.Error(1)
}

func (m *RoomStoreMock) SubscribeLatestMessage(roomID string, onMessage func(*models.Message)) (repositories.Subscription, error) {
	args := m.Called(roomID, onMessage)
	var sub repositories.Subscription
	if val := args.Get(0); val != nil {
		sub = val.(repositories.Subscription)
	}
	return sub, args.Error(1)
}

type UserProfileLookupMock struct {
	mock.Mock
}

func (m *UserProfileLookupMock) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	args := m.Called(ctx, userID)
	var profile models.Profile
	if val := args.Get(0); val != nil {
		profile = val.(models.Profile)
	}
	return profile, args.Error(1)
}

func (m *UserProfileLookupMock) BulkProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	args := m.Called(ctx, ids)
	var profiles map[string]models.Profile
	if val := args.Get(0); val != nil {
		profiles = val.(map[string]models.Profile)
	}
	return profiles, args.Error(1)
}

var _ repositories.FriendEdgeStore = (*FriendEdgeStoreMock)(nil)
var _ repositories.FriendRequestStore = (*FriendRequestStoreMock)(nil)
var _ repositories.RoomStore = (*RoomStoreMock)(nil)
var _ repositories.UserProfileLookup = (*UserProfileLookupMock)(nil)
