package messages

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nikohapp/nikoh-api/pkg/metrics"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Chat errors
var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrNotParticipant = errors.New("user is not a participant of this match")
	ErrMatchNotActive = errors.New("match is not active")
	ErrEmptyMessage   = errors.New("message content is empty")
	ErrMessageTooLong = errors.New("message content exceeds 2000 characters")
)

const maxMessageLength = 2000

// MessageService defines the chat operations between matched users
type MessageService interface {
	Start() error
	Stop() error
	List(ctx context.Context, matchID, userID uuid.UUID, page, perPage int) ([]models.Message, int64, error)
	Send(ctx context.Context, matchID, senderID uuid.UUID, content string) (*models.Message, error)
	MarkAllRead(ctx context.Context, matchID, userID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	Previews(ctx context.Context, userID uuid.UUID) ([]models.ChatPreview, error)
}

// Service implements MessageService on GORM with WebSocket fan-out
type Service struct {
	logger    *zap.Logger
	db        *gorm.DB
	hub       *Hub
	sanitizer *bluemonday.Policy
}

// NewService creates a new message service
func NewService(logger *zap.Logger, db *gorm.DB, hub *Hub) (MessageService, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	return &Service{
		logger:    logger,
		db:        db,
		hub:       hub,
		sanitizer: bluemonday.StrictPolicy(),
	}, nil
}

// Start starts the message service
func (s *Service) Start() error {
	if s.hub != nil {
		go s.hub.Run()
	}
	s.logger.Info("Message service started")
	return nil
}

// Stop stops the message service
func (s *Service) Stop() error {
	s.logger.Info("Message service stopped")
	return nil
}

// participantMatch loads a match and verifies the user belongs to it
func (s *Service) participantMatch(ctx context.Context, matchID, userID uuid.UUID) (*models.Match, error) {
	var match models.Match
	if err := s.db.WithContext(ctx).First(&match, "id = ?", matchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match: %w", err)
	}
	if !match.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return &match, nil
}

// List returns the messages of a match in chronological order
func (s *Service) List(ctx context.Context, matchID, userID uuid.UUID, page, perPage int) ([]models.Message, int64, error) {
	if _, err := s.participantMatch(ctx, matchID, userID); err != nil {
		return nil, 0, err
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("match_id = ?", matchID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var msgs []models.Message
	if err := s.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&msgs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, total, nil
}

// Send stores a message in an active match and notifies the recipient
func (s *Service) Send(ctx context.Context, matchID, senderID uuid.UUID, content string) (*models.Message, error) {
	match, err := s.participantMatch(ctx, matchID, senderID)
	if err != nil {
		return nil, err
	}
	if match.Status != models.MatchStatusActive {
		return nil, ErrMatchNotActive
	}

	content = strings.TrimSpace(s.sanitizer.Sanitize(content))
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, ErrMessageTooLong
	}

	msg := &models.Message{
		ID:       uuid.New(),
		MatchID:  matchID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	metrics.MessagesSent.Inc()

	if s.hub != nil {
		s.hub.Notify(match.OtherUser(senderID), Notification{Type: "new_message", Payload: msg})
	}

	return msg, nil
}

// MarkAllRead marks every message sent to the user in a match as read
// and returns the number of messages updated
func (s *Service) MarkAllRead(ctx context.Context, matchID, userID uuid.UUID) (int64, error) {
	if _, err := s.participantMatch(ctx, matchID, userID); err != nil {
		return 0, err
	}

	now := time.Now()
	result := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("match_id = ? AND sender_id <> ? AND is_read = ?", matchID, userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// UnreadCount returns the total unread messages across all of the
// user's matches
func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN matches ON matches.id = messages.match_id").
		Where("(matches.user_a_id = ? OR matches.user_b_id = ?)", userID, userID).
		Where("messages.sender_id <> ? AND messages.is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// Previews returns one entry per active match with the other side's
// profile, the latest message and the unread count, newest first
func (s *Service) Previews(ctx context.Context, userID uuid.UUID) ([]models.ChatPreview, error) {
	var matchList []models.Match
	if err := s.db.WithContext(ctx).
		Where("(user_a_id = ? OR user_b_id = ?) AND status = ?", userID, userID, models.MatchStatusActive).
		Find(&matchList).Error; err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	previews := make([]models.ChatPreview, 0, len(matchList))
	for _, match := range matchList {
		otherID := match.OtherUser(userID)

		var profile models.Profile
		if err := s.db.WithContext(ctx).First(&profile, "user_id = ?", otherID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
		var owner models.User
		if err := s.db.WithContext(ctx).First(&owner, "id = ?", otherID).Error; err != nil {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}

		preview := models.ChatPreview{
			MatchID: match.ID,
			Profile: models.NewProfileBrief(&profile, &owner),
		}

		var last models.Message
		err := s.db.WithContext(ctx).
			Where("match_id = ?", match.ID).
			Order("created_at DESC").
			First(&last).Error
		if err == nil {
			preview.LastMessage = &last
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load last message: %w", err)
		}

		var unread int64
		if err := s.db.WithContext(ctx).Model(&models.Message{}).
			Where("match_id = ? AND sender_id <> ? AND is_read = ?", match.ID, userID, false).
			Count(&unread).Error; err != nil {
			return nil, fmt.Errorf("failed to count unread messages: %w", err)
		}
		preview.UnreadCount = unread

		previews = append(previews, preview)
	}

	// Newest conversation first; matches without messages sink to the end.
	sort.SliceStable(previews, func(i, j int) bool {
		a, b := previews[i].LastMessage, previews[j].LastMessage
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return previews, nil
}
