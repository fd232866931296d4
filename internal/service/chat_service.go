package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"sunolegal/internal/auth"
	"sunolegal/internal/domain"
	"sunolegal/internal/metrics"
	"sunolegal/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FallbackMessage replaces any reply the remote backend failed to produce.
const FallbackMessage = "Sorry, I'm having trouble connecting right now. Please try again."

const maxTitleLength = 40

type ChatLimits struct {
	Messages int
	Window   time.Duration
}

// ChatService relays chat messages to the remote backend, or answers offline
// from the responder when no backend is configured.
type ChatService struct {
	backend   domain.AssistantBackend
	responder domain.Responder
	limiter   domain.RateLimiter
	limits    ChatLimits
	logger    *zerolog.Logger

	// offline transcripts keyed by user id then session id
	mu          sync.Mutex
	transcripts map[string]map[string][]models.ChatMessage
	now         func() time.Time
}

func NewChatService(
	backend domain.AssistantBackend,
	responder domain.Responder,
	limiter domain.RateLimiter,
	limits ChatLimits,
	logger *zerolog.Logger,
) *ChatService {
	if limits.Messages <= 0 {
		limits.Messages = models.RateLimitMessages
	}
	if limits.Window <= 0 {
		limits.Window = models.RateLimitWindow * time.Second
	}
	return &ChatService{
		backend:     backend,
		responder:   responder,
		limiter:     limiter,
		limits:      limits,
		logger:      logger,
		transcripts: make(map[string]map[string][]models.ChatMessage),
		now:         time.Now,
	}
}

func (s *ChatService) Send(ctx context.Context, sessionID, message string) (*models.ChatReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	userID := auth.UserID(ctx)
	if err := s.checkRateLimit(ctx, userID); err != nil {
		return nil, err
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if s.backend == nil {
		reply := s.responder.Reply(message)
		s.record(userID, sessionID, message, reply)
		metrics.IncChat("offline")
		return &models.ChatReply{SessionID: sessionID, Response: reply, Offline: true}, nil
	}

	reply, err := s.backend.SendMessage(ctx, message, sessionID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("session_id", sessionID).Msg("assistant backend failed")
		metrics.IncChat("fallback")
		return &models.ChatReply{SessionID: sessionID, Response: FallbackMessage, Fallback: true}, nil
	}
	metrics.IncChat("backend")
	return &models.ChatReply{SessionID: sessionID, Response: reply}, nil
}

func (s *ChatService) checkRateLimit(ctx context.Context, userID string) error {
	if s.limiter == nil || userID == "" {
		return nil
	}
	allowed, err := s.limiter.CheckRateLimit(ctx, "chat:"+userID, s.limits.Messages, s.limits.Window)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("chat rate limit check failed")
		return nil
	}
	if !allowed {
		metrics.IncChat("rate_limited")
		return domain.ErrRateLimited
	}
	return nil
}

func (s *ChatService) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}
	if s.backend != nil {
		history, err := s.backend.GetChatHistory(ctx, sessionID)
		if err != nil {
			return nil, s.backendUnavailable(ctx, err, "chat history unavailable")
		}
		return history, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.transcripts[auth.UserID(ctx)][sessionID]
	return append([]models.ChatMessage{}, msgs...), nil
}

// Sessions lists the user's chats, most recent first when offline.
func (s *ChatService) Sessions(ctx context.Context) ([]models.ChatSession, error) {
	if s.backend != nil {
		sessions, err := s.backend.GetUserChats(ctx)
		if err != nil {
			return nil, s.backendUnavailable(ctx, err, "chat sessions unavailable")
		}
		return sessions, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ChatSession, 0)
	for id, msgs := range s.transcripts[auth.UserID(ctx)] {
		if len(msgs) == 0 {
			continue
		}
		out = append(out, models.ChatSession{
			SessionID:     id,
			Title:         title(msgs[0].Content),
			LastMessageAt: msgs[len(msgs)-1].CreatedAt,
		})
	}
	sortSessions(out)
	return out, nil
}

func (s *ChatService) record(userID, sessionID, question, answer string) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	sessions, ok := s.transcripts[userID]
	if !ok {
		sessions = make(map[string][]models.ChatMessage)
		s.transcripts[userID] = sessions
	}
	sessions[sessionID] = append(sessions[sessionID],
		models.ChatMessage{SessionID: sessionID, Role: models.RoleUser, Content: question, CreatedAt: now},
		models.ChatMessage{SessionID: sessionID, Role: models.RoleAssistant, Content: answer, CreatedAt: now},
	)
}

func title(first string) string {
	r := []rune(first)
	if len(r) <= maxTitleLength {
		return first
	}
	return strings.TrimSpace(string(r[:maxTitleLength])) + "…"
}

func sortSessions(list []models.ChatSession) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].LastMessageAt.Equal(list[j].LastMessageAt) {
			return list[i].LastMessageAt.After(list[j].LastMessageAt)
		}
		return list[i].SessionID < list[j].SessionID
	})
}

// backendUnavailable logs a remote failure and hides it behind one user-facing error.
func (s *ChatService) backendUnavailable(ctx context.Context, err error, msg string) error {
	s.logger.Warn().Err(err).Str("user_id", auth.UserID(ctx)).Msg(msg)
	metrics.IncChat("fallback")
	return domain.ErrAssistantUnavailable
}
