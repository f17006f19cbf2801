package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/apt-crowd/discourse/internal/dto"
	"github.com/apt-crowd/discourse/internal/observability"
)

const trackingSendBufferSize = 8

// TrackingChannel returns the per-user pub/sub address every session of that
// user subscribes to.
func TrackingChannel(userID uint) string {
	return fmt.Sprintf("user-tracking-state/%d", userID)
}

// TrackingConnectionOptions wraps metadata extracted during the HTTP upgrade.
type TrackingConnectionOptions struct {
	UserID        uint
	CorrelationID string
	Context       context.Context
}

// TrackingService fans read-state updates out to a user's concurrently open
// sessions. Local sessions are reached through an in-process hub; Redis
// pub/sub and NATS carry the event to sessions held by other nodes. Delivery
// is at-least-once and best-effort: a session that misses an update observes
// the correct state on its next full read.
type TrackingService interface {
	TrackingPublisher
	Subscribe(userID uint) (<-chan dto.TrackingStateUpdate, func())
	ServeConnection(conn *websocket.Conn, opts TrackingConnectionOptions)
	Start(ctx context.Context)
}

type trackingService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	hub          *trackingHub
	nodeID       string
}

type trackingEvent struct {
	Source  string                  `json:"source"`
	Channel string                  `json:"channel"`
	Update  dto.TrackingStateUpdate `json:"update"`
	SentAt  time.Time               `json:"sent_at"`
}

// trackingHub keeps track of active per-user subscriptions.
type trackingHub struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.TrackingStateUpdate]struct{}
	log         zerolog.Logger
}

// NewTrackingService creates the tracking fan-out service. Redis and NATS
// are optional; with neither configured, fan-out stays node-local.
func NewTrackingService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) TrackingService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":tracking"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".tracking"
	}

	return &trackingService{
		redis:        redisClient,
		redisChannel: stream,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "tracking_service").Logger(),
		hub: &trackingHub{
			subscribers: make(map[uint]map[chan dto.TrackingStateUpdate]struct{}),
			log:         logger.With().Str("component", "tracking_hub").Logger(),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *trackingService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Publish delivers the update to local sessions and forwards it to the other
// nodes. It never blocks on a slow session and never fails the caller.
func (s *trackingService) Publish(ctx context.Context, update dto.TrackingStateUpdate) {
	s.hub.broadcast(update)
	observability.TrackingBroadcasts().Inc()

	event := trackingEvent{
		Source:  s.nodeID,
		Channel: TrackingChannel(update.UserID),
		Update:  update,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal tracking event")
		return
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish tracking event to redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish tracking event to nats")
		}
	}
}

// Subscribe registers an in-process subscription for the user's tracking
// channel. The returned cancel func must be called when the session ends.
func (s *trackingService) Subscribe(userID uint) (<-chan dto.TrackingStateUpdate, func()) {
	return s.hub.subscribe(userID)
}

func (s *trackingService) ServeConnection(conn *websocket.Conn, opts TrackingConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	updates, cancel := s.Subscribe(opts.UserID)
	defer cancel()

	observability.TrackingConnections().Inc()
	s.logger.Debug().Uint("user_id", opts.UserID).Str("correlation_id", opts.CorrelationID).Msg("tracking session connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// Sessions only listen; reading drains pings and detects the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(update); err != nil {
				s.logger.Debug().Err(err).Msg("tracking write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				s.logger.Debug().Err(err).Msg("tracking ping failed")
				return
			}
		case <-closed:
			return
		case <-baseCtx.Done():
			return
		}
	}
}

func (s *trackingService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("tracking redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *trackingService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "chat-tracking", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats tracking subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain tracking nats subscription")
		}
	}()
}

func (s *trackingService) handleEvent(data []byte) {
	var event trackingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid tracking event")
		return
	}

	if event.Source == s.nodeID {
		return
	}

	s.hub.broadcast(event.Update)
}

func (h *trackingHub) subscribe(userID uint) (<-chan dto.TrackingStateUpdate, func()) {
	ch := make(chan dto.TrackingStateUpdate, trackingSendBufferSize)

	h.mu.Lock()
	if _, exists := h.subscribers[userID]; !exists {
		h.subscribers[userID] = make(map[chan dto.TrackingStateUpdate]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[userID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(h.subscribers, userID)
				}
			}
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

func (h *trackingHub) broadcast(update dto.TrackingStateUpdate) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[update.UserID] {
		select {
		case ch <- update:
		default:
			h.log.Warn().Uint("user_id", update.UserID).Msg("dropping tracking update for slow session")
		}
	}
}
