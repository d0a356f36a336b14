// Package realtime serves the presence websocket. An open socket is what makes a user a
// member of the presence channel; pings on the socket keep last-activity fresh.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/benvon/smartmatch/internal/logger"
	"github.com/benvon/smartmatch/internal/request"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Membership joins and leaves users on a real-time channel
type Membership interface {
	Join(ctx context.Context, channel, userID string) error
	Leave(ctx context.Context, channel, userID string) error
}

// ActivityToucher records that a user was active at a point in time
type ActivityToucher interface {
	Touch(ctx context.Context, userID string, at time.Time) error
}

// DefaultTouchInterval is the minimum spacing between activity writes for one socket
const DefaultTouchInterval = 30 * time.Second

type socketMessage struct {
	Type   string `json:"type"`
	Online bool   `json:"online,omitempty"`
	Error  string `json:"error,omitempty"`
}

// PresenceSocket is the websocket handler for presence pings.
type PresenceSocket struct {
	members       Membership
	activity      ActivityToucher
	channel       string
	origins       []string
	touchInterval time.Duration
	timeout       time.Duration
	now           func() time.Time
	log           *zap.Logger

	mu    sync.Mutex
	conns int
}

// NewPresenceSocket creates the handler. An empty origin list, or one containing "*",
// accepts any origin.
func NewPresenceSocket(members Membership, activity ActivityToucher, channel string, allowedOrigins []string, timeout time.Duration, log *zap.Logger) *PresenceSocket {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PresenceSocket{
		members:       members,
		activity:      activity,
		channel:       channel,
		origins:       allowedOrigins,
		touchInterval: DefaultTouchInterval,
		timeout:       timeout,
		now:           time.Now,
		log:           logger.OrNop(log),
	}
}

// Connections returns the number of open sockets served by this process
func (s *PresenceSocket) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (s *PresenceSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := request.IdentityFromContext(r)
	if !id.Authenticated() {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	if !s.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn("failed_to_accept_presence_socket", logger.UserID(id.UserID), zap.Error(err))
		return
	}
	defer func() {
		_ = ws.Close(websocket.StatusNormalClosure, "presence ended")
	}()

	if err := s.join(r.Context(), id.UserID); err != nil {
		s.log.Warn("failed_to_join_presence_channel", logger.UserID(id.UserID), zap.Error(err))
		_ = s.writeJSON(r.Context(), ws, socketMessage{Type: "error", Error: "presence_unavailable"})
		return
	}
	defer s.leave(id.UserID)

	_ = s.writeJSON(r.Context(), ws, socketMessage{Type: "joined", Online: true})
	s.readLoop(r.Context(), ws, id.UserID)
}

func (s *PresenceSocket) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	lastTouch := s.now()
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				s.log.Debug("presence_socket_closed_by_client", logger.UserID(userID))
			} else if ctx.Err() == nil {
				s.log.Debug("presence_socket_read_error", logger.UserID(userID), zap.Error(err))
			}
			return
		}

		var msg socketMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "ping" {
			continue
		}

		if now := s.now(); now.Sub(lastTouch) >= s.touchInterval {
			lastTouch = now
			s.touch(ctx, userID, now)
		}
		if err := s.writeJSON(ctx, ws, socketMessage{Type: "pong", Online: true}); err != nil {
			return
		}
	}
}

func (s *PresenceSocket) join(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.members.Join(ctx, s.channel, userID); err != nil {
		return err
	}
	s.mu.Lock()
	s.conns++
	s.mu.Unlock()
	s.touch(ctx, userID, s.now())
	return nil
}

// leave runs after the request context is gone, so it uses its own deadline.
func (s *PresenceSocket) leave(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.mu.Lock()
	s.conns--
	s.mu.Unlock()
	if err := s.members.Leave(ctx, s.channel, userID); err != nil {
		s.log.Warn("failed_to_leave_presence_channel", logger.UserID(userID), zap.Error(err))
	}
	// Last activity is the moment the socket closed; the grace window starts here.
	s.touch(ctx, userID, s.now())
}

func (s *PresenceSocket) touch(ctx context.Context, userID string, at time.Time) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Touch(ctx, userID, at); err != nil {
		s.log.Warn("failed_to_touch_activity", logger.UserID(userID), zap.Error(err))
	}
}

func (s *PresenceSocket) writeJSON(ctx context.Context, ws *websocket.Conn, msg socketMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}

func (s *PresenceSocket) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.origins) == 0 {
		return true
	}
	for _, allowed := range s.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	s.log.Warn("presence_socket_origin_rejected",
		zap.String("origin", logger.SanitizeString(origin, 256)),
	)
	return false
}
