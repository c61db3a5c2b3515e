package sync

import (
	"encoding/json"
	"net/http"
	stdsync "sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kimhsiao/toodle/internal/logging"
	"github.com/kimhsiao/toodle/internal/models"
	"github.com/kimhsiao/toodle/internal/telemetry"
	"github.com/kimhsiao/toodle/internal/uuid"
)

const (
	writeWait = 10 * time.Second
	readWait  = 60 * time.Second

	maxMessageSize = 8 << 20
)

// userState is the server copy of one user's data. Items keep first-seen order.
type userState struct {
	order  []models.UUID
	items  map[models.UUID]models.Item
	labels map[string]models.Label
	names  []string
}

func newUserState() *userState {
	return &userState{
		items:  make(map[models.UUID]models.Item),
		labels: make(map[string]models.Label),
	}
}

// merge folds pushed items in with last-write-wins and returns how many
// pushed items replaced the server copy.
func (u *userState) merge(items []models.Item, labels []models.Label) int {
	accepted := 0
	for _, it := range items {
		cur, ok := u.items[it.UUID]
		if !ok {
			u.order = append(u.order, it.UUID)
		}
		if !ok || it.UpdatedAt > cur.UpdatedAt {
			it.ID = nil
			u.items[it.UUID] = it.Clone()
			accepted++
		}
	}
	for _, l := range labels {
		if _, ok := u.labels[l.Name]; !ok {
			u.names = append(u.names, l.Name)
		}
		u.labels[l.Name] = l
	}
	return accepted
}

func (u *userState) snapshot() ([]models.Item, []models.Label) {
	items := make([]models.Item, 0, len(u.order))
	for _, id := range u.order {
		items = append(items, u.items[id].Clone())
	}
	labels := make([]models.Label, 0, len(u.names))
	for _, name := range u.names {
		labels = append(labels, u.labels[name])
	}
	return items, labels
}

// Server is an in-memory sync server. Each connection may send any number
// of push messages; each is answered with the merged set for its user.
type Server struct {
	mu       stdsync.Mutex
	users    map[string]*userState
	upgrader websocket.Upgrader
	counters *telemetry.Counters
}

// NewServer creates an empty Server. checkOrigin may be nil to accept any origin.
func NewServer(checkOrigin func(r *http.Request) bool) *Server {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Server{
		users: make(map[string]*userState),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// SetCounters makes the server record push traffic under the sync.server.*
// event names. Call it before serving.
func (s *Server) SetCounters(c *telemetry.Counters) {
	s.counters = c
}

func (s *Server) count(name string, delta int) {
	if s.counters != nil {
		s.counters.RecordCount(name, int64(delta))
	}
}

// Users returns the number of users the server holds data for.
func (s *Server) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Snapshot returns the merged items and labels held for user.
func (s *Server) Snapshot(user string) ([]models.Item, []models.Label) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[user]
	if !ok {
		return nil, nil
	}
	return st.snapshot()
}

// ServeHTTP upgrades the request and serves sync messages until the peer closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Failed to upgrade sync connection", map[string]interface{}{
			"remote": r.RemoteAddr,
			"error":  err.Error(),
		})
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	for {
		conn.SetReadDeadline(time.Now().Add(readWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn("Sync connection read error", map[string]interface{}{
					"remote": r.RemoteAddr,
					"error":  err.Error(),
				})
			}
			return
		}

		reply := s.handle(data)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

func (s *Server) handle(data []byte) Envelope {
	reply := s.merge(data)
	if reply.Type == MessageFailed {
		s.count("sync.server.failures", 1)
	}
	return reply
}

func (s *Server) merge(data []byte) Envelope {
	var msg Envelope
	if err := json.Unmarshal(data, &msg); err != nil {
		return failed("", "invalid message format")
	}
	if msg.Type != MessagePush {
		return failed(msg.UserUUID, "unsupported message type "+msg.Type)
	}
	user, err := uuid.Normalize(msg.UserUUID)
	if err != nil {
		return failed(msg.UserUUID, "invalid user uuid")
	}

	s.mu.Lock()
	st, ok := s.users[user]
	if !ok {
		st = newUserState()
		s.users[user] = st
	}
	accepted := st.merge(msg.Items, msg.Labels)
	items, labels := st.snapshot()
	s.mu.Unlock()

	s.count("sync.server.pushes", 1)
	s.count("sync.server.accepted", accepted)

	logging.Debug("Merged sync push", map[string]interface{}{
		"user":     user,
		"pushed":   len(msg.Items),
		"accepted": accepted,
		"total":    len(items),
	})

	reply := newEnvelope(MessageMerged, user)
	reply.Items = items
	reply.Labels = labels
	return reply
}

func failed(user, reason string) Envelope {
	env := newEnvelope(MessageFailed, user)
	env.Error = reason
	return env
}
