package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	server "virtual-space/server"
)

const writeWait = 10 * time.Second

// clientMessage is the union of every client-to-server frame. Type selects
// which fields matter.
type clientMessage struct {
	Type       string            `json:"type"`
	Name       string            `json:"name,omitempty"`
	Avatar     int               `json:"avatar,omitempty"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	Direction  string            `json:"direction,omitempty"`
	Moving     bool              `json:"moving"`
	Text       string            `json:"text,omitempty"`
	ObjectData *server.ObjectRef `json:"objectData,omitempty"`
	SentAt     int64             `json:"sentAt,omitempty"`
}

// session pairs one websocket connection with a buffered outbox. The bus
// handlers only ever enqueue; a dedicated writer goroutine owns the
// connection's write side, so a slow client can never stall the hub's
// broadcast path. Overflowing the outbox closes the connection.
type session struct {
	id     string
	conn   *websocket.Conn
	outbox chan []byte
	logger *log.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newSession(id string, conn *websocket.Conn, buffer int, logger *log.Logger) *session {
	if buffer <= 0 {
		buffer = 64
	}
	return &session{
		id:     id,
		conn:   conn,
		outbox: make(chan []byte, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// enqueue hands a frame to the writer without blocking. A false return means
// the outbox is full and the session should be shed.
func (s *session) enqueue(data []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outbox <- data:
		return true
	default:
		return false
	}
}

func (s *session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.outbox:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Printf("write to %s failed: %v", s.id, err)
				s.close()
				return
			}
		}
	}
}

// close tears the connection down; the reader loop unblocks with an error and
// runs the disconnect path. Safe to call from any goroutine, repeatedly.
func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *session) closeWithPolicyViolation(reason string) {
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage, message)
	s.close()
}
