package events

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
)

const writeTimeout = 5 * time.Second

type wsFrame struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// WebSocketPublisher streams progress events to a websocket endpoint, usually
// the dashboard gateway. Send failures are logged and the event dropped; the
// run never blocks on a slow subscriber.
type WebSocketPublisher struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	logger hclog.Logger
}

func NewWebSocketPublisher(logger hclog.Logger, url string) (*WebSocketPublisher, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &WebSocketPublisher{conn: conn, logger: logger}, nil
}

func (p *WebSocketPublisher) PublishStage(ev StageEvent) {
	p.send(wsFrame{Type: EventTypeStage, Payload: ev})
}

func (p *WebSocketPublisher) PublishFinding(ev FindingEvent) {
	p.send(wsFrame{Type: EventTypeFinding, Payload: ev})
}

func (p *WebSocketPublisher) send(frame wsFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := p.conn.WriteJSON(frame); err != nil {
		p.logger.Warn("dropping progress event", "type", frame.Type, "error", err)
	}
}

func (p *WebSocketPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	return p.conn.Close()
}
