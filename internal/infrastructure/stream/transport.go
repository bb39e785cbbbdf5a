package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const readTimeout = 60 * time.Second

// Transport 底层连接抽象，便于在测试中替换真实 WebSocket。
type Transport interface {
	// ReadMessage 阻塞读取下一条消息。连接断开时返回错误。
	ReadMessage() ([]byte, error)
	WriteMessage(text string) error
	Close() error
}

// Dialer 建立 Transport 的工厂。
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// WebsocketDialer gorilla/websocket 实现
type WebsocketDialer struct{}

func (WebsocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	writeMu sync.Mutex // gorilla 要求单写者；心跳与订阅可能并发写
	conn    *websocket.Conn
}

func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, b, err := t.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	_ = t.conn.SetReadDeadline(time.Now().Add(readTimeout))
	return b, nil
}

func (t *wsTransport) WriteMessage(text string) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// CloseInfo 从读错误中提取关闭码与原因；非关闭帧错误返回 (0, "")。
func CloseInfo(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	return 0, ""
}
