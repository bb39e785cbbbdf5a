package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
)

// 重连退避参数：1s 起步，每次翻倍，封顶 60s，连接成功后复位。
const (
	initialReconnectDelay = 1000 * time.Millisecond
	maxReconnectDelay     = 60_000 * time.Millisecond
	dialTimeout           = 5 * time.Second
)

// State 连接状态
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
	StateErrored
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateErrored:
		return "errored"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Conn 统一 WebSocket 客户端，负责连接、断线检测、重连与心跳。
// 每个推送连接一个实例。消息解析错误被限制在 handler 边界内，不影响连接。
type Conn struct {
	handler port.StreamHandler
	dialer  Dialer

	mu             sync.Mutex
	state          State
	transport      Transport
	reconnectDelay time.Duration
	reconnectTimer *time.Timer
	heartbeatStop  chan struct{}
	running        bool

	lastMessageMs atomic.Int64 // 诊断用，最后收到消息的时间
}

// New 创建受管连接。dialer 为 nil 时使用 gorilla/websocket。
func New(handler port.StreamHandler, dialer Dialer) *Conn {
	if dialer == nil {
		dialer = WebsocketDialer{}
	}
	return &Conn{
		handler:        handler,
		dialer:         dialer,
		state:          StateDisconnected,
		reconnectDelay: initialReconnectDelay,
		running:        true,
	}
}

// Connect 异步发起连接。失败时按当前退避延迟安排一次重连。
func (c *Conn) Connect() {
	c.mu.Lock()
	if !c.running || c.state == StateConnecting || c.state == StateConnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	go c.dial()
}

func (c *Conn) dial() {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	tr, err := c.dialer.Dial(ctx, c.handler.URL())
	cancel()

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		if tr != nil {
			_ = tr.Close()
		}
		return
	}
	if err != nil {
		c.state = StateErrored
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		log.Error().Str("source", c.handler.Name()).Err(err).Msg("ws connect failed")
		return
	}

	c.transport = tr
	c.state = StateConnected
	c.reconnectDelay = initialReconnectDelay
	c.startHeartbeatLocked()
	c.mu.Unlock()

	log.Info().Str("source", c.handler.Name()).Msg("ws connected")
	c.safeOnConnected()

	go c.readPump(tr)
}

func (c *Conn) readPump(tr Transport) {
	for {
		msg, err := tr.ReadMessage()
		if err != nil {
			c.onDisconnect(err)
			return
		}
		c.lastMessageMs.Store(time.Now().UnixMilli())
		c.safeOnMessage(msg)
	}
}

// onDisconnect 读循环退出时调用：停心跳、关闭传输，并安排唯一一次重连。
func (c *Conn) onDisconnect(err error) {
	c.mu.Lock()
	if c.state == StateShutdown {
		c.mu.Unlock()
		return
	}
	c.stopHeartbeatLocked()
	if c.transport != nil {
		_ = c.transport.Close()
		c.transport = nil
	}
	code, reason := CloseInfo(err)
	if code > 0 {
		c.state = StateClosed
	} else {
		c.state = StateErrored
	}
	delay := c.reconnectDelay
	c.scheduleReconnectLocked()
	c.mu.Unlock()

	c.safeOnClosed(code, reason, err)

	// 1000=正常关闭, 1006=异常关闭(如服务器超时断开)，均有自动重连
	log.Info().
		Str("source", c.handler.Name()).
		Int("code", code).
		Int64("reconnect_in_ms", delay.Milliseconds()).
		Msg("ws disconnected, reconnect scheduled")
}

// scheduleReconnectLocked 安排重连；每个连接同一时刻至多一个待触发的重连定时器。
// 调用方持有 c.mu。
func (c *Conn) scheduleReconnectLocked() {
	if !c.running || c.reconnectTimer != nil {
		return
	}
	c.reconnectTimer = time.AfterFunc(c.reconnectDelay, func() {
		c.mu.Lock()
		c.reconnectTimer = nil
		c.state = StateDisconnected
		running := c.running
		c.mu.Unlock()
		if running {
			c.Connect()
		}
	})
	c.reconnectDelay = nextBackoff(c.reconnectDelay)
}

func nextBackoff(d time.Duration) time.Duration {
	return min(d*2, maxReconnectDelay)
}

func (c *Conn) startHeartbeatLocked() {
	msg := c.handler.HeartbeatMessage()
	if msg == "" {
		return
	}
	interval := c.handler.HeartbeatInterval()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	stop := make(chan struct{})
	c.heartbeatStop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := c.Send(msg); err != nil {
					log.Debug().Str("source", c.handler.Name()).Err(err).Msg("heartbeat send failed")
				}
			}
		}
	}()
}

func (c *Conn) stopHeartbeatLocked() {
	if c.heartbeatStop != nil {
		close(c.heartbeatStop)
		c.heartbeatStop = nil
	}
}

// Send 向当前连接写入文本消息，未连接时返回错误。
func (c *Conn) Send(text string) error {
	c.mu.Lock()
	tr := c.transport
	open := c.state == StateConnected
	c.mu.Unlock()
	if !open || tr == nil {
		return errors.New("connection not open")
	}
	return tr.WriteMessage(text)
}

func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastMessageAgeMs 距上次收到消息的毫秒数，-1 表示从未收到。
func (c *Conn) LastMessageAgeMs() int64 {
	t := c.lastMessageMs.Load()
	if t == 0 {
		return -1
	}
	return time.Now().UnixMilli() - t
}

// Shutdown 终态：取消待触发的重连与心跳定时器并关闭传输，保证不再重连。
func (c *Conn) Shutdown() {
	c.mu.Lock()
	c.running = false
	c.state = StateShutdown
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	c.stopHeartbeatLocked()
	tr := c.transport
	c.transport = nil
	c.mu.Unlock()

	if tr != nil {
		_ = tr.Close()
	}
}

// handler 回调统一经过 recover：单条消息的解析问题不允许拖垮连接。

func (c *Conn) safeOnConnected() {
	defer c.recoverHook("on_connected")
	c.handler.OnConnected(c)
}

func (c *Conn) safeOnMessage(msg []byte) {
	defer c.recoverHook("on_message")
	c.handler.OnMessage(msg)
}

func (c *Conn) safeOnClosed(code int, reason string, err error) {
	defer c.recoverHook("on_closed")
	if code > 0 {
		c.handler.OnClosed(code, reason)
	} else {
		c.handler.OnError(err)
	}
}

func (c *Conn) recoverHook(hook string) {
	if r := recover(); r != nil {
		log.Error().Str("source", c.handler.Name()).Str("hook", hook).Any("panic", r).Msg("handler panic recovered")
	}
}

var _ port.Sender = (*Conn)(nil)
