package stream

import (
	"github.com/rs/zerolog/log"

	"spreadwatch/internal/application/port"
)

// Manager 统一管理所有推送型交易所连接的生命周期。
// 连接各自独立重连，Manager 只负责批量启动与批量关停。
type Manager struct {
	conns []*Conn
}

func NewManager() *Manager {
	return &Manager{}
}

// Register 为 handler 创建一条托管连接。必须在 ConnectAll 之前调用。
func (m *Manager) Register(h port.StreamHandler) *Conn {
	c := New(h, &WebsocketDialer{})
	m.conns = append(m.conns, c)
	return c
}

// ConnectAll 异步发起所有连接。单条连接失败不影响其他连接，
// 失败的连接会按自身的退避策略持续重试。
func (m *Manager) ConnectAll() {
	for _, c := range m.conns {
		c.Connect()
	}
	log.Info().Int("connections", len(m.conns)).Msg("stream connections started")
}

// ShutdownAll 终止所有连接，取消挂起的重连。不可逆。
func (m *Manager) ShutdownAll() {
	for _, c := range m.conns {
		c.Shutdown()
	}
	log.Info().Int("connections", len(m.conns)).Msg("stream connections shut down")
}

// Conns 返回托管的连接，诊断用。
func (m *Manager) Conns() []*Conn {
	out := make([]*Conn, len(m.conns))
	copy(out, m.conns)
	return out
}
