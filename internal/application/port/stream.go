package port

import "time"

// Sender 已建立的推送连接的发送端，交给 StreamHandler 的订阅逻辑使用。
type Sender interface {
	Send(text string) error
	IsOpen() bool
}

// StreamHandler 交易所 WebSocket 消息处理器。
// 每个推送型交易所实现一个，提供连接后的订阅逻辑与消息解析逻辑。
// OnMessage 内的解析错误必须自行消化，不允许影响连接本身。
type StreamHandler interface {
	Name() string
	URL() string

	// OnConnected 连接建立成功后调用，用于发送订阅消息。
	OnConnected(s Sender)

	// OnMessage 收到服务端消息时调用。
	OnMessage(msg []byte)

	// OnClosed 连接关闭时调用。
	OnClosed(code int, reason string)

	// OnError 发生错误时调用。
	OnError(err error)

	// HeartbeatMessage 应用层心跳内容，"" 表示不需要心跳。
	HeartbeatMessage() string

	// HeartbeatInterval 心跳间隔，仅当 HeartbeatMessage 非空时生效。
	HeartbeatInterval() time.Duration
}
