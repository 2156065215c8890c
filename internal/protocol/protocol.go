// protocol.go

package protocol

import (
	"encoding/json"
)

// Message 消息信封，所有客户端与服务端消息统一使用该结构
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// 消息类型
const (
	// MsgJoin 加入对局请求
	MsgJoin = "join"
	// MsgMove 移动提议请求
	MsgMove = "move"
	// MsgAttack 射击提议请求
	MsgAttack = "attack"
	// MsgConfirm 确认待处理操作
	MsgConfirm = "confirm"
	// MsgCancel 取消待处理操作
	MsgCancel = "cancel"
	// MsgState 对局状态查询
	MsgState = "state"

	// MsgPreview 操作预览（服务端回复）
	MsgPreview = "preview"
	// MsgOutcome 操作结算结果（服务端回复）
	MsgOutcome = "outcome"
	// MsgSnapshot 对局状态快照（服务端回复）
	MsgSnapshot = "snapshot"
	// MsgEvent 战报推送（服务端广播）
	MsgEvent = "event"
	// MsgError 错误回复
	MsgError = "error"
)

// JoinRequest 加入对局请求
type JoinRequest struct {
	ChannelID string   `json:"channel_id"`
	Weapon    string   `json:"weapon,omitempty"`
	Perk      string   `json:"perk,omitempty"`
	Teams     []string `json:"teams,omitempty"` // 仅首个加入者建立对局时生效
}

// ActionRequest 移动/射击提议请求
type ActionRequest struct {
	ChannelID string `json:"channel_id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
}

// ResolveRequest 确认/取消待处理操作
type ResolveRequest struct {
	ChannelID string `json:"channel_id"`
	ActionID  string `json:"action_id"`
}

// StateRequest 对局状态查询
type StateRequest struct {
	ChannelID string `json:"channel_id"`
}

// ErrorResponse 错误回复
type ErrorResponse struct {
	Message string `json:"message"`
}

// EventNotice 战报推送
type EventNotice struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
}

// Encode 将负载封装为消息信封
func Encode(msgType string, payload interface{}) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return json.Marshal(Message{Type: msgType, Payload: raw})
}
