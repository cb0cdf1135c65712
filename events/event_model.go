package events

import (
	"context"
	"encoding/json"
	"fmt"
)

/* --------- OneBot V11 事件模型 start --------- */

// Event 为上报事件的通用信封，保留原始报文以便按post_type二次解码
type Event struct {
	Time          int64  `json:"time"`
	SelfID        int64  `json:"self_id"`
	PostType      string `json:"post_type"`       // message / notice / request / meta_event
	MessageType   string `json:"message_type"`    // group / private
	MetaEventType string `json:"meta_event_type"` // heartbeat / lifecycle
	NoticeType    string `json:"notice_type"`

	Raw json.RawMessage `json:"-"`
	API API             `json:"-"` // 由接收该事件的适配器填入
}

// Decode 解码事件信封
func Decode(raw []byte, api API) (Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	ev.Raw = append(json.RawMessage(nil), raw...)
	ev.API = api
	return ev, nil
}

type Sender struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
	Role     string `json:"role"` // owner / admin / member
}

// GroupMessageEvent 群消息事件
type GroupMessageEvent struct {
	Time       int64   `json:"time"`
	SelfID     int64   `json:"self_id"`
	SubType    string  `json:"sub_type"`
	MessageID  int64   `json:"message_id"`
	GroupID    int64   `json:"group_id"`
	UserID     int64   `json:"user_id"`
	Message    Message `json:"message"`
	RawMessage string  `json:"raw_message"`
	Sender     Sender  `json:"sender"`

	api API
}

// AsGroupMessage 将信封转换为群消息事件
func (ev Event) AsGroupMessage() (*GroupMessageEvent, error) {
	if ev.PostType != "message" || ev.MessageType != "group" {
		return nil, fmt.Errorf("not a group message event: %s/%s", ev.PostType, ev.MessageType)
	}
	var e GroupMessageEvent
	if err := json.Unmarshal(ev.Raw, &e); err != nil {
		return nil, fmt.Errorf("decode group message: %w", err)
	}
	e.api = ev.API
	return &e, nil
}

// GetContent 获取消息纯文本内容，is_treat为true时去除@机器人与开头的/
func (e *GroupMessageEvent) GetContent(is_treat bool) string {
	content := e.Message.ExtractPlainText()
	if is_treat {
		content = TreatContent(content)
	}
	return content
}

// IsAtMe 检查消息是否@了机器人自身
func (e *GroupMessageEvent) IsAtMe() bool {
	return e.Message.HasAt(e.SelfID)
}

// API 返回绑定在事件上的动作接口（来自接收事件的适配器）
func (e *GroupMessageEvent) API() API {
	return e.api
}

// BindAPI 绑定动作接口，一般仅适配器与测试使用
func (e *GroupMessageEvent) BindAPI(api API) {
	e.api = api
}

// Reply 在相应的群回复消息 i.e. wrapper for API.SendGroupMsg
func (e *GroupMessageEvent) Reply(ctx context.Context, msg Message) (int64, error) {
	if e.api == nil {
		return 0, fmt.Errorf("event has no bound api")
	}
	return e.api.SendGroupMsg(ctx, e.GroupID, msg)
}

// ReplyText 以纯文本在相应的群回复消息
func (e *GroupMessageEvent) ReplyText(ctx context.Context, text string) (int64, error) {
	return e.Reply(ctx, NewMessage(text))
}

/* --------- OneBot V11 事件模型 end --------- */

/* --------- 动作接口 start --------- */

type GroupMember struct {
	GroupID  int64  `json:"group_id"`
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
	Card     string `json:"card"`
	Role     string `json:"role"`
}

func (m *GroupMember) IsAdmin() bool {
	return m.Role == "admin" || m.Role == "owner"
}

// API 为适配器提供的OneBot动作子集，事件处理器通过事件上绑定的此接口回复消息
type API interface {
	SendGroupMsg(ctx context.Context, group_id int64, msg Message) (int64, error)
	GetGroupMemberInfo(ctx context.Context, group_id, user_id int64) (*GroupMember, error)
	DeleteMsg(ctx context.Context, message_id int64) error
}

/* --------- 动作接口 end --------- */

/* --------- 监听器类型 start --------- */

type BotListenerGroupMessage func(data *GroupMessageEvent)

/* --------- 监听器类型 end --------- */
