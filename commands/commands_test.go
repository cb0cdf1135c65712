package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	events "github.com/akane-bot/akane/events"
	logger "github.com/akane-bot/akane/logger"
)

func newEvent(text string, at_self bool) *events.GroupMessageEvent {
	msg := events.Message{}
	if at_self {
		msg = msg.Append(events.At(10001))
	}
	msg = msg.Append(events.Text(text))
	data := &events.GroupMessageEvent{
		SelfID:  10001,
		GroupID: 123,
		UserID:  456,
		Message: msg,
	}
	return data
}

func TestCheckCommandByKeyword(t *testing.T) {
	triggered := false
	cmd := OnCommand{
		Command:        []string{"/ping"},
		Listener:       func(data *events.GroupMessageEvent) { triggered = true },
		IsShortCircuit: true,
	}
	assert.True(t, cmd.CheckCommand(newEvent("/ping", false), logger.NewDefaultLogger("test")))
	assert.True(t, triggered)

	triggered = false
	assert.False(t, cmd.CheckCommand(newEvent("hello", false), logger.NewDefaultLogger("test")))
	assert.False(t, triggered)
}

func TestCheckCommandByRegex(t *testing.T) {
	triggered := false
	cmd := OnCommand{
		Regex:    `^/roll \d+$`,
		Listener: func(data *events.GroupMessageEvent) { triggered = true },
	}
	// 未短路时返回false但监听器已运行
	assert.False(t, cmd.CheckCommand(newEvent("/roll 100", false), logger.NewDefaultLogger("test")))
	assert.True(t, triggered)
}

func TestCheckCommandRequireAT(t *testing.T) {
	triggered := false
	cmd := OnCommand{
		Command:        []string{"/admin"},
		Listener:       func(data *events.GroupMessageEvent) { triggered = true },
		RequireAT:      true,
		IsShortCircuit: true,
	}
	assert.False(t, cmd.CheckCommand(newEvent("/admin", false), logger.NewDefaultLogger("test")))
	assert.False(t, triggered)
	assert.True(t, cmd.CheckCommand(newEvent("/admin", true), logger.NewDefaultLogger("test")))
	assert.True(t, triggered)
}

func TestCheckCommandRequireAdmin(t *testing.T) {
	api := &roleAPI{role: "member"}
	data := newEvent("/kick", false)
	data.BindAPI(api)

	triggered := false
	cmd := OnCommand{
		Command:        []string{"/kick"},
		Listener:       func(data *events.GroupMessageEvent) { triggered = true },
		RequireAdmin:   true,
		AdminErrorMsg:  "需要管理员权限",
		IsShortCircuit: true,
	}

	// 普通成员：回复错误消息并短路，监听器不运行
	assert.True(t, cmd.CheckCommand(data, logger.NewDefaultLogger("test")))
	assert.False(t, triggered)
	require.Len(t, api.sent, 1)
	assert.Equal(t, "需要管理员权限", api.sent[0].ExtractPlainText())

	// 管理员：监听器运行
	api.role = "admin"
	assert.True(t, cmd.CheckCommand(data, logger.NewDefaultLogger("test")))
	assert.True(t, triggered)
}

func TestCheckCommandListenerPanicRecovered(t *testing.T) {
	cmd := OnCommand{
		Command:        []string{"/boom"},
		Listener:       func(data *events.GroupMessageEvent) { panic("boom") },
		IsShortCircuit: true,
	}
	assert.NotPanics(t, func() {
		assert.True(t, cmd.CheckCommand(newEvent("/boom", false), logger.NewDefaultLogger("test")))
	})
}

func TestEquals(t *testing.T) {
	a := OnCommand{Command: []string{"/a", "/b"}}
	b := OnCommand{Command: []string{"/b", "/a"}}
	assert.True(t, a.Equals(b))

	c := OnCommand{Regex: `^/x$`}
	d := OnCommand{Regex: `^/x$`}
	assert.True(t, c.Equals(d))
	assert.False(t, a.Equals(c))
}

/* test helpers */

type roleAPI struct {
	role string
	sent []events.Message
}

func (f *roleAPI) SendGroupMsg(ctx context.Context, group_id int64, msg events.Message) (int64, error) {
	f.sent = append(f.sent, msg)
	return 1, nil
}

func (f *roleAPI) GetGroupMemberInfo(ctx context.Context, group_id, user_id int64) (*events.GroupMember, error) {
	return &events.GroupMember{GroupID: group_id, UserID: user_id, Role: f.role}, nil
}

func (f *roleAPI) DeleteMsg(ctx context.Context, message_id int64) error {
	return nil
}
