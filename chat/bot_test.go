package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/akane-bot/akane/config"
	events "github.com/akane-bot/akane/events"
	logger "github.com/akane-bot/akane/logger"
)

type replyAPI struct {
	sent []events.Message
}

func (f *replyAPI) SendGroupMsg(ctx context.Context, group_id int64, msg events.Message) (int64, error) {
	f.sent = append(f.sent, msg)
	return 1, nil
}

func (f *replyAPI) GetGroupMemberInfo(ctx context.Context, group_id, user_id int64) (*events.GroupMember, error) {
	return &events.GroupMember{Role: "member"}, nil
}

func (f *replyAPI) DeleteMsg(ctx context.Context, message_id int64) error {
	return nil
}

func newTestChatBot(t *testing.T, api_base string) *ChatBot {
	cfg := config.Default()
	cfg.Bot.QQ = 10001
	cfg.API.SiliconflowAPIBase = api_base
	cfg.API.SiliconflowAPIKey = "sk-test"

	gm, err := NewGroupManager(t.TempDir(), logger.NewDefaultLogger("test"))
	require.NoError(t, err)
	require.NoError(t, gm.LoadConfigs())

	b := NewChatBot(
		cfg,
		NewClient(cfg),
		NewContextManager(cfg.Message.MaxContextSize, 30*time.Minute),
		gm,
		NewHumanizer(1),
		logger.NewDefaultLogger("test"),
	)
	b.sleep = func(time.Duration) {} // 测试中不等待打字延迟
	return b
}

func groupEvent(text string, at_self bool) *events.GroupMessageEvent {
	msg := events.Message{}
	if at_self {
		msg = msg.Append(events.At(10001))
	}
	msg = msg.Append(events.Text(text))
	return &events.GroupMessageEvent{
		SelfID:  10001,
		GroupID: 123,
		UserID:  456,
		Message: msg,
	}
}

func TestShouldRespondTriggerKeyword(t *testing.T) {
	b := newTestChatBot(t, "http://unused")
	group_cfg := &GroupConfig{Enabled: true, TriggerKeywords: []string{"小助手"}}
	assert.True(t, b.ShouldRespond("小助手在吗", false, 123, 456, group_cfg))
}

func TestShouldRespondLengthGate(t *testing.T) {
	b := newTestChatBot(t, "http://unused")
	group_cfg := &GroupConfig{Enabled: true, RandomReplyRate: 1.0}
	assert.False(t, b.ShouldRespond("a", false, 123, 456, group_cfg)) // 低于最小长度
	assert.True(t, b.ShouldRespond("足够长的消息", false, 123, 456, group_cfg))
}

func TestProcessMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("我在呢")))
	}))
	defer server.Close()

	b := newTestChatBot(t, server.URL)
	response, err := b.ProcessMessage(context.Background(), "在吗", 123, 456)
	require.NoError(t, err)
	assert.NotEmpty(t, response) // 回复可能被加入语气词等人类特征

	// 上下文记录的是加工前的原始回复
	ctx := b.contexts.GetContext(123, 456)
	require.Len(t, ctx, 2)
	assert.Equal(t, "在吗", ctx[0].Content)
	assert.Equal(t, "我在呢", ctx[1].Content)
}

func TestProcessMessageBlockedUser(t *testing.T) {
	b := newTestChatBot(t, "http://unused")
	b.groups.mu.Lock()
	b.groups.global_blacklist = []int64{456}
	b.groups.mu.Unlock()

	response, err := b.ProcessMessage(context.Background(), "在吗", 123, 456)
	require.NoError(t, err)
	assert.Empty(t, response)
}

func TestFormatResponse(t *testing.T) {
	b := newTestChatBot(t, "http://unused")

	// 短对话不@
	msg := b.FormatResponse("好的", 456, false, 2)
	require.Len(t, msg, 1)
	assert.Equal(t, "text", msg[0].Type)

	// 长对话@对方以免对话混淆
	msg = b.FormatResponse("好的", 456, false, 11)
	require.Len(t, msg, 3)
	assert.Equal(t, "at", msg[0].Type)
	assert.True(t, msg.HasAt(456))

	// 被@时上下文超过3条即@回去
	msg = b.FormatResponse("好的", 456, true, 4)
	assert.True(t, msg.HasAt(456))
	msg = b.FormatResponse("好的", 456, true, 2)
	assert.False(t, msg.HasAt(456))
}

func TestHandleGroupMessageRepliesWhenAt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody("叫我干嘛")))
	}))
	defer server.Close()

	b := newTestChatBot(t, server.URL)
	api := &replyAPI{}

	// 被@时95%回复，重试数次保证触发
	for i := 0; i < 50 && len(api.sent) == 0; i++ {
		data := groupEvent("机器人你在吗", true)
		data.BindAPI(api)
		b.HandleGroupMessage(data)
	}
	require.NotEmpty(t, api.sent)
	assert.Contains(t, api.sent[0].ExtractPlainText(), "叫") // 回复可能被插入语气词
}

func TestHandleGroupMessageDisabledGroup(t *testing.T) {
	b := newTestChatBot(t, "http://unused")
	cfg := b.groups.GetGroupConfig(123)
	cfg.Enabled = false

	api := &replyAPI{}
	data := groupEvent("机器人你在吗", true)
	data.BindAPI(api)
	b.HandleGroupMessage(data)
	assert.Empty(t, api.sent)
}

func TestHandleGroupMessageWhitelistMiss(t *testing.T) {
	b := newTestChatBot(t, "http://unused")
	b.groups.mu.Lock()
	b.groups.whitelist_groups = []int64{999}
	b.groups.mu.Unlock()

	api := &replyAPI{}
	data := groupEvent("机器人你在吗", true)
	data.BindAPI(api)
	b.HandleGroupMessage(data)
	assert.Empty(t, api.sent)
}
