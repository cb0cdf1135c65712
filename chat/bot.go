package chat

import (
	"context"
	"strings"
	"time"

	config "github.com/akane-bot/akane/config"
	events "github.com/akane-bot/akane/events"
	logger "github.com/akane-bot/akane/logger"
)

// ChatBot 聊天机器人核心逻辑，组合AI客户端、上下文管理与群组管理
type ChatBot struct {
	cfg      *config.Config
	client   *Client
	contexts *ContextManager
	groups   *GroupManager
	human    *Humanizer
	log      logger.Logger

	sleep func(time.Duration) // 测试时替换
}

func NewChatBot(cfg *config.Config, client *Client, contexts *ContextManager, groups *GroupManager, human *Humanizer, log logger.Logger) *ChatBot {
	return &ChatBot{
		cfg:      cfg,
		client:   client,
		contexts: contexts,
		groups:   groups,
		human:    human,
		log:      log,
		sleep:    time.Sleep,
	}
}

// ShouldRespond 决定是否应该回复消息
func (b *ChatBot) ShouldRespond(text string, is_at bool, group_id, user_id int64, group_cfg *GroupConfig) bool {
	if !b.cfg.CheckMessageLength(text) {
		return false
	}
	base_rate := 0.0
	if group_cfg != nil {
		base_rate = group_cfg.RandomReplyRate
		// 群特定触发词命中则必定回复
		for _, keyword := range group_cfg.TriggerKeywords {
			if keyword != "" && strings.Contains(text, keyword) {
				return true
			}
		}
	}
	return b.human.ShouldReply(text, is_at, group_id, user_id, base_rate)
}

// ProcessMessage 处理消息，获取AI回复；被屏蔽或长度不符时返回空串
func (b *ChatBot) ProcessMessage(ctx context.Context, text string, group_id, user_id int64) (string, error) {
	if b.groups.IsUserBlocked(user_id, group_id) {
		b.log.Debugf("用户 %d 在群 %d 中被屏蔽\n", user_id, group_id)
		return "", nil
	}
	if !b.cfg.CheckMessageLength(text) {
		return "", nil
	}

	context_msgs := b.contexts.GetContext(group_id, user_id)
	messages := append(context_msgs, Message{Role: "user", Content: text})

	response, err := b.client.ChatCompletion(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	if response == "" {
		return "", nil
	}

	b.contexts.AddToContext(group_id, user_id,
		Message{Role: "user", Content: text},
		Message{Role: "assistant", Content: response},
	)
	// 更新对话状态，记录当前话题
	b.human.UpdateConversationState(group_id, user_id, response)

	return b.human.AddHumanTouch(response), nil
}

// FormatResponse 格式化回复消息，根据上下文消息数和@情况决定是否使用@回复
func (b *ChatBot) FormatResponse(text string, user_id int64, is_at bool, context_length int) events.Message {
	should_at := context_length > 10
	if is_at {
		// @了机器人，但上下文超过3条时才使用@回复
		should_at = context_length > 3
	}

	msg := events.Message{}
	if should_at {
		msg = msg.Append(events.At(user_id))
		msg = msg.Append(events.Text(" ")) // 添加空格，更自然
	}
	return msg.Append(events.Text(strings.TrimSpace(text)))
}

// HandleGroupMessage 群组消息主处理函数
func (b *ChatBot) HandleGroupMessage(data *events.GroupMessageEvent) {
	text := data.GetContent(false)
	is_at := data.IsAtMe()

	group_cfg := b.groups.GetGroupConfig(data.GroupID)
	if group_cfg == nil { // 群不在白名单内
		return
	}
	if !group_cfg.Enabled {
		return
	}

	if !b.ShouldRespond(text, is_at, data.GroupID, data.UserID, group_cfg) {
		return
	}

	context_length := len(b.contexts.GetContext(data.GroupID, data.UserID))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	response, err := b.ProcessMessage(ctx, text, data.GroupID, data.UserID)
	if err != nil {
		b.log.Error("处理群组消息出错: ", err)
		return
	}
	if response == "" {
		return
	}

	// 模拟人类打字时间后发送
	b.sleep(b.human.TypingDelay(response))
	if _, err := data.Reply(ctx, b.FormatResponse(response, data.UserID, is_at, context_length)); err != nil {
		b.log.Error("发送回复失败: ", err)
		return
	}

	// 偶尔模拟发送后纠正错别字
	if b.human.ShouldCorrectTypo() {
		if correction := b.human.MakeCorrection(response); correction != "" {
			b.sleep(b.human.CorrectionDelay())
			if _, err := data.ReplyText(ctx, correction); err != nil {
				b.log.Error("发送纠错消息失败: ", err)
			}
		}
	}
}
