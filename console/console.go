package console

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	adapters "github.com/akane-bot/akane/adapters"
	config "github.com/akane-bot/akane/config"
	events "github.com/akane-bot/akane/events"
	lifecycle "github.com/akane-bot/akane/lifecycle"
	logger "github.com/akane-bot/akane/logger"
)

// 控制台调试适配器使用的虚拟群与虚拟用户
const (
	DebugGroupID int64 = 10000
	DebugUserID  int64 = 10001
)

// Adapter 从stdin读取输入并合成群消息事件，用于本地调试；
// 行首加 @ 可模拟@机器人，/sessions 查看资源状态，/exit 退出调试
type Adapter struct {
	sink    adapters.Sink
	log     logger.Logger
	self_id int64
	in      io.Reader
	next_id int64
}

func New(cfg *config.Config, sink adapters.Sink, log logger.Logger) (adapters.Adapter, error) {
	return &Adapter{sink: sink, log: log, self_id: cfg.Bot.QQ, in: os.Stdin}, nil
}

func (a *Adapter) Name() string { return "console" }

func (a *Adapter) Run(ctx context.Context) error {
	a.log.Info("进入控制台调试模式")
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case line == "/exit":
				a.log.Info("退出控制台调试模式")
				return nil
			case line == "/sessions":
				a.log.Info("资源状态: ", lifecycle.States())
			default:
				a.feed(line)
			}
		}
	}
}

// feed 将一行输入合成为群消息事件并送入处理管线
func (a *Adapter) feed(line string) {
	msg := events.Message{}
	if strings.HasPrefix(line, "@") {
		msg = msg.Append(events.At(a.self_id))
		line = strings.TrimSpace(strings.TrimPrefix(line, "@"))
	}
	msg = msg.Append(events.Text(line))

	payload := map[string]interface{}{
		"time":         time.Now().Unix(),
		"self_id":      a.self_id,
		"post_type":    "message",
		"message_type": "group",
		"sub_type":     "normal",
		"message_id":   atomic.AddInt64(&a.next_id, 1),
		"group_id":     DebugGroupID,
		"user_id":      DebugUserID,
		"message":      msg,
		"raw_message":  line,
		"sender": map[string]interface{}{
			"user_id":  DebugUserID,
			"nickname": "console",
			"role":     "owner",
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		a.log.Error("console marshal event error: ", err)
		return
	}
	ev, err := events.Decode(raw, a)
	if err != nil {
		a.log.Error("console decode event error: ", err)
		return
	}
	a.sink.Dispatch(ev)
}

/* 控制台下的动作接口实现，直接打印到日志 */

func (a *Adapter) SendGroupMsg(ctx context.Context, group_id int64, msg events.Message) (int64, error) {
	a.log.Infof("[console] bot> %v\n", msg.String())
	return atomic.AddInt64(&a.next_id, 1), nil
}

func (a *Adapter) GetGroupMemberInfo(ctx context.Context, group_id, user_id int64) (*events.GroupMember, error) {
	return &events.GroupMember{GroupID: group_id, UserID: user_id, Nickname: "console", Role: "owner"}, nil
}

func (a *Adapter) DeleteMsg(ctx context.Context, message_id int64) error {
	a.log.Infof("[console] recall message %v\n", message_id)
	return nil
}

func init() {
	adapters.RegisterAdapter("console", New)
}
