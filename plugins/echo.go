package plugins

import (
	"context"
	"strings"
	"time"

	events "github.com/akane-bot/akane/events"
)

/* 框架自带的echo插件，通过配置中的builtin_plugins按名启用 */

func echoListener(data *events.GroupMessageEvent, bot *AbstractBot) {
	text := strings.TrimSpace(strings.TrimPrefix(data.GetContent(false), "/echo"))
	if text == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := data.ReplyText(ctx, text); err != nil {
		bot.Logger.Error("echo reply error: ", err)
	}
}

func init() {
	RegisterPlugin(
		"echo",
		&Plugin{
			IsBuiltin:   true,
			Description: "复读收到的内容",
			Usage:       "/echo 文本",
			OnCommand: []OnCommand{
				{
					Regex:          `^/echo(\s|$)`,
					Listener:       echoListener,
					IsShortCircuit: true,
				},
			},
		},
	)
}
