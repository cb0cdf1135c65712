package plugins

import (
	"context"
	"regexp"
	"strings"
	"time"

	events "github.com/akane-bot/akane/events"
	utils "github.com/akane-bot/akane/utils"
)

/* Plugins version of commands.go */
type plugin_msg_listener func(data *events.GroupMessageEvent, bot *AbstractBot)

type Preprocessor plugin_msg_listener

type OnCommand struct {
	Command        []string       // 可触发事件的指令列表，与正则 Regex 互斥，优先使用此项
	Regex          string         // 可触发指令的正则表达式，与指令表 Command 互斥
	regex          *regexp.Regexp // internal use
	Listener       plugin_msg_listener
	RequireAT      bool   // 是否要求必须@机器人才能触发指令
	RequireAdmin   bool   // 是否要求群主或管理员才可触发指令
	AdminErrorMsg  string // 当RequireAdmin，而触发用户的权限不足时，如此项不为空，返回此消息并短路；否则不进行短路
	IsShortCircuit bool   // 如果触发指令成功是否短路不运行后续指令（插件中的短路是否影响主程序根据bot的is_plugins_short_circuit_affect_main决定）
}

// Listener 插件的普通消息监听器，在全部指令之后运行
type Listener plugin_msg_listener

// Plugin 一个插件单元；Name由注册时给定，Description与Usage仅用于启动展示
type Plugin struct {
	IsEnable      bool
	IsBuiltin     bool // 框架自带插件，由配置中的builtin_plugins按名启用
	Description   string
	Usage         string
	Preprocessors []Preprocessor
	OnCommand     []OnCommand
	Listeners     []Listener
}

func (p *OnCommand) processCommand(data *events.GroupMessageEvent, bot *AbstractBot) bool {
	if p.RequireAT && !data.IsAtMe() {
		return false
	}
	if p.RequireAdmin {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		member, err := data.API().GetGroupMemberInfo(ctx, data.GroupID, data.UserID)
		if err != nil {
			bot.Logger.Error("plugins listener {", utils.GetFunctionName(p.Listener), "} get member role info error: ", err)
			return false
		}
		if !member.IsAdmin() {
			if p.AdminErrorMsg != "" {
				data.ReplyText(ctx, p.AdminErrorMsg)
				return true
			}
			return false
		}
	}
	utils.Try(func() { p.Listener(data, bot) }, func(err interface{}, tb string) {
		bot.Logger.Error("plugins listener {", utils.GetFunctionName(p.Listener), "} error: ", err, "\n", tb)
	})
	return p.IsShortCircuit
}

// 内部检查当前消息是否符合触发条件
func (p *OnCommand) CheckCommand(data *events.GroupMessageEvent, bot *AbstractBot) bool {
	msg := data.GetContent(false)
	if p.Command != nil {
		for _, v := range p.Command {
			if strings.Contains(msg, v) {
				if p.processCommand(data, bot) {
					return true
				}
			}
		}
	}
	if p.regex == nil && p.Regex != "" {
		p.regex = regexp.MustCompile(p.Regex)
	}
	if p.regex != nil {
		if p.regex.MatchString(msg) {
			if p.processCommand(data, bot) {
				return true
			}
		}
	}
	return false
}

/* Context Managment for Plugins */
var context_manager = make(map[string]*Plugin)

// RegisterPlugin 注册插件到下一个Bot实例，一般在插件包的init中调用
func RegisterPlugin(name string, context *Plugin) {
	context.IsEnable = true
	context_manager[name] = context
}

func FetchPlugins() map[string]*Plugin {
	context_manager_copy := make(map[string]*Plugin)
	for k, v := range context_manager {
		_v := *v
		context_manager_copy[k] = &_v
	}
	return context_manager_copy
}

func ClearPlugins() {
	context_manager = make(map[string]*Plugin)
}
