package commands

import (
	"context"
	"regexp"
	"strings"
	"time"

	events "github.com/akane-bot/akane/events"
	logger "github.com/akane-bot/akane/logger"
	utils "github.com/akane-bot/akane/utils"
)

type Preprocessor events.BotListenerGroupMessage

type OnCommand struct {
	Command        []string       // 可触发事件的指令列表，与正则 Regex 互斥，优先使用此项
	Regex          string         // 可触发指令的正则表达式，与指令表 Command 互斥
	regex          *regexp.Regexp // internal use
	Listener       events.BotListenerGroupMessage
	RequireAT      bool   // 是否要求必须@机器人才能触发指令
	RequireAdmin   bool   // 是否要求群主或管理员才可触发指令
	AdminErrorMsg  string // 当RequireAdmin，而触发用户的权限不足时，如此项不为空，返回此消息并短路；否则不进行短路
	IsShortCircuit bool   // 如果触发指令成功是否短路不运行后续指令（将根据注册顺序排序指令的短路机制）
}

func (p *OnCommand) processCommand(data *events.GroupMessageEvent, _logger logger.Logger) bool {
	if p.RequireAT && !data.IsAtMe() {
		return false
	}
	if p.RequireAdmin {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		member, err := data.API().GetGroupMemberInfo(ctx, data.GroupID, data.UserID)
		if err != nil {
			_logger.Error("command listener {", utils.GetFunctionName(p.Listener), "} get member role info error: ", err)
			return false
		}
		if !member.IsAdmin() {
			if p.AdminErrorMsg != "" {
				if _, err := data.ReplyText(ctx, p.AdminErrorMsg); err != nil {
					_logger.Error("command listener {", utils.GetFunctionName(p.Listener), "} error on sending admin error msg: ", err)
					return false
				}
				return true
			}
			return false
		}
	}
	utils.Try(func() { p.Listener(data) }, func(err interface{}, tb string) {
		_logger.Error("command listener {", utils.GetFunctionName(p.Listener), "} error: ", err, "\n", tb)
	})
	return p.IsShortCircuit
}

// 内部检查当前消息是否符合触发条件
func (p *OnCommand) CheckCommand(data *events.GroupMessageEvent, _logger logger.Logger) bool {
	msg := data.GetContent(false)
	if p.Command != nil {
		for _, v := range p.Command {
			if strings.Contains(msg, v) {
				if p.processCommand(data, _logger) {
					return true
				}
			}
		}
	}
	if p.regex == nil && p.Regex != "" {
		p.regex = regexp.MustCompile(p.Regex)
	}
	if p.regex != nil {
		if p.regex.FindString(msg) != "" {
			if p.processCommand(data, _logger) {
				return true
			}
		}
	}
	return false
}

func (p *OnCommand) Equals(_p OnCommand) bool {
	if p.Command != nil && _p.Command != nil {
		if len(p.Command) != len(_p.Command) {
			return false
		}
		p_map := make(map[string]bool)
		for _, v := range p.Command {
			p_map[v] = true
		}
		for _, v := range _p.Command {
			if _, ok := p_map[v]; !ok {
				return false
			}
		}
		return true
	}
	if p.Regex != "" && _p.Regex != "" {
		return p.Regex == _p.Regex
	}
	return false
}
