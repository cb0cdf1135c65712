package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	events "github.com/akane-bot/akane/events"
	models "github.com/akane-bot/akane/models"
)

/* private */
type waitForCommandRegister struct {
	register models.WaitForCommandRegister
	regex    *regexp.Regexp
	group_id int64
	uid      int64
	channel  chan *events.GroupMessageEvent
	cancel   chan bool
}

func (_bot *Bot) validateWaitForCommandScope(reg *waitForCommandRegister, data *events.GroupMessageEvent) bool {
	if reg.register.Scope&models.ScopeGlobal != 0 { // always true if global scope is enabled
		return true
	}
	if reg.register.Scope&models.ScopeGroup != 0 {
		if reg.group_id != data.GroupID {
			return false
		}
	}
	if reg.register.Scope&models.ScopeUser != 0 {
		if reg.uid != data.UserID {
			return false
		}
	}
	return true // if all scope is satisfied, return true
}

// return true if the short circuit is needed
func (_bot *Bot) checkWaitForCommand(data *events.GroupMessageEvent) bool {
	msg := data.GetContent(false)
	_bot.wait_for_mu.Lock()
	defer _bot.wait_for_mu.Unlock()
	for _, reg := range _bot.wait_for_command_registers {
		if !_bot.validateWaitForCommandScope(reg, data) {
			continue
		}
		if reg.register.Command.RequireAT && !data.IsAtMe() {
			continue
		}
		matched := false
		for _, v := range reg.register.Command.Command {
			if strings.Contains(msg, v) {
				matched = true
				break
			}
		}
		if !matched && reg.register.Command.Regex != "" {
			if reg.regex == nil {
				reg.regex = regexp.MustCompile(reg.register.Command.Regex)
			}
			matched = reg.regex.MatchString(msg)
		}
		if matched {
			select { // channel缓冲为1，等待方超时离场后不阻塞分发
			case reg.channel <- data:
			default:
			}
			if reg.register.Command.IsShortCircuit {
				return true
			}
		}
	}
	return false
}

/* public */

// WaitForCommand 等待特定指令的触发，并回传触发该指令的消息事件（或超时错误）；
// 用于暂停处理当前消息链，等待特定指令的触发或超时再回复
func (_bot *Bot) WaitForCommand(reg models.WaitForCommandRegister) (*events.GroupMessageEvent, error) {
	// manage default values for optional args
	if reg.Timeout == nil {
		var timeout time.Duration = 1 * time.Minute
		reg.Timeout = &timeout
	}
	if reg.AllowRepeat == nil {
		var allow_repeat bool = true
		reg.AllowRepeat = &allow_repeat
	}
	if reg.Scope == 0 {
		return nil, errors.New("缺少必要的参数：Scope")
	}
	if reg.Scope&models.ScopeGroup != 0 && reg.GroupID == 0 {
		return nil, errors.New("Group作用域需要提供GroupID")
	}
	if reg.Scope&models.ScopeUser != 0 && reg.UserID == 0 {
		return nil, errors.New("User作用域需要提供UserID")
	}

	// create internal register struct
	_reg := &waitForCommandRegister{
		register: reg,
		group_id: reg.GroupID,
		uid:      reg.UserID,
		channel:  make(chan *events.GroupMessageEvent, 1),
		cancel:   make(chan bool, 1),
	}

	// register to bot
	_bot.wait_for_mu.Lock()
	if !(*reg.AllowRepeat) && reg.Identify != nil {
		for _, v := range _bot.wait_for_command_registers {
			if v.register.Identify != nil && *v.register.Identify == *reg.Identify {
				_bot.wait_for_mu.Unlock()
				return nil, errors.New("重复的标识 (AllowRepeat: false)")
			}
		}
	}
	_bot.wait_for_command_registers = append(_bot.wait_for_command_registers, _reg)
	_bot.wait_for_mu.Unlock()

	defer func() {
		_bot.wait_for_mu.Lock()
		for i, v := range _bot.wait_for_command_registers {
			if v == _reg {
				_bot.wait_for_command_registers = append(_bot.wait_for_command_registers[:i], _bot.wait_for_command_registers[i+1:]...)
				break
			}
		}
		_bot.wait_for_mu.Unlock()
	}()

	// wait for command
	var timer <-chan time.Time
	if *reg.Timeout != 0 { // no timeout if timeout is 0
		timer = time.After(*reg.Timeout)
	}
	select {
	case res := <-_reg.channel:
		return res, nil
	case <-timer:
		return nil, fmt.Errorf("timeout")
	case <-_reg.cancel:
		return nil, fmt.Errorf("cancel")
	}
}

// CancelWaitForCommand 取消等待特定指令的注册
func (_bot *Bot) CancelWaitForCommand(identify string) error {
	_bot.wait_for_mu.Lock()
	defer _bot.wait_for_mu.Unlock()
	for _, v := range _bot.wait_for_command_registers {
		if v.register.Identify != nil && *v.register.Identify == identify {
			select {
			case v.cancel <- true:
			default:
			}
			return nil
		}
	}
	return errors.New("未找到对应的注册")
}
