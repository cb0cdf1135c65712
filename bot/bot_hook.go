package bot

import (
	"fmt"

	events "github.com/akane-bot/akane/events"
	utils "github.com/akane-bot/akane/utils"
)

// Dispatch 实现adapters.Sink，接收适配器送来的事件并分发到处理管线。
// 整体消息处理的运行与短路顺序为： [main]预处理器 -> wait_for等待指令 -> [插件]预处理器 -> [插件]指令处理器 -> [main]指令处理器 -> [插件]监听器 -> [main]监听器
func (_bot *Bot) Dispatch(ev events.Event) {
	if !_bot.is_running {
		return
	}
	switch ev.PostType {
	case "message":
		if ev.MessageType != "group" {
			_bot.Logger.Debugf("ignore %s message event\n", ev.MessageType)
			return
		}
		data, err := ev.AsGroupMessage()
		if err != nil {
			_bot.Logger.Error("decode group message error: ", err)
			return
		}
		event_id := dedupKey(data)
		if _bot.filter_manager.needFilter(event_id) {
			_bot.Logger.Debugf("filter repeat event: %v\n", event_id)
			return
		}
		_bot.filter_manager.add(event_id)
		if _bot.is_filter_self_msg && data.UserID == data.SelfID {
			return
		}
		go _bot.processGroupMessage(data) // use goroutine to avoid blocking (especially handle wait_for)
	case "notice", "request":
		_bot.Logger.Debugf("ignore %s event\n", ev.PostType)
	default:
		_bot.Logger.Warnf("unknown event type: %v\n", ev.PostType)
	}
}

func dedupKey(data *events.GroupMessageEvent) string {
	if data.MessageID != 0 {
		return fmt.Sprintf("msg_%d", data.MessageID)
	}
	return fmt.Sprintf("msg_%d_%d_%d", data.GroupID, data.UserID, data.Time)
}

func (_bot *Bot) processGroupMessage(data *events.GroupMessageEvent) {
	// 1. run preprocessors
	for _, _preprocessor := range _bot.preprocessors {
		utils.Try(func() { _preprocessor(data) }, func(err interface{}, tb string) {
			_bot.Logger.Error("preprocessor {", utils.GetFunctionName(_preprocessor), "} error: ", err, "\n", tb)
		})
	}

	// 2. run wait_for command registers
	if _bot.checkWaitForCommand(data) {
		return
	}

	// 3. run plugins

	// 3_1. run plugins preprocessors
	for _, p := range _bot.plugins {
		if p.IsEnable {
			for _, _preprocessor := range p.Preprocessors {
				utils.Try(func() { _preprocessor(data, _bot.abstract_bot) }, func(err interface{}, tb string) {
					_bot.Logger.Error("preprocessor {", utils.GetFunctionName(_preprocessor), "} error: ", err, "\n", tb)
				})
			}
		}
	}

	// 3_2. run plugins commands
	for _, p := range _bot.plugins {
		if p.IsEnable {
			_is_short_circuit := false
			for i := range p.OnCommand {
				if p.OnCommand[i].CheckCommand(data, _bot.abstract_bot) {
					_is_short_circuit = true
					break // short circuit for plugin's internal commands
				}
			}
			if _is_short_circuit && _bot.is_plugins_short_circuit_affect_main {
				return // short circuit for all commands
			}
		}
	}

	// 4. run on commands
	for i := range _bot.on_commands {
		if _bot.on_commands[i].CheckCommand(data, _bot.Logger) {
			return // short circuit
		}
	}

	// 5. run plugins listeners
	for _, p := range _bot.plugins {
		if p.IsEnable {
			for _, listener := range p.Listeners {
				_listener := listener
				utils.Try(func() { _listener(data, _bot.abstract_bot) }, func(err interface{}, tb string) {
					_bot.Logger.Error("listener {", utils.GetFunctionName(_listener), "} error: ", err, "\n", tb)
				})
			}
		}
	}

	// 6. run normal listeners
	for _, listener := range _bot.listeners_group_message {
		_listener := listener
		utils.Try(func() { _listener(data) }, func(err interface{}, tb string) {
			_bot.Logger.Error("listener {", utils.GetFunctionName(_listener), "} error: ", err, "\n", tb)
		})
	}
}
