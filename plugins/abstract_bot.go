package plugins

import (
	events "github.com/akane-bot/akane/events"
	logger "github.com/akane-bot/akane/logger"
	models "github.com/akane-bot/akane/models"
)

// 用于为插件提供基础机器人功能的抽象类
type AbstractBot struct {
	Logger         logger.Logger
	WaitForCommand func(reg models.WaitForCommandRegister) (*events.GroupMessageEvent, error)
}
