package adapters

import (
	"context"
	"fmt"

	config "github.com/akane-bot/akane/config"
	events "github.com/akane-bot/akane/events"
	logger "github.com/akane-bot/akane/logger"
)

// Sink 接收适配器解码后的事件，由Bot实现
type Sink interface {
	Dispatch(ev events.Event)
}

// Adapter 为协议适配器的统一接口；Run应阻塞直至ctx取消或出现不可恢复错误
type Adapter interface {
	Name() string
	Run(ctx context.Context) error
}

type Factory func(cfg *config.Config, sink Sink, log logger.Logger) (Adapter, error)

/* Context Managment for Adapters */
var context_manager = make(map[string]Factory)

// RegisterAdapter 以模块名注册适配器工厂，一般在适配器包的init中调用
func RegisterAdapter(module string, factory Factory) {
	if _, ok := context_manager[module]; ok {
		panic(fmt.Sprintf("adapter module %q already registered", module))
	}
	context_manager[module] = factory
}

// Lookup 按模块名查找适配器工厂
func Lookup(module string) (Factory, bool) {
	f, ok := context_manager[module]
	return f, ok
}

// Known 返回已注册的全部模块名集合，用于配置校验
func Known() map[string]bool {
	known := make(map[string]bool, len(context_manager))
	for module := range context_manager {
		known[module] = true
	}
	return known
}
