package bot

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	adapters "github.com/akane-bot/akane/adapters"
	commands "github.com/akane-bot/akane/commands"
	config "github.com/akane-bot/akane/config"
	events "github.com/akane-bot/akane/events"
	lifecycle "github.com/akane-bot/akane/lifecycle"
	logger "github.com/akane-bot/akane/logger"
	models "github.com/akane-bot/akane/models"
	plugin "github.com/akane-bot/akane/plugins"
)

/* bot related */

type Bot struct {
	Base           models.BotBase // 机器人基本信息
	cfg            *config.Config
	adapter_set    []adapters.Adapter  // 按配置顺序实例化的适配器
	filter_manager *filterManager      // used to filter event that passed repeatly in a short time
	abstract_bot   *plugin.AbstractBot // bot的抽象类，用于为插件提供基础机器人功能
	is_running     bool                // 是否正在运行
	/* 事件监听器开始 */
	listeners_group_message []events.BotListenerGroupMessage
	/* 事件监听器结束 */
	is_plugins_short_circuit_affect_main bool                      // 插件中的指令短路是否会影响主程序其余指令和监听器的执行，默认为false
	is_filter_self_msg                   bool                      // 是否过滤自己发送的消息，默认为true
	plugins                              map[string]*plugin.Plugin // 插件列表
	on_commands                          []commands.OnCommand      // 处理消息事件的指令列表
	preprocessors                        []commands.Preprocessor   // 消息事件的预处理器，用于在运行指令列表和监听器之前处理事件
	wait_for_mu                          sync.Mutex                // 保护wait_for注册表
	wait_for_command_registers           []*waitForCommandRegister // 用户处理消息时暂停等待指令的处理列表
	Logger                               logger.Logger             // 日志记录器
}

// New 根据配置创建机器人实例：解析适配器列表、装载插件注册表并扫描插件目录。
// 配置中的适配器模块未注册时返回错误（配置合法性的一部分）
func New(cfg *config.Config, log logger.Logger) (*Bot, error) {
	if log == nil {
		log = logger.NewDefaultLogger(cfg.Bot.Name)
	}
	if err := cfg.Validate(adapters.Known()); err != nil {
		return nil, err
	}

	_bot := &Bot{
		Base:                    models.BotBase{Name: cfg.Bot.Name, QQ: cfg.Bot.QQ},
		cfg:                     cfg,
		filter_manager:          &filterManager{entries: make(map[string]time.Time)},
		listeners_group_message: []events.BotListenerGroupMessage{},
		is_filter_self_msg:      true,
		on_commands:             []commands.OnCommand{},
		preprocessors:           []commands.Preprocessor{},
		Logger:                  log,
	}
	_bot.abstract_bot = &plugin.AbstractBot{
		Logger:         _bot.Logger,
		WaitForCommand: _bot.WaitForCommand,
	}

	for _, a := range cfg.Adapters {
		factory, ok := adapters.Lookup(a.Module)
		if !ok { // Validate已检查，双保险
			return nil, fmt.Errorf("适配器模块 %q 未注册", a.Module)
		}
		instance, err := factory(cfg, _bot, _bot.Logger)
		if err != nil {
			return nil, fmt.Errorf("创建适配器 %q 失败: %w", a.Name, err)
		}
		_bot.adapter_set = append(_bot.adapter_set, instance)
	}

	_bot.plugins = plugin.FetchPlugins() // load plugins from plugins context manager
	for name, p := range _bot.plugins {
		if p.IsBuiltin {
			p.IsEnable = cfg.BuiltinEnabled(name)
		} else {
			p.IsEnable = cfg.PluginEnabled(name)
		}
	}

	for _, dir := range cfg.PluginDirs {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("创建插件目录 %q 失败: %w", dir, err)
		}
	}

	go _bot.filter_manager.loop()

	return _bot, nil
}

// 设置插件中的指令短路是否会影响主程序其余指令和监听器的执行，默认为false
func (_bot *Bot) SetPluginsShortCircuitAffectMain(is_affect bool) {
	_bot.is_plugins_short_circuit_affect_main = is_affect
}

// 设置是否过滤自己发送的消息，默认为true
func (_bot *Bot) SetFilterSelfMsg(is_filter bool) {
	_bot.is_filter_self_msg = is_filter
}

// 设置是否启用某一插件
func (_bot *Bot) SetPluginEnabled(plugin_name string, is_enable bool) {
	if p, ok := _bot.plugins[plugin_name]; ok {
		p.IsEnable = is_enable
	}
}

func (_bot *Bot) GetPluginNames() []string {
	plugin_names := []string{}
	for plugin_name := range _bot.plugins {
		plugin_names = append(plugin_names, plugin_name)
	}
	return plugin_names
}

func (_bot *Bot) AddListenerGroupMessage(listener events.BotListenerGroupMessage) {
	_bot.listeners_group_message = append(_bot.listeners_group_message, listener)
}

func (_bot *Bot) RemoveListenerGroupMessage(listener events.BotListenerGroupMessage) {
	for i, l := range _bot.listeners_group_message {
		if reflect.ValueOf(l).Pointer() == reflect.ValueOf(listener).Pointer() {
			_bot.listeners_group_message = append(_bot.listeners_group_message[:i], _bot.listeners_group_message[i+1:]...)
			return
		}
	}
}

func (_bot *Bot) AddOnCommand(cmd commands.OnCommand) error {
	_bot.on_commands = append(_bot.on_commands, cmd)
	return nil
}

func (_bot *Bot) RemoveOnCommand(cmd commands.OnCommand) error {
	for i, p := range _bot.on_commands {
		if p.Equals(cmd) {
			_bot.on_commands = append(_bot.on_commands[:i], _bot.on_commands[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("command not found")
}

func (_bot *Bot) AddPreprocessor(preprocessor commands.Preprocessor) error {
	_bot.preprocessors = append(_bot.preprocessors, preprocessor)
	return nil
}

func (_bot *Bot) RemovePreprocessor(preprocessor commands.Preprocessor) error {
	for i, p := range _bot.preprocessors {
		if reflect.ValueOf(p).Pointer() == reflect.ValueOf(preprocessor).Pointer() {
			_bot.preprocessors = append(_bot.preprocessors[:i], _bot.preprocessors[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("preprocessor not found")
}

// Run 初始化资源后并发运行全部适配器，阻塞直至ctx取消或某一适配器出错
func (_bot *Bot) Run(ctx context.Context) error {
	_bot.is_running = true

	for _plugin_name, _plugin := range _bot.plugins {
		var _enable string
		if _plugin.IsEnable {
			_enable = "启用"
		} else {
			_enable = "禁用"
		}
		_bot.Logger.Infof("机器人 {%v} 加载了插件 %s (%s)\n", _bot.Base.Name, _plugin_name, _enable)
	}

	lifecycle.Set("config", _bot.cfg)
	if err := lifecycle.Initialize(ctx); err != nil {
		_bot.Logger.Error("资源初始化存在失败项: ", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, a := range _bot.adapter_set {
		_a := a
		_bot.Logger.Infof("机器人 {%v} 启动适配器 %s\n", _bot.Base.Name, _a.Name())
		g.Go(func() error {
			err := _a.Run(ctx)
			if err != nil && ctx.Err() == nil {
				_bot.Logger.Errorf("适配器 %s 停止运行 : %v\n", _a.Name(), err)
			}
			return err
		})
	}
	err := g.Wait()
	_bot.is_running = false
	return err
}
