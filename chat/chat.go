package chat

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	config "github.com/akane-bot/akane/config"
	events "github.com/akane-bot/akane/events"
	lifecycle "github.com/akane-bot/akane/lifecycle"
	logger "github.com/akane-bot/akane/logger"
	plugins "github.com/akane-bot/akane/plugins"
)

/* AI聊天插件：自动响应群聊消息。
 * 各组成部分经lifecycle按依赖顺序初始化：
 * config -> ai_client / context_manager / group_manager -> chat_bot */

const cleanupInterval = 5 * time.Minute

func getConfig(ctx context.Context) (*config.Config, error) {
	res, err := lifecycle.Get(ctx, "config")
	if err != nil {
		return nil, err
	}
	cfg, ok := res.(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("chat: 无法获取配置")
	}
	return cfg, nil
}

// dataDir 返回chat插件的数据目录（位于首个plugin_dir下）
func dataDir(cfg *config.Config) string {
	base := "plugins_data"
	if len(cfg.PluginDirs) > 0 {
		base = cfg.PluginDirs[0]
	}
	return filepath.Join(base, "chat", "group_configs")
}

func initAIClient(ctx context.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	lifecycle.Set("ai_client", NewClient(cfg))
	return nil
}

func initContextManager(ctx context.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	manager := NewContextManager(cfg.Message.MaxContextSize, 30*time.Minute)
	lifecycle.Set("context_manager", manager)
	go manager.CleanupLoop(context.Background(), cleanupInterval)
	return nil
}

func initGroupManager(ctx context.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	manager, err := NewGroupManager(dataDir(cfg), pluginLogger())
	if err != nil {
		return err
	}
	if err := manager.LoadConfigs(); err != nil {
		return err
	}
	lifecycle.Set("group_manager", manager)
	go func() {
		if err := manager.Watch(context.Background()); err != nil {
			pluginLogger().Error("群组配置目录监视退出: ", err)
		}
	}()
	return nil
}

func initChatBot(ctx context.Context) error {
	cfg, err := getConfig(ctx)
	if err != nil {
		return err
	}
	client_res, err := lifecycle.Get(ctx, "ai_client")
	if err != nil {
		return err
	}
	contexts_res, err := lifecycle.Get(ctx, "context_manager")
	if err != nil {
		return err
	}
	groups_res, err := lifecycle.Get(ctx, "group_manager")
	if err != nil {
		return err
	}
	chat_bot := NewChatBot(
		cfg,
		client_res.(*Client),
		contexts_res.(*ContextManager),
		groups_res.(*GroupManager),
		NewHumanizer(time.Now().UnixNano()),
		pluginLogger(),
	)
	lifecycle.Set("chat_bot", chat_bot)
	return nil
}

var plugin_logger logger.Logger

func pluginLogger() logger.Logger {
	if plugin_logger == nil {
		plugin_logger = logger.NewDefaultLogger("chat")
	}
	return plugin_logger
}

// SetLogger 替换插件内部使用的日志记录器，需在启动前调用
func SetLogger(log logger.Logger) {
	plugin_logger = log
}

func handleGroupMessage(data *events.GroupMessageEvent, bot *plugins.AbstractBot) {
	ctx, cancel := context.WithTimeout(context.Background(), lifecycle.DefaultGetTimeout)
	defer cancel()
	res, err := lifecycle.Get(ctx, "chat_bot")
	if err != nil {
		bot.Logger.Error("机器人实例未就绪: ", err)
		return
	}
	res.(*ChatBot).HandleGroupMessage(data)
}

func init() {
	lifecycle.Register("config", nil, nil) // 由Bot在启动时Set
	lifecycle.Register("ai_client", []string{"config"}, initAIClient)
	lifecycle.Register("context_manager", []string{"config"}, initContextManager)
	lifecycle.Register("group_manager", []string{"config"}, initGroupManager)
	lifecycle.Register("chat_bot", []string{"config", "ai_client", "context_manager", "group_manager"}, initChatBot)

	plugins.RegisterPlugin(
		"chat",
		&plugins.Plugin{
			Description: "AI聊天插件",
			Usage:       "自动响应群聊消息",
			Listeners:   []plugins.Listener{handleGroupMessage},
		},
	)
}
