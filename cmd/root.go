package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	bot "github.com/akane-bot/akane/bot"
	config "github.com/akane-bot/akane/config"
	logger "github.com/akane-bot/akane/logger"

	// 注册适配器与插件
	_ "github.com/akane-bot/akane/chat"
	_ "github.com/akane-bot/akane/console"
	_ "github.com/akane-bot/akane/onebot"
)

var (
	config_path string
	env_path    string
)

var root_cmd = &cobra.Command{
	Use:   "akane",
	Short: "QQ群聊AI机器人",
	Long:  "基于OneBot V11协议的QQ群聊AI机器人，支持多适配器与插件扩展",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config_path, env_path)
		if err != nil {
			return err
		}

		log := logger.NewDefaultLogger(cfg.Bot.Name)
		_bot, err := bot.New(cfg, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Infof("机器人 {%v} 开始运行\n", cfg.Bot.Name)
		if err := _bot.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		log.Infof("机器人 {%v} 已退出\n", cfg.Bot.Name)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	root_cmd.PersistentFlags().StringVarP(&config_path, "config", "c", "config.toml", "配置文件路径")
	root_cmd.PersistentFlags().StringVarP(&env_path, "env", "e", ".env", "环境变量文件路径")
}

func Execute() {
	if err := root_cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
