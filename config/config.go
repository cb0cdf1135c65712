package config

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	utils "github.com/akane-bot/akane/utils"
)

// AdapterConfig 对应配置中的一项 [[adapters]]，Name 为展示名，Module 为注册表中的模块名
type AdapterConfig struct {
	Name   string `toml:"name"`
	Module string `toml:"module_name"`
}

// APIConfig API相关配置
type APIConfig struct {
	DeepseekAPIKey     string `toml:"deepseek_api_key"`
	DeepseekAPIBase    string `toml:"deepseek_api_base"`
	SiliconflowAPIKey  string `toml:"siliconflow_api_key"`
	SiliconflowAPIBase string `toml:"siliconflow_api_base"`
}

// BotConfig 机器人基础配置
type BotConfig struct {
	Name string `toml:"name"`
	QQ   int64  `toml:"qq"`
}

// MessageConfig 消息处理配置
type MessageConfig struct {
	MinTextLength  int      `toml:"min_text_length"`
	MaxTextLength  int      `toml:"max_text_length"`
	MaxContextSize int      `toml:"max_context_size"`
	AllowedTypes   []string `toml:"allowed_types"`
}

// ResponseConfig 回复配置
type ResponseConfig struct {
	APIUsing           string             `toml:"api_using"`
	ModelProbabilities map[string]float64 `toml:"model_probabilities"`
}

// OneBotConfig OneBot V11 适配器配置
type OneBotConfig struct {
	WSURL       string `toml:"ws_url"`       // 正向ws地址，如 ws://127.0.0.1:6700
	AccessToken string `toml:"access_token"` // ws鉴权token，可为空
	Secret      string `toml:"secret"`       // 反向http上报签名密钥，可为空（为空则不校验）
	Listen      string `toml:"listen"`       // 反向http上报监听地址，如 ":8080"，为空则不开启
	Path        string `toml:"path"`         // 反向http上报路径，默认 "/"
}

type Config struct {
	Bot            BotConfig       `toml:"bot"`
	API            APIConfig       `toml:"api"`
	Message        MessageConfig   `toml:"message"`
	Response       ResponseConfig  `toml:"response"`
	OneBot         OneBotConfig    `toml:"onebot"`
	Adapters       []AdapterConfig `toml:"adapters"`
	Plugins        []string        `toml:"plugins"`         // 需启用的插件名单，为空则启用全部已注册插件
	PluginDirs     []string        `toml:"plugin_dirs"`     // 插件数据/配置目录，启动时扫描
	BuiltinPlugins []string        `toml:"builtin_plugins"` // 需启用的内置插件名单
}

// Default 返回与原始清单一致的默认配置
func Default() *Config {
	return &Config{
		Bot: BotConfig{Name: "MyChatBot"},
		Message: MessageConfig{
			MinTextLength:  2,
			MaxTextLength:  500,
			MaxContextSize: 15,
			AllowedTypes:   []string{"text", "image"},
		},
		Response: ResponseConfig{
			APIUsing:           "siliconflow",
			ModelProbabilities: map[string]float64{"r1": 0.5, "v3": 0.3, "r1_distill": 0.2},
		},
		OneBot: OneBotConfig{Path: "/"},
		Adapters: []AdapterConfig{
			{Name: "OneBot V11", Module: "onebot"},
			{Name: "Console", Module: "console"},
		},
		PluginDirs:     []string{"plugins_data"},
		BuiltinPlugins: []string{"echo"},
	}
}

// Load 读取配置文件并叠加环境变量（环境变量覆盖同名配置项）；
// env_path 不为空时先通过godotenv载入对应的.env文件；
// 配置文件不存在时直接使用默认配置
func Load(path, env_path string) (*Config, error) {
	if env_path != "" {
		if err := godotenv.Load(env_path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load env file %s: %w", env_path, err)
		}
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		c.API.DeepseekAPIKey = v
	}
	if v := os.Getenv("DEEPSEEK_API_BASE"); v != "" {
		c.API.DeepseekAPIBase = v
	}
	if v := os.Getenv("SILICONFLOW_API_KEY"); v != "" {
		c.API.SiliconflowAPIKey = v
	}
	if v := os.Getenv("SILICONFLOW_API_BASE"); v != "" {
		c.API.SiliconflowAPIBase = v
	}
	if v := os.Getenv("ONEBOT_ACCESS_TOKEN"); v != "" {
		c.OneBot.AccessToken = v
	}
	if v := os.Getenv("ONEBOT_SECRET"); v != "" {
		c.OneBot.Secret = v
	}
}

// Validate 检查配置的合法性；known为适配器注册表中已注册的模块名
func (c *Config) Validate(known map[string]bool) error {
	if len(c.Adapters) == 0 {
		return errors.New("配置中没有任何适配器")
	}
	seen := make(map[string]bool)
	for _, a := range c.Adapters {
		if a.Module == "" {
			return fmt.Errorf("适配器 %q 缺少module_name项", a.Name)
		}
		if known != nil && !known[a.Module] {
			return fmt.Errorf("适配器模块 %q 未注册", a.Module)
		}
		if seen[a.Module] {
			return fmt.Errorf("适配器模块 %q 重复", a.Module)
		}
		seen[a.Module] = true
	}
	if c.Message.MinTextLength < 0 || c.Message.MaxTextLength < c.Message.MinTextLength {
		return fmt.Errorf("消息长度区间非法: [%d, %d]", c.Message.MinTextLength, c.Message.MaxTextLength)
	}
	if c.Message.MaxContextSize <= 0 {
		return errors.New("max_context_size 必须大于0")
	}
	var total float64
	for m, p := range c.Response.ModelProbabilities {
		if p < 0 {
			return fmt.Errorf("模型 %q 的概率不可为负", m)
		}
		total += p
	}
	if len(c.Response.ModelProbabilities) > 0 && total <= 0 {
		return errors.New("model_probabilities 概率总和必须大于0")
	}
	return nil
}

// CheckMessageLength 检查消息长度是否符合要求
func (c *Config) CheckMessageLength(text string) bool {
	n := len([]rune(text))
	return n >= c.Message.MinTextLength && n <= c.Message.MaxTextLength
}

// CurrentAPI 获取当前使用的API信息 (base, key)
func (c *Config) CurrentAPI() (string, string) {
	switch c.Response.APIUsing {
	case "deepseek":
		return c.API.DeepseekAPIBase, c.API.DeepseekAPIKey
	case "siliconflow":
		return c.API.SiliconflowAPIBase, c.API.SiliconflowAPIKey
	default:
		return "", ""
	}
}

// RandomModel 根据概率随机选择模型
func (c *Config) RandomModel(r *rand.Rand) string {
	return utils.WeightedChoice(r, c.Response.ModelProbabilities)
}

// PluginEnabled 检查插件是否在启用名单中（名单为空时默认全部启用）
func (c *Config) PluginEnabled(name string) bool {
	if len(c.Plugins) == 0 {
		return true
	}
	for _, p := range c.Plugins {
		if p == name {
			return true
		}
	}
	return false
}

// BuiltinEnabled 检查内置插件是否被启用
func (c *Config) BuiltinEnabled(name string) bool {
	for _, p := range c.BuiltinPlugins {
		if p == name {
			return true
		}
	}
	return false
}
