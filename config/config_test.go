package config

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "MyChatBot", cfg.Bot.Name)
	assert.Equal(t, 2, cfg.Message.MinTextLength)
	assert.Equal(t, 500, cfg.Message.MaxTextLength)
	assert.Equal(t, "siliconflow", cfg.Response.APIUsing)
	assert.InDelta(t, 0.5, cfg.Response.ModelProbabilities["r1"], 1e-9)
	require.Len(t, cfg.Adapters, 2)
	assert.Equal(t, "onebot", cfg.Adapters[0].Module)
	assert.Equal(t, []string{"echo"}, cfg.BuiltinPlugins)
}

func TestLoadMissingFileUsesDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"), "")
	require.NoError(t, err)
	assert.Equal(t, "MyChatBot", cfg.Bot.Name)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
plugins = ["chat"]
builtin_plugins = []

[bot]
name = "TestBot"
qq = 12345

[message]
min_text_length = 1
max_text_length = 100
max_context_size = 5

[onebot]
ws_url = "ws://127.0.0.1:6700"
secret = "from_file"

[[adapters]]
name = "OneBot V11"
module_name = "onebot"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "TestBot", cfg.Bot.Name)
	assert.Equal(t, int64(12345), cfg.Bot.QQ)
	assert.Equal(t, 5, cfg.Message.MaxContextSize)
	assert.Equal(t, "ws://127.0.0.1:6700", cfg.OneBot.WSURL)
	require.Len(t, cfg.Adapters, 1)
	assert.Equal(t, "onebot", cfg.Adapters[0].Module) // 清单中的键为module_name
	assert.Equal(t, []string{"chat"}, cfg.Plugins)
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0644))
	_, err := Load(path, "")
	assert.Error(t, err)
}

func TestEnvOverridesConfig(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "sk-env")
	t.Setenv("ONEBOT_SECRET", "env_secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"), "")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.API.SiliconflowAPIKey)
	assert.Equal(t, "env_secret", cfg.OneBot.Secret)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	env_path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env_path, []byte("DEEPSEEK_API_KEY=sk-file\n"), 0644))
	t.Setenv("DEEPSEEK_API_KEY", "placeholder") // 注册测试结束后的环境变量还原
	os.Unsetenv("DEEPSEEK_API_KEY")             // godotenv不覆盖已存在的环境变量，先清掉

	cfg, err := Load(filepath.Join(dir, "nope.toml"), env_path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.API.DeepseekAPIKey)
}

func TestValidate(t *testing.T) {
	known := map[string]bool{"onebot": true, "console": true}

	cfg := Default()
	assert.NoError(t, cfg.Validate(known))

	no_adapter := Default()
	no_adapter.Adapters = nil
	assert.Error(t, no_adapter.Validate(known))

	unknown := Default()
	unknown.Adapters = []AdapterConfig{{Name: "X", Module: "missing"}}
	assert.Error(t, unknown.Validate(known))

	dup := Default()
	dup.Adapters = []AdapterConfig{
		{Name: "A", Module: "onebot"},
		{Name: "B", Module: "onebot"},
	}
	assert.Error(t, dup.Validate(known))

	bad_len := Default()
	bad_len.Message.MaxTextLength = 1
	bad_len.Message.MinTextLength = 10
	assert.Error(t, bad_len.Validate(known))

	bad_prob := Default()
	bad_prob.Response.ModelProbabilities = map[string]float64{"m": -1}
	assert.Error(t, bad_prob.Validate(known))
}

func TestCheckMessageLength(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.CheckMessageLength("a"))
	assert.True(t, cfg.CheckMessageLength("你好"))
	long := make([]rune, cfg.Message.MaxTextLength+1)
	for i := range long {
		long[i] = '喵'
	}
	assert.False(t, cfg.CheckMessageLength(string(long)))
}

func TestCurrentAPI(t *testing.T) {
	cfg := Default()
	cfg.API.SiliconflowAPIBase = "https://sf.example"
	cfg.API.SiliconflowAPIKey = "sk-sf"
	cfg.API.DeepseekAPIBase = "https://ds.example"
	cfg.API.DeepseekAPIKey = "sk-ds"

	base, key := cfg.CurrentAPI()
	assert.Equal(t, "https://sf.example", base)
	assert.Equal(t, "sk-sf", key)

	cfg.Response.APIUsing = "deepseek"
	base, key = cfg.CurrentAPI()
	assert.Equal(t, "https://ds.example", base)
	assert.Equal(t, "sk-ds", key)

	cfg.Response.APIUsing = "unknown"
	base, key = cfg.CurrentAPI()
	assert.Empty(t, base)
	assert.Empty(t, key)
}

func TestRandomModel(t *testing.T) {
	cfg := Default()
	r := rand.New(rand.NewSource(3))
	model := cfg.RandomModel(r)
	_, ok := cfg.Response.ModelProbabilities[model]
	assert.True(t, ok)
}

func TestPluginEnabled(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.PluginEnabled("anything")) // 名单为空默认全部启用

	cfg.Plugins = []string{"chat"}
	assert.True(t, cfg.PluginEnabled("chat"))
	assert.False(t, cfg.PluginEnabled("other"))
}

func TestBuiltinEnabled(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.BuiltinEnabled("echo"))
	assert.False(t, cfg.BuiltinEnabled("other"))
}
