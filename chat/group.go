package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	logger "github.com/akane-bot/akane/logger"
)

// GroupConfig 群组特定配置
type GroupConfig struct {
	GroupID         int64    `json:"group_id"`
	Enabled         bool     `json:"enabled"`
	RandomReplyRate float64  `json:"random_reply_rate"` // 无触发时的随机回复率
	TriggerKeywords []string `json:"trigger_keywords"`  // 群特定触发词，命中则必定回复
	BlacklistUsers  []int64  `json:"blacklist_users"`   // 群内黑名单用户
}

func defaultGroupConfig(group_id int64) *GroupConfig {
	return &GroupConfig{GroupID: group_id, Enabled: true, RandomReplyRate: 0.1}
}

type globalSettings struct {
	Blacklist       []int64 `json:"blacklist"`
	WhitelistGroups []int64 `json:"whitelist_groups"`
}

// GroupManager 群组管理器：从config_dir读取default.json、global.json与group_<id>.json，
// 可通过Watch在文件变更时热重载
type GroupManager struct {
	config_dir string
	log        logger.Logger

	mu               sync.Mutex
	groups           map[int64]*GroupConfig
	default_config   *GroupConfig
	global_blacklist []int64
	whitelist_groups []int64 // 如果不为空，则只响应这些群
}

func NewGroupManager(config_dir string, log logger.Logger) (*GroupManager, error) {
	if err := os.MkdirAll(config_dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("创建群组配置目录失败: %w", err)
	}
	return &GroupManager{
		config_dir: config_dir,
		log:        log,
		groups:     make(map[int64]*GroupConfig),
	}, nil
}

// LoadConfigs 加载所有群组配置；单个文件损坏不阻止其余文件加载
func (gm *GroupManager) LoadConfigs() error {
	gm.loadDefault()
	gm.loadGlobal()

	files, err := filepath.Glob(filepath.Join(gm.config_dir, "group_*.json"))
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := gm.loadGroupFile(file); err != nil {
			gm.log.Errorf("加载群组配置失败 %s: %v\n", filepath.Base(file), err)
		}
	}
	return nil
}

func (gm *GroupManager) loadDefault() {
	data, err := os.ReadFile(filepath.Join(gm.config_dir, "default.json"))
	if err != nil {
		return
	}
	cfg := defaultGroupConfig(0)
	if err := json.Unmarshal(data, cfg); err != nil {
		gm.log.Error("加载默认群组配置失败: ", err)
		return
	}
	gm.mu.Lock()
	gm.default_config = cfg
	gm.mu.Unlock()
	gm.log.Info("已加载默认群组配置")
}

func (gm *GroupManager) loadGlobal() {
	data, err := os.ReadFile(filepath.Join(gm.config_dir, "global.json"))
	if err != nil {
		return
	}
	var settings globalSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		gm.log.Error("加载全局群组设置失败: ", err)
		return
	}
	gm.mu.Lock()
	gm.global_blacklist = settings.Blacklist
	gm.whitelist_groups = settings.WhitelistGroups
	gm.mu.Unlock()
	gm.log.Info("已加载全局群组设置")
}

func (gm *GroupManager) loadGroupFile(path string) error {
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	group_id, err := strconv.ParseInt(strings.TrimPrefix(name, "group_"), 10, 64)
	if err != nil {
		return fmt.Errorf("非法的群组配置文件名: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cfg := defaultGroupConfig(group_id)
	if err := json.Unmarshal(data, cfg); err != nil {
		return err
	}
	cfg.GroupID = group_id
	gm.mu.Lock()
	gm.groups[group_id] = cfg
	gm.mu.Unlock()
	gm.log.Debugf("已加载群 %d 的配置\n", group_id)
	return nil
}

// GetGroupConfig 获取指定群的配置；群不在白名单内时返回nil，
// 无专属配置时以默认配置创建
func (gm *GroupManager) GetGroupConfig(group_id int64) *GroupConfig {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	if len(gm.whitelist_groups) > 0 && !containsInt64(gm.whitelist_groups, group_id) {
		return nil
	}
	if cfg, ok := gm.groups[group_id]; ok {
		return cfg
	}
	cfg := defaultGroupConfig(group_id)
	if gm.default_config != nil {
		copy_cfg := *gm.default_config
		copy_cfg.GroupID = group_id
		cfg = &copy_cfg
	}
	gm.groups[group_id] = cfg
	return cfg
}

// SaveGroupConfig 保存群组配置到group_<id>.json
func (gm *GroupManager) SaveGroupConfig(group_id int64) error {
	gm.mu.Lock()
	cfg, ok := gm.groups[group_id]
	gm.mu.Unlock()
	if !ok {
		return fmt.Errorf("群 %d 没有已加载的配置", group_id)
	}
	data, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err
	}
	path := filepath.Join(gm.config_dir, fmt.Sprintf("group_%d.json", group_id))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("保存群 %d 配置失败: %w", group_id, err)
	}
	gm.log.Debugf("已保存群 %d 的配置\n", group_id)
	return nil
}

// IsUserBlocked 检查用户是否被屏蔽（全局黑名单或群内黑名单）
func (gm *GroupManager) IsUserBlocked(user_id, group_id int64) bool {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	if containsInt64(gm.global_blacklist, user_id) {
		return true
	}
	if cfg, ok := gm.groups[group_id]; ok {
		return containsInt64(cfg.BlacklistUsers, user_id)
	}
	return false
}

// Watch 监视配置目录，文件变更时热重载对应配置；阻塞直至ctx取消
func (gm *GroupManager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(gm.config_dir); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			gm.reloadFile(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			gm.log.Error("群组配置目录监视出错: ", err)
		}
	}
}

func (gm *GroupManager) reloadFile(path string) {
	switch base := filepath.Base(path); {
	case base == "default.json":
		gm.loadDefault()
	case base == "global.json":
		gm.loadGlobal()
	case strings.HasPrefix(base, "group_") && strings.HasSuffix(base, ".json"):
		if err := gm.loadGroupFile(path); err != nil {
			gm.log.Errorf("重载群组配置失败 %s: %v\n", base, err)
		}
	}
}

func containsInt64(list []int64, v int64) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
