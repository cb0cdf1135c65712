package chat

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
)

/*
 * 消息处理工具 - 专为伪装成普通群员设计
 * 不包含明显的机器人特征，避免暴露身份
 */

var fillers = []string{"嗯", "啊", "呢", "吧", "啦", "哈", "哦"}

// Humanizer 回复行为模拟器，维护上次回复时间与话题记忆
type Humanizer struct {
	mu         sync.Mutex
	rng        *rand.Rand
	last_reply map[string]time.Time // group_user -> 上次回复时间
	topics     map[int64]string     // group -> 话题记忆
	now        func() time.Time
}

func NewHumanizer(seed int64) *Humanizer {
	return &Humanizer{
		rng:        rand.New(rand.NewSource(seed)),
		last_reply: make(map[string]time.Time),
		topics:     make(map[int64]string),
		now:        time.Now,
	}
}

func (h *Humanizer) chance(p float64) bool {
	return h.rng.Float64() < p
}

// ShouldReply 决定是否回复（模拟人类行为）：
// 根据@状态、内容相关性、最近回复时间等判断；base_rate为无任何触发时的基础回复率
func (h *Humanizer) ShouldReply(text string, is_at bool, group_id, user_id int64, base_rate float64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	// 如果被@，有较高概率回复，但偶尔装作"没看到"
	if is_at {
		return h.chance(0.95)
	}

	// 检查是否是对自己上次发言的回复
	if h.isRelevantLocked(text, group_id) {
		return h.chance(0.85)
	}

	// 避免频繁回复同一用户（模拟人类注意力分散）
	key := fmt.Sprintf("%d_%d", group_id, user_id)
	if last, ok := h.last_reply[key]; ok && h.now().Sub(last) < 5*time.Minute {
		return h.chance(0.2)
	}

	// 在保持群内存在感的同时，不对每条消息都回复
	if base_rate <= 0 {
		base_rate = 0.1
	}
	return h.chance(base_rate)
}

// 判断消息是否与机器人上次发言相关（简单的关键词匹配）
func (h *Humanizer) isRelevantLocked(text string, group_id int64) bool {
	last_topic := h.topics[group_id]
	if last_topic == "" {
		return false
	}
	for _, keyword := range strings.Fields(last_topic) {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

// UpdateConversationState 更新对话状态：记录回复时间并提取话题词作为记忆
func (h *Humanizer) UpdateConversationState(group_id, user_id int64, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last_reply[fmt.Sprintf("%d_%d", group_id, user_id)] = h.now()

	words := []string{}
	for _, w := range strings.Fields(text) {
		if len([]rune(w)) > 1 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return
	}
	// 随机选择几个词作为话题记忆
	h.rng.Shuffle(len(words), func(i, j int) { words[i], words[j] = words[j], words[i] })
	n := 3
	if len(words) < n {
		n = len(words)
	}
	h.topics[group_id] = strings.Join(words[:n], " ")
}

// AddHumanTouch 为回复添加人类特征：偶尔的语气词、半括号与标点替换
func (h *Humanizer) AddHumanTouch(text string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.chance(0.3) {
		return text
	}
	if h.chance(0.4) {
		text += "（"
	}
	if h.chance(0.3) {
		runes := []rune(text)
		pos := h.rng.Intn(len(runes) + 1)
		filler := fillers[h.rng.Intn(len(fillers))]
		text = string(runes[:pos]) + filler + string(runes[pos:])
	}
	if strings.Contains(text, "。") && h.chance(0.5) {
		repl := "！"
		if h.chance(0.5) {
			repl = "..."
		}
		text = strings.Replace(text, "。", repl, 1)
	}
	return text
}

// TypingDelay 计算模拟打字延迟，按每分钟200字的速度加随机波动与思考时间
func (h *Humanizer) TypingDelay(text string) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	char_per_second := 200.0 / 60.0
	n := len([]rune(text))
	base := float64(n) / char_per_second
	randomness := 0.8 + h.rng.Float64()*0.4
	thinking := 0.0
	if n > 20 {
		thinking = 1.0 + h.rng.Float64()*2.0
	}
	total := base*randomness + thinking
	if total < 1.0 {
		total = 1.0
	}
	return time.Duration(total * float64(time.Second))
}

// ShouldCorrectTypo 决定是否要"修正错别字"
func (h *Humanizer) ShouldCorrectTypo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.chance(0.1)
}

// CorrectionDelay 发送纠错消息前的等待时间
func (h *Humanizer) CorrectionDelay() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Duration((1.0 + h.rng.Float64()*2.0) * float64(time.Second))
}

// MakeCorrection 模拟人类纠正自己的错别字，返回 *词 形式的跟进消息；
// 无可用词时返回空
func (h *Humanizer) MakeCorrection(text string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	words := []string{}
	for _, w := range strings.Fields(text) {
		if len([]rune(w)) > 1 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return ""
	}
	return "*" + words[h.rng.Intn(len(words))]
}
