package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldReplyBaseRate(t *testing.T) {
	h := NewHumanizer(1)
	// base_rate为1时必定回复（Float64 < 1.0 恒成立）
	assert.True(t, h.ShouldReply("随便说点什么", false, 1, 2, 1.0))
}

func TestShouldReplyAtStatistics(t *testing.T) {
	h := NewHumanizer(1)
	hits := 0
	for i := 0; i < 1000; i++ {
		if h.ShouldReply("在吗", true, 1, 2, 0) {
			hits++
		}
	}
	// 被@时约95%概率回复，偶尔装没看到
	assert.Greater(t, hits, 900)
	assert.Less(t, hits, 1000)
}

func TestShouldReplyRecentUserThrottle(t *testing.T) {
	h := NewHumanizer(1)
	current := time.Now()
	h.now = func() time.Time { return current }
	h.UpdateConversationState(1, 2, "")

	hits := 0
	for i := 0; i < 1000; i++ {
		if h.ShouldReply("无关内容", false, 1, 2, 1.0) {
			hits++
		}
	}
	// 5分钟内回复过该用户，即使base_rate为1也降到约20%
	assert.Greater(t, hits, 100)
	assert.Less(t, hits, 320)
}

func TestUpdateConversationStateTopics(t *testing.T) {
	h := NewHumanizer(1)
	h.UpdateConversationState(1, 2, "今天 天气 真好 出去 玩吧")

	h.mu.Lock()
	topic := h.topics[1]
	h.mu.Unlock()
	require.NotEmpty(t, topic)
	assert.LessOrEqual(t, len(strings.Fields(topic)), 3)
}

func TestTopicRelevanceRaisesReplyRate(t *testing.T) {
	h := NewHumanizer(1)
	h.UpdateConversationState(1, 2, "天气")
	// 绕过5分钟限制
	h.mu.Lock()
	h.last_reply = map[string]time.Time{}
	h.mu.Unlock()

	hits := 0
	for i := 0; i < 1000; i++ {
		if h.ShouldReply("今天天气怎么样", false, 1, 3, 0) {
			hits++
		}
	}
	// 话题相关约85%
	assert.Greater(t, hits, 780)
	assert.Less(t, hits, 920)
}

func TestTypingDelayBounds(t *testing.T) {
	h := NewHumanizer(1)
	short := h.TypingDelay("好")
	assert.GreaterOrEqual(t, short, time.Second)
	assert.Less(t, short, 2*time.Second)

	long := h.TypingDelay(strings.Repeat("字", 100))
	// 100字按每分钟200字约30秒，加波动与思考时间
	assert.Greater(t, long, 20*time.Second)
	assert.Less(t, long, 45*time.Second)
}

func TestAddHumanTouchKeepsOrChanges(t *testing.T) {
	h := NewHumanizer(1)
	original := "今天的天气很不错。"
	changed := 0
	for i := 0; i < 1000; i++ {
		if h.AddHumanTouch(original) != original {
			changed++
		}
	}
	// 约30%概率加入人类特征
	assert.Greater(t, changed, 150)
	assert.Less(t, changed, 450)
}

func TestMakeCorrection(t *testing.T) {
	h := NewHumanizer(1)
	correction := h.MakeCorrection("这是 一个 测试")
	assert.True(t, strings.HasPrefix(correction, "*"))
	assert.Greater(t, len([]rune(correction)), 1)

	assert.Empty(t, h.MakeCorrection(""))
	assert.Empty(t, h.MakeCorrection("a b c")) // 单字符词不作为纠错对象
}

func TestCorrectionDelayBounds(t *testing.T) {
	h := NewHumanizer(1)
	for i := 0; i < 100; i++ {
		d := h.CorrectionDelay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
}
