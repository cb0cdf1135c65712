package console

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/akane-bot/akane/config"
	events "github.com/akane-bot/akane/events"
	logger "github.com/akane-bot/akane/logger"
)

type recordSink struct {
	events []events.Event
}

func (s *recordSink) Dispatch(ev events.Event) {
	s.events = append(s.events, ev)
}

func newTestAdapter(t *testing.T, input string) (*Adapter, *recordSink) {
	cfg := config.Default()
	cfg.Bot.QQ = 10001
	sink := &recordSink{}
	instance, err := New(cfg, sink, logger.NewDefaultLogger("test"))
	require.NoError(t, err)
	a := instance.(*Adapter)
	a.in = strings.NewReader(input)
	return a, sink
}

func TestRunSynthesizesGroupMessages(t *testing.T) {
	a, sink := newTestAdapter(t, "hello\n@在吗\n\n/sessions\n/exit\n")

	require.NoError(t, a.Run(context.Background()))
	require.Len(t, sink.events, 2)

	first, err := sink.events[0].AsGroupMessage()
	require.NoError(t, err)
	assert.Equal(t, DebugGroupID, first.GroupID)
	assert.Equal(t, DebugUserID, first.UserID)
	assert.Equal(t, "hello", first.GetContent(false))
	assert.False(t, first.IsAtMe())

	second, err := sink.events[1].AsGroupMessage()
	require.NoError(t, err)
	assert.Equal(t, "在吗", second.GetContent(false))
	assert.True(t, second.IsAtMe())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	a, _ := newTestAdapter(t, "") // 空输入，scanner立即结束
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.NoError(t, a.Run(ctx))
}

func TestMessageIDsIncrease(t *testing.T) {
	a, sink := newTestAdapter(t, "one\ntwo\n/exit\n")
	require.NoError(t, a.Run(context.Background()))
	require.Len(t, sink.events, 2)

	first, _ := sink.events[0].AsGroupMessage()
	second, _ := sink.events[1].AsGroupMessage()
	assert.Less(t, first.MessageID, second.MessageID)
}

func TestAPIImplementation(t *testing.T) {
	a, _ := newTestAdapter(t, "")

	id, err := a.SendGroupMsg(context.Background(), DebugGroupID, events.NewMessage("hi"))
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	member, err := a.GetGroupMemberInfo(context.Background(), DebugGroupID, DebugUserID)
	require.NoError(t, err)
	assert.True(t, member.IsAdmin())

	assert.NoError(t, a.DeleteMsg(context.Background(), id))
}
