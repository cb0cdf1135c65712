package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	events "github.com/akane-bot/akane/events"
)

/* OneBot V11 动作调用，经正向ws连接发送，以echo字段关联响应 */

type actionRequest struct {
	Action string      `json:"action"`
	Params interface{} `json:"params,omitempty"`
	Echo   string      `json:"echo"`
}

type actionResponse struct {
	Status  string          `json:"status"`
	Retcode int             `json:"retcode"`
	Data    json.RawMessage `json:"data"`
	Msg     string          `json:"msg"`
	Wording string          `json:"wording"`
	Echo    string          `json:"echo"`
}

var ErrNotConnected = errors.New("onebot: ws未连接")

// CallAction 发送动作请求并等待响应；resp_data为nil时丢弃响应数据
func (a *Adapter) CallAction(ctx context.Context, action string, params interface{}, resp_data interface{}) error {
	echo := uuid.NewString()
	ch := make(chan actionResponse, 1)
	a.addPending(echo, ch)
	defer a.removePending(echo)

	if err := a.writeJSON(actionRequest{Action: action, Params: params, Echo: echo}); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	select {
	case resp := <-ch:
		if resp.Status == "failed" || resp.Retcode != 0 {
			msg := resp.Msg
			if resp.Wording != "" {
				msg = resp.Wording
			}
			return fmt.Errorf("onebot: 动作 %s 失败 (retcode=%d): %s", action, resp.Retcode, msg)
		}
		if resp_data != nil && len(resp.Data) > 0 {
			if err := json.Unmarshal(resp.Data, resp_data); err != nil {
				return fmt.Errorf("onebot: 动作 %s 响应解码失败: %w", action, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("onebot: 动作 %s 等待响应超时: %w", action, ctx.Err())
	}
}

// SendGroupMsg 发送群消息，返回message_id
func (a *Adapter) SendGroupMsg(ctx context.Context, group_id int64, msg events.Message) (int64, error) {
	params := map[string]interface{}{"group_id": group_id, "message": msg}
	var resp struct {
		MessageID int64 `json:"message_id"`
	}
	if err := a.CallAction(ctx, "send_group_msg", params, &resp); err != nil {
		return 0, err
	}
	return resp.MessageID, nil
}

// GetGroupMemberInfo 获取群成员信息（用于管理员权限判定）
func (a *Adapter) GetGroupMemberInfo(ctx context.Context, group_id, user_id int64) (*events.GroupMember, error) {
	params := map[string]interface{}{"group_id": group_id, "user_id": user_id, "no_cache": false}
	var member events.GroupMember
	if err := a.CallAction(ctx, "get_group_member_info", params, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// DeleteMsg 撤回消息
func (a *Adapter) DeleteMsg(ctx context.Context, message_id int64) error {
	return a.CallAction(ctx, "delete_msg", map[string]interface{}{"message_id": message_id}, nil)
}
