package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	config "github.com/akane-bot/akane/config"
)

// Message OpenAI风格的对话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RequestError AI请求异常
type RequestError struct {
	Message    string
	StatusCode int
	Response   []byte
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (状态码: %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// CompletionOptions 单次调用的可选参数；Model为空时按配置概率随机选择
type CompletionOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Client AI接口客户端封装，对接OpenAI兼容的chat/completions端点
type Client struct {
	cfg         *config.Config
	http_client *http.Client
	max_retries int

	rng_mu sync.Mutex
	rng    *rand.Rand
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:         cfg,
		http_client: &http.Client{Timeout: 30 * time.Second},
		max_retries: 2,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Client) randomModel() string {
	c.rng_mu.Lock()
	defer c.rng_mu.Unlock()
	return c.cfg.RandomModel(c.rng)
}

// alternateModel 返回与model不同的另一个候选模型，不存在时返回空
func (c *Client) alternateModel(model string) string {
	for m := range c.cfg.Response.ModelProbabilities {
		if m != model {
			return m
		}
	}
	return ""
}

func joinURL(base, endpoint string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// retryableStatus 对限流与服务端错误进行重试
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *Client) makeRequest(ctx context.Context, endpoint string, payload map[string]interface{}) ([]byte, error) {
	api_base, api_key := c.cfg.CurrentAPI()
	if api_base == "" || api_key == "" {
		return nil, &RequestError{Message: "API配置不完整"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	var last_err error
	for attempt := 0; attempt <= c.max_retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(api_base, endpoint), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+api_key)

		resp, err := c.http_client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			last_err = &RequestError{Message: "请求异常: " + err.Error()}
			continue
		}
		data, read_err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if read_err != nil {
			last_err = &RequestError{Message: "读取响应失败: " + read_err.Error()}
			continue
		}

		if resp.StatusCode != http.StatusOK {
			req_err := &RequestError{Message: "API请求失败", StatusCode: resp.StatusCode, Response: data}
			var api_err struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			if json.Unmarshal(data, &api_err) == nil && api_err.Error.Message != "" {
				req_err.Message = "API错误: " + api_err.Error.Message
			}
			if retryableStatus(resp.StatusCode) {
				last_err = req_err
				continue
			}
			return nil, req_err
		}

		return data, nil
	}
	return nil, last_err
}

// ChatCompletion 获取聊天回复；对400/404自动改用另一模型重试一次
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, opts *CompletionOptions) (string, error) {
	if opts == nil {
		opts = &CompletionOptions{}
	}
	if opts.Model == "" {
		opts.Model = c.randomModel()
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}

	text, err := c.completeOnce(ctx, messages, opts)
	if err == nil {
		return text, nil
	}
	var req_err *RequestError
	if errors.As(err, &req_err) &&
		(req_err.StatusCode == http.StatusBadRequest || req_err.StatusCode == http.StatusNotFound) {
		if alt := c.alternateModel(opts.Model); alt != "" {
			retry_opts := *opts
			retry_opts.Model = alt
			if text, retry_err := c.completeOnce(ctx, messages, &retry_opts); retry_err == nil {
				return text, nil
			}
		}
	}
	return "", err
}

func (c *Client) completeOnce(ctx context.Context, messages []Message, opts *CompletionOptions) (string, error) {
	payload := map[string]interface{}{
		"model":       opts.Model,
		"messages":    messages,
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		payload["max_tokens"] = opts.MaxTokens
	}

	data, err := c.makeRequest(ctx, "chat/completions", payload)
	if err != nil {
		return "", err
	}
	var completion struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &completion); err != nil {
		return "", &RequestError{Message: "响应解码失败: " + err.Error(), Response: data}
	}
	if len(completion.Choices) == 0 {
		return "", &RequestError{Message: "响应不包含任何choice", Response: data}
	}
	return completion.Choices[0].Message.Content, nil
}
