package onebot

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	adapters "github.com/akane-bot/akane/adapters"
	config "github.com/akane-bot/akane/config"
	events "github.com/akane-bot/akane/events"
	logger "github.com/akane-bot/akane/logger"
)

// Adapter 实现OneBot V11协议：正向ws客户端接收事件并调用动作，
// 可选地同时开启反向http上报端点（X-Signature签名校验）
type Adapter struct {
	cfg  config.OneBotConfig
	sink adapters.Sink
	log  logger.Logger

	timeout time.Duration

	write_mu sync.Mutex // 保护ws并发写
	conn_mu  sync.Mutex
	conn     *websocket.Conn

	pending_mu sync.Mutex
	pending    map[string]chan actionResponse
}

func New(cfg *config.Config, sink adapters.Sink, log logger.Logger) (adapters.Adapter, error) {
	if cfg.OneBot.WSURL == "" && cfg.OneBot.Listen == "" {
		return nil, errors.New("onebot: ws_url与listen至少需要配置一项")
	}
	return &Adapter{
		cfg:     cfg.OneBot,
		sink:    sink,
		log:     log,
		timeout: 30 * time.Second,
		pending: make(map[string]chan actionResponse),
	}, nil
}

func (a *Adapter) Name() string { return "onebot" }

func (a *Adapter) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.WSURL != "" {
		g.Go(func() error { return a.wsClientLoop(ctx) })
	}
	if a.cfg.Listen != "" {
		g.Go(func() error { return a.runWebhook(ctx) })
	}
	return g.Wait()
}

/* --------- ws client start --------- */

func (a *Adapter) wsClientLoop(ctx context.Context) error {
	do_once_flag := true
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		func() {
			header := http.Header{}
			if a.cfg.AccessToken != "" {
				header.Set("Authorization", "Bearer "+a.cfg.AccessToken)
			}
			conn, resp, err := websocket.DefaultDialer.DialContext(ctx, a.cfg.WSURL, header)
			if err != nil {
				if resp != nil { // 握手被拒绝时仍会返回响应
					resp.Body.Close()
				}
				a.log.Errorf("ws服务端 %v 连接失败：%s\n", a.cfg.WSURL, err.Error())
				return
			}
			defer conn.Close()
			resp.Body.Close()
			if do_once_flag {
				do_once_flag = false
				a.log.Infof("ws服务端 %v 连接成功\n", a.cfg.WSURL)
			} else {
				a.log.Debugf("ws服务端 %v 重新连接成功\n", a.cfg.WSURL)
			}
			a.setConn(conn)
			defer a.setConn(nil)
			go func() { // 随ctx取消关闭连接，解除ReadMessage阻塞
				<-ctx.Done()
				conn.Close()
			}()
			a.readLoop(conn)
		}()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
}

func (a *Adapter) readLoop(conn *websocket.Conn) {
	for {
		mtype, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mtype != websocket.TextMessage {
			continue
		}
		a.handleFrame(raw)
	}
}

// 区分动作响应（带echo）与事件上报
func (a *Adapter) handleFrame(raw []byte) {
	var probe struct {
		Echo     string `json:"echo"`
		PostType string `json:"post_type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		a.log.Errorf("decode frame error (%v): %s\n", err, string(raw))
		return
	}
	if probe.Echo != "" && probe.PostType == "" {
		var resp actionResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			a.log.Error("decode action response error: ", err)
			return
		}
		a.pending_mu.Lock()
		ch, ok := a.pending[resp.Echo]
		a.pending_mu.Unlock()
		if ok {
			ch <- resp
		}
		return
	}
	a.dispatchEvent(raw)
}

func (a *Adapter) dispatchEvent(raw []byte) {
	ev, err := events.Decode(raw, a)
	if err != nil {
		a.log.Errorf("decode event error (%v): %s\n", err, string(raw))
		return
	}
	if ev.PostType == "meta_event" { // 心跳与生命周期包不进入处理管线
		switch ev.MetaEventType {
		case "heartbeat":
			a.log.Debug("heartbeat")
		case "lifecycle":
			a.log.Infof("OneBot连接生命周期事件 (self_id=%v)\n", ev.SelfID)
		}
		return
	}
	a.sink.Dispatch(ev)
}

func (a *Adapter) setConn(conn *websocket.Conn) {
	a.conn_mu.Lock()
	a.conn = conn
	a.conn_mu.Unlock()
}

func (a *Adapter) writeJSON(v interface{}) error {
	a.conn_mu.Lock()
	conn := a.conn
	a.conn_mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	a.write_mu.Lock()
	defer a.write_mu.Unlock()
	return conn.WriteJSON(v)
}

func (a *Adapter) addPending(echo string, ch chan actionResponse) {
	a.pending_mu.Lock()
	a.pending[echo] = ch
	a.pending_mu.Unlock()
}

func (a *Adapter) removePending(echo string) {
	a.pending_mu.Lock()
	delete(a.pending, echo)
	a.pending_mu.Unlock()
}

/* --------- ws client end --------- */

/* --------- http webhook start --------- */

func (a *Adapter) runWebhook(ctx context.Context) error {
	path := a.cfg.Path
	if path == "" {
		path = "/"
	}
	svr := gin.New()
	svr.Use(gin.Recovery())
	svr.POST(path, a.hook)

	http_svr := &http.Server{Addr: a.cfg.Listen, Handler: svr}
	go func() {
		<-ctx.Done()
		shutdown_ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		http_svr.Shutdown(shutdown_ctx)
	}()
	a.log.Infof("OneBot上报端点于 localhost%v%v 开始运行\n", a.cfg.Listen, path)
	err := http_svr.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *Adapter) hook(c *gin.Context) {
	if c.ContentType() != "application/json" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "bad request"})
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		a.log.Error("new event read body error: ", err)
		c.Status(http.StatusBadRequest)
		return
	}
	if a.cfg.Secret != "" {
		if !verifySignature(raw, a.cfg.Secret, c.GetHeader("X-Signature")) {
			a.log.Debug("new event verify error, rejected")
			c.Status(http.StatusForbidden)
			return
		}
	}
	a.dispatchEvent(raw)
	c.Status(http.StatusNoContent)
}

// verifySignature 校验OneBot V11上报签名：X-Signature为 "sha1=" + HMAC-SHA1(body, secret) 的hex
func verifySignature(body []byte, secret, signature string) bool {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	expected := "sha1=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

/* --------- http webhook end --------- */

func init() {
	gin.SetMode(gin.ReleaseMode) // default to release mode
	adapters.RegisterAdapter("onebot", New)
}
