package events

import (
	"encoding/json"
	"strconv"
	"strings"
)

/* OneBot V11 消息段（数组格式） */

type Segment struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

// OneBot实现对data字段的取值类型并不统一（如qq可能为字符串或数字），统一转为字符串保存
func (s *Segment) UnmarshalJSON(b []byte) error {
	var raw struct {
		Type string                     `json:"type"`
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.Type = raw.Type
	s.Data = make(map[string]string, len(raw.Data))
	for k, v := range raw.Data {
		var str string
		if err := json.Unmarshal(v, &str); err == nil {
			s.Data[k] = str
		} else {
			s.Data[k] = string(v)
		}
	}
	return nil
}

type Message []Segment

/* 构造用的辅助函数 */

func Text(text string) Segment {
	return Segment{Type: "text", Data: map[string]string{"text": text}}
}

func At(qq int64) Segment {
	return Segment{Type: "at", Data: map[string]string{"qq": strconv.FormatInt(qq, 10)}}
}

func Image(file string) Segment {
	return Segment{Type: "image", Data: map[string]string{"file": file}}
}

func Reply(message_id int64) Segment {
	return Segment{Type: "reply", Data: map[string]string{"id": strconv.FormatInt(message_id, 10)}}
}

func Face(id int) Segment {
	return Segment{Type: "face", Data: map[string]string{"id": strconv.Itoa(id)}}
}

// NewMessage 以一段纯文本创建消息
func NewMessage(text string) Message {
	return Message{Text(text)}
}

func (m Message) Append(seg Segment) Message {
	return append(m, seg)
}

// ExtractPlainText 提取消息中全部text段落并去除首尾空白
func (m Message) ExtractPlainText() string {
	var b strings.Builder
	for _, seg := range m {
		if seg.Type == "text" {
			b.WriteString(seg.Data["text"])
		}
	}
	return strings.TrimSpace(b.String())
}

// ExtractImageURLs 提取消息中全部图片地址
func (m Message) ExtractImageURLs() []string {
	urls := []string{}
	for _, seg := range m {
		if seg.Type == "image" && seg.Data["url"] != "" {
			urls = append(urls, seg.Data["url"])
		}
	}
	return urls
}

// HasAt 检查消息中是否@了指定QQ号
func (m Message) HasAt(qq int64) bool {
	id := strconv.FormatInt(qq, 10)
	for _, seg := range m {
		if seg.Type == "at" && seg.Data["qq"] == id {
			return true
		}
	}
	return false
}

// TreatContent 去除指令前缀/与首尾空白（at段不计入纯文本，无需再剔除@）
func TreatContent(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimLeft(content, "/")
	return strings.TrimSpace(content)
}

// String 返回CQ码风格的可读形式，仅用于日志展示
func (m Message) String() string {
	var b strings.Builder
	for _, seg := range m {
		if seg.Type == "text" {
			b.WriteString(seg.Data["text"])
			continue
		}
		b.WriteString("[CQ:")
		b.WriteString(seg.Type)
		for k, v := range seg.Data {
			b.WriteString(",")
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(v)
		}
		b.WriteString("]")
	}
	return b.String()
}
