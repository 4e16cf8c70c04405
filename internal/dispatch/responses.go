package dispatch

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/ericlarwa/gridline/internal/auth"
	"github.com/ericlarwa/gridline/internal/streaming"
)

// Reply payloads are JSON, regardless of which transport carries them: the
// binary frame format only needs to move bytes, and a single shape keeps
// the TCP/QUIC and HTTP views of a response from drifting apart.

type streamView struct {
	ID         uint32 `json:"id"`
	Name       string `json:"name"`
	TopicCount int    `json:"topic_count"`
}

func newStreamView(s *streaming.Stream) streamView {
	return streamView{ID: s.ID, Name: s.Name, TopicCount: len(s.Topics())}
}

type topicView struct {
	ID                   uint32 `json:"id"`
	Name                 string `json:"name"`
	PartitionCount       uint32 `json:"partition_count"`
	Partitioner          uint8  `json:"partitioner"`
	MessageExpirySeconds uint64 `json:"message_expiry_seconds"`
}

func newTopicView(t *streaming.Topic) topicView {
	return topicView{
		ID: t.ID, Name: t.Name, PartitionCount: t.PartitionCount(),
		Partitioner:          uint8(t.Partitioner),
		MessageExpirySeconds: uint64(t.MessageExpiry.Seconds()),
	}
}

type consumerGroupView struct {
	ID      uint32   `json:"id"`
	Name    string   `json:"name"`
	Members []uint32 `json:"members"`
}

func newConsumerGroupView(g *streaming.ConsumerGroup) consumerGroupView {
	return consumerGroupView{ID: g.ID, Name: g.Name, Members: g.Members()}
}

type messageView struct {
	Offset    uint64            `json:"offset"`
	ID        string            `json:"id"`
	Timestamp uint64            `json:"timestamp"`
	Headers   map[string]string `json:"headers,omitempty"`
	Payload   []byte            `json:"payload"`
}

func newMessageView(m streaming.Message) messageView {
	v := messageView{
		Offset:    m.Offset,
		ID:        fmt.Sprintf("%016x%016x", m.ID.High, m.ID.Low),
		Timestamp: m.Timestamp,
		Payload:   m.Payload,
	}
	if len(m.Headers) > 0 {
		v.Headers = make(map[string]string, len(m.Headers))
		for k, hv := range m.Headers {
			v.Headers[k] = base64.StdEncoding.EncodeToString(hv.Bytes)
		}
	}
	return v
}

type offsetView struct {
	Offset uint64 `json:"offset"`
}

type meView struct {
	ClientID      uint32 `json:"client_id"`
	UserID        uint32 `json:"user_id,omitempty"`
	HasUser       bool   `json:"has_user"`
	Authenticated bool   `json:"authenticated"`
}

func newMeView(ctx *auth.Context) meView {
	return meView{
		ClientID: ctx.ClientID, UserID: ctx.UserID,
		HasUser: ctx.HasUser, Authenticated: ctx.Authenticated,
	}
}

type statsView struct {
	StreamCount int `json:"stream_count"`
	ClientCount int `json:"client_count"`
	UserCount   int `json:"user_count"`
}

type loginView struct {
	Token  string `json:"token"`
	UserID uint32 `json:"user_id"`
}

type userView struct {
	ID     uint32 `json:"id"`
	Username string `json:"username"`
	Active bool   `json:"active"`
}

func newUserView(u *auth.User) userView {
	return userView{ID: u.ID, Username: u.Username, Active: u.Active}
}

func encodeJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Every payload above is built from plain fields; a marshal error
		// here means a programming mistake, not bad input.
		panic("dispatch: unmarshalable response: " + err.Error())
	}
	return b
}
