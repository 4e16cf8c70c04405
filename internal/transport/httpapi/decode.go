package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ericlarwa/gridline/internal/auth"
	"github.com/ericlarwa/gridline/internal/wire"
)

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return wire.New(wire.KindInvalidFormat, "httpapi: bad request body: %v", err)
	}
	return nil
}

func (s *Server) decodeCreateUser(_ *auth.Context, r *http.Request) (wire.Command, error) {
	var body struct {
		Username string                  `json:"username"`
		Password string                  `json:"password"`
		Active   bool                    `json:"active"`
		Global   wire.GlobalPermissions  `json:"global"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return wire.CreateUser{Username: body.Username, Password: body.Password, Active: body.Active, Global: body.Global}, nil
}

func (s *Server) decodeUpdateUser(_ *auth.Context, r *http.Request) (wire.Command, error) {
	uid, err := parseUint32(chi.URLParam(r, "userID"))
	if err != nil {
		return nil, err
	}
	var body struct {
		Username *string `json:"username"`
		Active   *bool   `json:"active"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return wire.UpdateUser{UserID: uid, Username: body.Username, Active: body.Active}, nil
}

func (s *Server) decodeUpdatePermissions(_ *auth.Context, r *http.Request) (wire.Command, error) {
	uid, err := parseUint32(chi.URLParam(r, "userID"))
	if err != nil {
		return nil, err
	}
	var body wire.Permissions
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return wire.UpdatePermissions{UserID: uid, Permissions: body}, nil
}

func (s *Server) decodeChangePassword(_ *auth.Context, r *http.Request) (wire.Command, error) {
	uid, err := parseUint32(chi.URLParam(r, "userID"))
	if err != nil {
		return nil, err
	}
	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return wire.ChangePassword{UserID: uid, OldPassword: body.OldPassword, NewPassword: body.NewPassword}, nil
}

func (s *Server) decodeCreateStream(_ *auth.Context, r *http.Request) (wire.Command, error) {
	var body struct {
		StreamID uint32 `json:"id"`
		Name     string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return wire.CreateStream{StreamID: body.StreamID, Name: body.Name}, nil
}

func (s *Server) decodeUpdateStream(_ *auth.Context, r *http.Request) (wire.Command, error) {
	sid, err := parseIdentifierParam(r, "streamID")
	if err != nil {
		return nil, err
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return wire.UpdateStream{StreamID: sid, Name: body.Name}, nil
}

func (s *Server) decodeCreateTopic(_ *auth.Context, r *http.Request) (wire.Command, error) {
	sid, err := parseIdentifierParam(r, "streamID")
	if err != nil {
		return nil, err
	}
	var body struct {
		TopicID              uint32               `json:"id"`
		Name                 string               `json:"name"`
		PartitionsCount      uint32               `json:"partitions_count"`
		Partitioner          wire.TopicPartitioner `json:"partitioner"`
		MessageExpirySeconds uint64               `json:"message_expiry_seconds"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if body.Partitioner == 0 {
		body.Partitioner = wire.PartitionerBalanced
	}
	return wire.CreateTopic{
		StreamID: sid, TopicID: body.TopicID, Name: body.Name,
		PartitionsCount: body.PartitionsCount, Partitioner: body.Partitioner,
		MessageExpirySeconds: body.MessageExpirySeconds,
	}, nil
}

func (s *Server) decodeUpdateTopic(_ *auth.Context, r *http.Request) (wire.Command, error) {
	sid, tid, err := parseStreamTopicParams(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		Name                 string `json:"name"`
		MessageExpirySeconds uint64 `json:"message_expiry_seconds"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return wire.UpdateTopic{StreamID: sid, TopicID: tid, Name: body.Name, MessageExpirySeconds: body.MessageExpirySeconds}, nil
}

func (s *Server) decodeCreatePartitions(_ *auth.Context, r *http.Request) (wire.Command, error) {
	sid, tid, err := parseStreamTopicParams(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		Count uint32 `json:"count"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return wire.CreatePartitions{StreamID: sid, TopicID: tid, PartitionsCount: body.Count}, nil
}

func (s *Server) decodeDeletePartitions(_ *auth.Context, r *http.Request) (wire.Command, error) {
	sid, tid, err := parseStreamTopicParams(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		Count uint32 `json:"count"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return wire.DeletePartitions{StreamID: sid, TopicID: tid, PartitionsCount: body.Count}, nil
}

func (s *Server) decodeSendMessages(_ *auth.Context, r *http.Request) (wire.Command, error) {
	sid, tid, err := parseStreamTopicParams(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		Partitioning struct {
			Kind        wire.PartitioningKind `json:"kind"`
			Key         []byte                `json:"key"`
			PartitionID uint32                `json:"partition_id"`
		} `json:"partitioning"`
		Messages []struct {
			Headers map[string]string `json:"headers"`
			Payload []byte            `json:"payload"`
		} `json:"messages"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	if body.Partitioning.Kind == 0 {
		body.Partitioning.Kind = wire.PartitioningBalanced
	}
	messages := make([]wire.OutgoingMessage, len(body.Messages))
	for i, m := range body.Messages {
		var headers map[string]wire.HeaderValue
		if len(m.Headers) > 0 {
			headers = make(map[string]wire.HeaderValue, len(m.Headers))
			for k, v := range m.Headers {
				headers[k] = wire.HeaderValue{Kind: 1, Bytes: []byte(v)}
			}
		}
		messages[i] = wire.OutgoingMessage{Headers: headers, Payload: m.Payload}
	}
	return wire.SendMessages{
		StreamID: sid, TopicID: tid,
		Partitioning: wire.Partitioning{
			Kind: body.Partitioning.Kind, Key: body.Partitioning.Key, PartitionID: body.Partitioning.PartitionID,
		},
		Messages: messages,
	}, nil
}

func (s *Server) decodePollMessages(ctx *auth.Context, r *http.Request) (wire.Command, error) {
	sid, tid, err := parseStreamTopicParams(r)
	if err != nil {
		return nil, err
	}
	q := r.URL.Query()
	partitionID, _ := parseUint32OrZero(q.Get("partition_id"))
	count, _ := parseUint32OrZero(q.Get("count"))
	if count == 0 {
		count = 10
	}
	strategyKind, _ := parseUint32OrZero(q.Get("strategy"))
	if strategyKind == 0 {
		strategyKind = uint32(wire.PollNext)
	}
	strategyValue, _ := parseUint64OrZero(q.Get("value"))
	consumerID, _ := parseUint32OrZero(q.Get("consumer_id"))
	consumerKind := wire.ConsumerKindConsumer
	if q.Get("group") == "true" {
		consumerKind = wire.ConsumerKindGroup
	}
	return wire.PollMessages{
		Consumer:    wire.Consumer{Kind: consumerKind, ID: consumerID},
		StreamID:    sid,
		TopicID:     tid,
		PartitionID: partitionID,
		Strategy:    wire.PollingStrategy{Kind: wire.PollingStrategyKind(strategyKind), Value: strategyValue},
		Count:       count,
		AutoCommit:  q.Get("auto_commit") == "true",
	}, nil
}

func (s *Server) decodeStoreConsumerOffset(_ *auth.Context, r *http.Request) (wire.Command, error) {
	sid, tid, err := parseStreamTopicParams(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		ConsumerID   uint32 `json:"consumer_id"`
		Group        bool   `json:"group"`
		PartitionID  *uint32 `json:"partition_id"`
		Offset       uint64 `json:"offset"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	kind := wire.ConsumerKindConsumer
	if body.Group {
		kind = wire.ConsumerKindGroup
	}
	return wire.StoreConsumerOffset{
		Consumer: wire.Consumer{Kind: kind, ID: body.ConsumerID},
		StreamID: sid, TopicID: tid, PartitionID: body.PartitionID, Offset: body.Offset,
	}, nil
}

func (s *Server) decodeGetConsumerOffset(_ *auth.Context, r *http.Request) (wire.Command, error) {
	sid, tid, err := parseStreamTopicParams(r)
	if err != nil {
		return nil, err
	}
	q := r.URL.Query()
	consumerID, _ := parseUint32OrZero(q.Get("consumer_id"))
	kind := wire.ConsumerKindConsumer
	if q.Get("group") == "true" {
		kind = wire.ConsumerKindGroup
	}
	var partitionID *uint32
	if v := q.Get("partition_id"); v != "" {
		p, err := parseUint32(v)
		if err != nil {
			return nil, err
		}
		partitionID = &p
	}
	return wire.GetConsumerOffset{
		Consumer: wire.Consumer{Kind: kind, ID: consumerID},
		StreamID: sid, TopicID: tid, PartitionID: partitionID,
	}, nil
}

func (s *Server) decodeCreateConsumerGroup(_ *auth.Context, r *http.Request) (wire.Command, error) {
	sid, tid, err := parseStreamTopicParams(r)
	if err != nil {
		return nil, err
	}
	var body struct {
		GroupID uint32 `json:"id"`
		Name    string `json:"name"`
	}
	if err := decodeBody(r, &body); err != nil {
		return nil, err
	}
	return wire.CreateConsumerGroup{StreamID: sid, TopicID: tid, GroupID: body.GroupID, Name: body.Name}, nil
}

func parseUint32OrZero(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	return parseUint32(s)
}

func parseUint64OrZero(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, wire.New(wire.KindInvalidFormat, "httpapi: bad value %q", s)
	}
	return v, nil
}
