package dispatch

import (
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/ericlarwa/gridline/internal/auth"
	"github.com/ericlarwa/gridline/internal/clients"
	"github.com/ericlarwa/gridline/internal/metrics"
	"github.com/ericlarwa/gridline/internal/streaming"
	"github.com/ericlarwa/gridline/internal/wire"
)

// Dispatcher wires a decoded command to the streaming engine, the user
// store and the permissioner. One Dispatcher is shared by every transport.
type Dispatcher struct {
	engine  *streaming.Engine
	users   *auth.Store
	perm    *auth.Permissioner
	tokens  *auth.TokenIssuer
	clients *clients.Manager
	metrics *metrics.Metrics
	log     *zap.Logger
}

func New(engine *streaming.Engine, users *auth.Store, perm *auth.Permissioner, tokens *auth.TokenIssuer, cm *clients.Manager, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	return &Dispatcher{engine: engine, users: users, perm: perm, tokens: tokens, clients: cm, metrics: m, log: log}
}

// Dispatch decodes payload as code, runs it against ctx's session, and
// writes exactly one reply through sender.
func (d *Dispatcher) Dispatch(ctx *auth.Context, code uint32, payload []byte, sender Sender) {
	cmd, err := wire.Decode(code, payload)
	if err != nil {
		d.fail(sender, err)
		return
	}
	reply, err := d.handle(ctx, cmd)
	if err != nil {
		d.fail(sender, err)
		return
	}
	if err := sender.Reply(wire.KindOK, reply); err != nil {
		d.log.Warn("reply write failed", zap.Error(err))
	}
}

// Handle runs an already-constructed command directly, skipping the frame
// codec. The HTTP transport uses this: its requests decode straight from
// JSON/path parameters into a wire.Command instead of a binary payload.
func (d *Dispatcher) Handle(ctx *auth.Context, cmd wire.Command) ([]byte, error) {
	return d.handle(ctx, cmd)
}

func (d *Dispatcher) fail(sender Sender, err error) {
	werr := wire.As(err)
	if sendErr := sender.Reply(werr.Kind, []byte(werr.Message)); sendErr != nil {
		d.log.Warn("error reply write failed", zap.Error(sendErr))
	}
}

func idLabel(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

func kindLabel(k wire.Kind) string { return strconv.FormatUint(uint64(k), 10) }

func (d *Dispatcher) requireAuth(ctx *auth.Context) error {
	return auth.AllowAuthenticated(ctx.Authenticated, ctx.AuthDisabled)
}

func (d *Dispatcher) allow(ctx *auth.Context, action auth.Action, streamID, topicID uint32) error {
	if err := d.requireAuth(ctx); err != nil {
		return err
	}
	if !d.perm.Allow(ctx.UserID, action, streamID, topicID) {
		return wire.New(wire.KindUnauthorized, "dispatch: permission denied")
	}
	return nil
}

// handle runs one already-decoded command. Numeric stream/topic ids from
// a still-unresolved command are only available after a successful
// engine.ResolveStream/Topic lookup, so the permission check for
// name-addressed resources happens after resolution, using the resolved
// numeric id (§4.7 operates on numeric ids only).
func (d *Dispatcher) handle(ctx *auth.Context, cmd wire.Command) ([]byte, error) {
	switch c := cmd.(type) {

	case wire.Ping:
		return nil, nil

	case wire.GetMe:
		if err := d.requireAuth(ctx); err != nil {
			return nil, err
		}
		return encodeJSON(newMeView(ctx)), nil

	case wire.GetStats:
		if err := d.allow(ctx, auth.ActionReadServers, 0, 0); err != nil {
			return nil, err
		}
		return encodeJSON(statsView{
			StreamCount: len(d.engine.Streams()),
			ClientCount: d.clients.Count(),
			UserCount:   len(d.users.List()),
		}), nil

	case wire.GetClient:
		if err := d.allow(ctx, auth.ActionReadServers, 0, 0); err != nil {
			return nil, err
		}
		info, err := d.clients.Get(c.ClientID)
		if err != nil {
			return nil, err
		}
		return encodeJSON(info), nil

	case wire.GetClients:
		if err := d.allow(ctx, auth.ActionReadServers, 0, 0); err != nil {
			return nil, err
		}
		return encodeJSON(d.clients.List()), nil

	case wire.LoginUser:
		u, err := d.users.Authenticate(c.Username, c.Password)
		if err != nil {
			return nil, err
		}
		ctx.Login(u.ID)
		d.clients.NoteLogin(ctx.ClientID, u.ID)
		token, err := d.tokens.Issue(u.ID)
		if err != nil {
			return nil, wire.Wrap(wire.KindIOError, err)
		}
		return encodeJSON(loginView{Token: token, UserID: u.ID}), nil

	case wire.LogoutUser:
		ctx.Logout()
		return nil, nil

	case wire.CreateUser:
		if err := d.allow(ctx, auth.ActionManageUsers, 0, 0); err != nil {
			return nil, err
		}
		u, err := d.users.Create(c.Username, c.Password, c.Active, c.Global)
		if err != nil {
			return nil, err
		}
		return encodeJSON(newUserView(u)), nil

	case wire.DeleteUser:
		if err := d.allow(ctx, auth.ActionManageUsers, 0, 0); err != nil {
			return nil, err
		}
		return nil, d.users.Delete(c.UserID)

	case wire.UpdateUser:
		if err := d.allow(ctx, auth.ActionManageUsers, 0, 0); err != nil {
			return nil, err
		}
		return nil, d.users.Update(c.UserID, c.Username, c.Active)

	case wire.UpdatePermissions:
		if err := d.allow(ctx, auth.ActionManageUsers, 0, 0); err != nil {
			return nil, err
		}
		return nil, d.users.UpdatePermissions(c.UserID, c.Permissions)

	case wire.ChangePassword:
		if err := d.requireAuth(ctx); err != nil {
			return nil, err
		}
		if ctx.UserID != c.UserID && !d.perm.Allow(ctx.UserID, auth.ActionManageUsers, 0, 0) {
			return nil, wire.New(wire.KindUnauthorized, "dispatch: cannot change another user's password")
		}
		return nil, d.users.ChangePassword(c.UserID, c.OldPassword, c.NewPassword)

	case wire.CreateStream:
		if err := d.allow(ctx, auth.ActionManageStreams, 0, 0); err != nil {
			return nil, err
		}
		s, err := d.engine.CreateStream(c.StreamID, c.Name)
		if err != nil {
			return nil, err
		}
		return encodeJSON(newStreamView(s)), nil

	case wire.UpdateStream:
		s, err := d.engine.ResolveStream(c.StreamID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionManageStream, s.ID, 0); err != nil {
			return nil, err
		}
		return nil, d.engine.UpdateStream(c.StreamID, c.Name)

	case wire.DeleteStream:
		s, err := d.engine.ResolveStream(c.StreamID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionManageStream, s.ID, 0); err != nil {
			return nil, err
		}
		return nil, d.engine.DeleteStream(c.StreamID)

	case wire.GetStream:
		s, err := d.engine.ResolveStream(c.StreamID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionReadStream, s.ID, 0); err != nil {
			return nil, err
		}
		return encodeJSON(newStreamView(s)), nil

	case wire.GetStreams:
		if err := d.requireAuth(ctx); err != nil {
			return nil, err
		}
		var views []streamView
		for _, s := range d.engine.Streams() {
			if d.perm.Allow(ctx.UserID, auth.ActionReadStream, s.ID, 0) {
				views = append(views, newStreamView(s))
			}
		}
		return encodeJSON(views), nil

	case wire.CreateTopic:
		s, err := d.engine.ResolveStream(c.StreamID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionManageStream, s.ID, 0); err != nil {
			return nil, err
		}
		t, err := s.CreateTopic(c.TopicID, c.Name, c.Partitioner, secondsToDuration(c.MessageExpirySeconds), c.PartitionsCount)
		if err != nil {
			return nil, err
		}
		return encodeJSON(newTopicView(t)), nil

	case wire.UpdateTopic:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionManageTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		return nil, s.UpdateTopic(t.ID, c.Name, secondsToDuration(c.MessageExpirySeconds))

	case wire.DeleteTopic:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionManageTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		return nil, s.DeleteTopic(t.ID)

	case wire.GetTopic:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionReadStream, s.ID, t.ID); err != nil {
			return nil, err
		}
		return encodeJSON(newTopicView(t)), nil

	case wire.GetTopics:
		s, err := d.engine.ResolveStream(c.StreamID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionReadStream, s.ID, 0); err != nil {
			return nil, err
		}
		views := make([]topicView, 0)
		for _, t := range s.Topics() {
			views = append(views, newTopicView(t))
		}
		return encodeJSON(views), nil

	case wire.CreatePartitions:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionManageTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		if err := t.CreatePartitions(c.PartitionsCount); err != nil {
			return nil, err
		}
		d.rebalanceGroups(t)
		return nil, nil

	case wire.DeletePartitions:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionManageTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		if err := t.DeletePartitions(c.PartitionsCount); err != nil {
			return nil, err
		}
		d.rebalanceGroups(t)
		return nil, nil

	case wire.SendMessages:
		_, t, err := d.resolveStreamTopicForSend(ctx, c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		p, err := t.ResolvePartition(c.Partitioning)
		if err != nil {
			return nil, err
		}
		msgs, err := p.Append(c.Messages)
		if err != nil {
			d.metrics.AppendErrors.WithLabelValues(kindLabel(wire.As(err).Kind)).Inc()
			return nil, err
		}
		d.metrics.MessagesAppended.WithLabelValues(idLabel(t.StreamID), idLabel(t.ID), idLabel(p.ID)).Add(float64(len(msgs)))
		out := make([]messageView, len(msgs))
		for i, m := range msgs {
			out[i] = newMessageView(m)
		}
		return encodeJSON(out), nil

	case wire.PollMessages:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionPollTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		p, err := d.resolvePollPartition(ctx, t, c)
		if err != nil {
			return nil, err
		}
		msgs, err := p.Poll(c.Consumer, c.Strategy, c.Count, c.AutoCommit)
		if err != nil {
			return nil, err
		}
		d.metrics.MessagesPolled.WithLabelValues(idLabel(t.StreamID), idLabel(t.ID), idLabel(p.ID)).Add(float64(len(msgs)))
		out := make([]messageView, len(msgs))
		for i, m := range msgs {
			out[i] = newMessageView(m)
		}
		return encodeJSON(out), nil

	case wire.StoreConsumerOffset:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionPollTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		p, err := d.partitionForOffset(t, c.PartitionID)
		if err != nil {
			return nil, err
		}
		return nil, p.StoreConsumerOffset(c.Consumer, c.Offset)

	case wire.GetConsumerOffset:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionPollTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		p, err := d.partitionForOffset(t, c.PartitionID)
		if err != nil {
			return nil, err
		}
		return encodeJSON(offsetView{Offset: p.GetConsumerOffset(c.Consumer)}), nil

	case wire.CreateConsumerGroup:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionManageTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		g, err := t.CreateConsumerGroup(c.GroupID, c.Name)
		if err != nil {
			return nil, err
		}
		return encodeJSON(newConsumerGroupView(g)), nil

	case wire.DeleteConsumerGroup:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionManageTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		gid, err := d.resolveConsumerGroupID(t, c.GroupID)
		if err != nil {
			return nil, err
		}
		return nil, t.DeleteConsumerGroup(gid)

	case wire.GetConsumerGroup:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionReadStream, s.ID, t.ID); err != nil {
			return nil, err
		}
		gid, err := d.resolveConsumerGroupID(t, c.GroupID)
		if err != nil {
			return nil, err
		}
		g, err := t.GetConsumerGroup(gid)
		if err != nil {
			return nil, err
		}
		return encodeJSON(newConsumerGroupView(g)), nil

	case wire.GetConsumerGroups:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionReadStream, s.ID, t.ID); err != nil {
			return nil, err
		}
		groups := t.ConsumerGroups()
		sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
		views := make([]consumerGroupView, len(groups))
		for i, g := range groups {
			views[i] = newConsumerGroupView(g)
		}
		return encodeJSON(views), nil

	case wire.JoinConsumerGroup:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionPollTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		gid, err := d.resolveConsumerGroupID(t, c.GroupID)
		if err != nil {
			return nil, err
		}
		g, err := t.GetConsumerGroup(gid)
		if err != nil {
			return nil, err
		}
		assignment := g.Join(ctx.ClientID)
		return encodeJSON(assignment), nil

	case wire.LeaveConsumerGroup:
		s, t, err := d.resolveStreamTopic(c.StreamID, c.TopicID)
		if err != nil {
			return nil, err
		}
		if err := d.allow(ctx, auth.ActionPollTopic, s.ID, t.ID); err != nil {
			return nil, err
		}
		gid, err := d.resolveConsumerGroupID(t, c.GroupID)
		if err != nil {
			return nil, err
		}
		g, err := t.GetConsumerGroup(gid)
		if err != nil {
			return nil, err
		}
		g.Leave(ctx.ClientID)
		return nil, nil

	default:
		return nil, wire.New(wire.KindInvalidCommand, "dispatch: unhandled command %T", cmd)
	}
}
