package auth

import "github.com/ericlarwa/gridline/internal/wire"

// Action names one of the gates the dispatcher calls before invoking a
// handler (§4.7: "the matching gate").
type Action uint8

const (
	ActionManageServers Action = iota
	ActionReadServers
	ActionManageUsers
	ActionReadUsers
	ActionManageStreams
	ActionReadStreams
	ActionManageStream
	ActionReadStream
	ActionPollTopic
	ActionSendTopic
	ActionManageTopic
)

// Permissioner is a pure in-memory authorizer, holding no state of its own
// beyond a reference to the live user store — it is rebuilt implicitly on
// every call since Store already serializes mutation (§4.7).
type Permissioner struct {
	disabled bool
	store    *Store
}

// NewPermissioner builds a permissioner over store. disabled bypasses every
// check (auth.enabled = false in config).
func NewPermissioner(store *Store, disabled bool) *Permissioner {
	return &Permissioner{disabled: disabled, store: store}
}

// Allow evaluates the gate for action against (userID, streamID, topicID),
// following the order in §4.7: disabled -> allow; global allow-set ->
// allow; per-stream allow-set -> allow; stream-level poll/send flag ->
// allow; topic override -> deny. topicID is ignored for actions that
// aren't topic-scoped.
func (p *Permissioner) Allow(userID uint32, action Action, streamID, topicID uint32) bool {
	if p.disabled {
		return true
	}
	u, err := p.store.Get(userID)
	if err != nil || !u.Active {
		return false
	}
	g := u.Permissions.Global

	switch action {
	case ActionManageServers:
		return g.ManageServers
	case ActionReadServers:
		return g.ManageServers || g.ReadServers
	case ActionManageUsers:
		return g.ManageUsers
	case ActionReadUsers:
		return g.ManageUsers || g.ReadUsers
	case ActionManageStreams:
		return g.ManageStreams
	case ActionReadStreams:
		return g.ManageStreams || g.ReadStreams
	}

	// all-streams allow-set: a global manage/read grant covers every stream.
	if g.ManageStreams {
		return true
	}
	if action == ActionReadStream && g.ReadStreams {
		return true
	}

	sp, hasStream := u.Permissions.Streams[streamID]
	if !hasStream {
		return false
	}
	if sp.Manage {
		return true
	}

	switch action {
	case ActionManageStream:
		return false // sp.Manage already checked above
	case ActionReadStream:
		return sp.Read
	case ActionManageTopic:
		if tp, ok := sp.Topics[topicID]; ok {
			return tp.Manage
		}
		return false
	case ActionPollTopic:
		if sp.Poll {
			return true
		}
		if tp, ok := sp.Topics[topicID]; ok {
			return tp.Poll
		}
		return false
	case ActionSendTopic:
		if sp.Send {
			return true
		}
		if tp, ok := sp.Topics[topicID]; ok {
			return tp.Send
		}
		return false
	default:
		return false
	}
}

// AllowAuthenticated is the pre-check run before Allow: missing
// authentication surfaces Unauthenticated independently of any permission
// (§4.7 last sentence).
func AllowAuthenticated(authenticated, disabled bool) error {
	if disabled || authenticated {
		return nil
	}
	return wire.New(wire.KindUnauthenticated, "auth: not authenticated")
}
