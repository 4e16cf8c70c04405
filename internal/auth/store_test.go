package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ericlarwa/gridline/internal/wire"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), BootstrapConfig{RootUsername: "root", RootPassword: "secret"}, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestOpenBootstrapsRootUser(t *testing.T) {
	s := newTestStore(t)
	users := s.List()
	require.Len(t, users, 1)
	require.Equal(t, "root", users[0].Username)
	require.True(t, users[0].Permissions.Global.ManageServers)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, BootstrapConfig{RootUsername: "root", RootPassword: "secret"}, zap.NewNop())
	require.NoError(t, err)
	_, err = s.Create("alice", "hunter2", true, wire.GlobalPermissions{ReadStreams: true})
	require.NoError(t, err)

	reopened, err := Open(dir, BootstrapConfig{RootUsername: "root", RootPassword: "secret"}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, reopened.List(), 2)

	u, err := reopened.Authenticate("alice", "hunter2")
	require.NoError(t, err)
	require.True(t, u.Permissions.Global.ReadStreams)
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Authenticate("root", "wrong")
	require.Error(t, err)
	werr := wire.As(err)
	require.Equal(t, wire.KindInvalidCredentials, werr.Kind)
}

func TestCreateRejectsDuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create("root", "whatever", true, wire.GlobalPermissions{})
	require.Error(t, err)
}

func TestDeleteThenAuthenticateFails(t *testing.T) {
	s := newTestStore(t)
	u, err := s.Create("bob", "p4ssword", true, wire.GlobalPermissions{})
	require.NoError(t, err)
	require.NoError(t, s.Delete(u.ID))
	_, err = s.Authenticate("bob", "p4ssword")
	require.Error(t, err)
}

func TestChangePasswordRequiresOldPassword(t *testing.T) {
	s := newTestStore(t)
	u, err := s.Create("carol", "old-pass", true, wire.GlobalPermissions{})
	require.NoError(t, err)

	err = s.ChangePassword(u.ID, "wrong-old", "new-pass")
	require.Error(t, err)

	require.NoError(t, s.ChangePassword(u.ID, "old-pass", "new-pass"))
	_, err = s.Authenticate("carol", "new-pass")
	require.NoError(t, err)
}

func TestPermissionerEvaluationOrder(t *testing.T) {
	s := newTestStore(t)
	disabled := NewPermissioner(s, true)
	require.True(t, disabled.Allow(999, ActionManageStreams, 1, 1))

	u, err := s.Create("dave", "p4ssword", true, wire.GlobalPermissions{})
	require.NoError(t, err)
	enabled := NewPermissioner(s, false)
	require.False(t, enabled.Allow(u.ID, ActionReadStream, 1, 0))

	require.NoError(t, s.UpdatePermissions(u.ID, wire.Permissions{
		Streams: map[uint32]wire.StreamPermissions{
			1: {Read: true, Topics: map[uint32]wire.TopicPermissions{2: {Send: true}}},
		},
	}))
	require.True(t, enabled.Allow(u.ID, ActionReadStream, 1, 0))
	require.True(t, enabled.Allow(u.ID, ActionSendTopic, 1, 2))
	require.False(t, enabled.Allow(u.ID, ActionSendTopic, 1, 3))

	require.NoError(t, s.UpdatePermissions(u.ID, wire.Permissions{
		Streams: map[uint32]wire.StreamPermissions{
			1: {Read: true, Poll: true, Topics: map[uint32]wire.TopicPermissions{2: {Poll: false}}},
		},
	}))
	require.True(t, enabled.Allow(u.ID, ActionPollTopic, 1, 2))
}

func TestTokenIssuerRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	token, err := issuer.Issue(42)
	require.NoError(t, err)
	userID, err := issuer.Verify(token)
	require.NoError(t, err)
	require.Equal(t, uint32(42), userID)
}
