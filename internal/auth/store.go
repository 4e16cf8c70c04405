package auth

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ericlarwa/gridline/internal/id"
	"github.com/ericlarwa/gridline/internal/wire"
)

// Store owns every account and persists the full set to a single
// <root>/users/users.bin file (§6 on-disk layout), treating the whole
// table as one persisted unit rather than one file per row.
type Store struct {
	path string
	log  *zap.Logger

	mu        sync.RWMutex
	users     map[uint32]*User
	nameIndex map[string]uint32
	nextID    uint32
}

// BootstrapConfig supplies the root account created when the store is empty.
type BootstrapConfig struct {
	RootUsername string
	RootPassword string
}

// Open loads the user store from disk, creating an empty one (and bootstrapping
// the root account) if it doesn't exist yet.
func Open(root string, bootstrap BootstrapConfig, log *zap.Logger) (*Store, error) {
	dir := filepath.Join(root, "users")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, wire.New(wire.KindIOError, "auth: create users dir: %v", err)
	}
	s := &Store{
		path: filepath.Join(dir, "users.bin"), log: log,
		users:     make(map[uint32]*User),
		nameIndex: make(map[string]uint32),
		nextID:    1,
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	if len(s.users) == 0 {
		if _, err := s.createLocked(bootstrap.RootUsername, bootstrap.RootPassword, true, wire.Permissions{
			Global: wire.GlobalPermissions{
				ManageServers: true, ReadServers: true, ManageUsers: true,
				ReadUsers: true, ManageStreams: true, ReadStreams: true,
			},
		}); err != nil {
			return nil, err
		}
		log.Info("bootstrapped root user", zap.String("username", bootstrap.RootUsername))
		if err := s.save(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return wire.New(wire.KindIOError, "auth: read user store: %v", err)
	}
	if len(b) < 4 {
		return nil
	}
	count := binary.LittleEndian.Uint32(b[0:4])
	pos := 4
	for i := uint32(0); i < count; i++ {
		u, n, err := decodeUser(b[pos:])
		if err != nil {
			return err
		}
		pos += n
		s.users[u.ID] = u
		s.nameIndex[id.Normalize(u.Username)] = u.ID
		if u.ID >= s.nextID {
			s.nextID = u.ID + 1
		}
	}
	return nil
}

func (s *Store) save() error {
	ids := make([]uint32, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(ids)))
	for _, id := range ids {
		buf = append(buf, encodeUser(s.users[id])...)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0600); err != nil {
		return wire.New(wire.KindIOError, "auth: write user store: %v", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return wire.New(wire.KindIOError, "auth: rename user store: %v", err)
	}
	return nil
}

func encodeUser(u *User) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, u.ID)
	name := []byte(u.Username)
	buf = append(buf, byte(len(name)))
	buf = append(buf, name...)
	hash := []byte(u.PasswordHash)
	hlen := make([]byte, 2)
	binary.LittleEndian.PutUint16(hlen, uint16(len(hash)))
	buf = append(buf, hlen...)
	buf = append(buf, hash...)
	if u.Active {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	created := make([]byte, 8)
	binary.LittleEndian.PutUint64(created, u.CreatedAt)
	buf = append(buf, created...)
	buf = append(buf, u.Permissions.AsBytes()...)
	return buf
}

func decodeUser(b []byte) (*User, int, error) {
	if len(b) < 5 {
		return nil, 0, wire.New(wire.KindIOError, "auth: truncated user record")
	}
	userID := binary.LittleEndian.Uint32(b[0:4])
	pos := 4
	nlen := int(b[pos])
	pos++
	if len(b) < pos+nlen+2 {
		return nil, 0, wire.New(wire.KindIOError, "auth: truncated user record")
	}
	username := string(b[pos : pos+nlen])
	pos += nlen
	hlen := int(binary.LittleEndian.Uint16(b[pos : pos+2]))
	pos += 2
	if len(b) < pos+hlen+9 {
		return nil, 0, wire.New(wire.KindIOError, "auth: truncated user record")
	}
	hash := string(b[pos : pos+hlen])
	pos += hlen
	active := b[pos] != 0
	pos++
	createdAt := binary.LittleEndian.Uint64(b[pos : pos+8])
	pos += 8
	perms, n, err := wire.PermissionsFromBytes(b[pos:])
	if err != nil {
		return nil, 0, err
	}
	pos += n
	return &User{
		ID: userID, Username: username, PasswordHash: hash, Active: active,
		CreatedAt: createdAt, Permissions: perms,
	}, pos, nil
}

// Create registers a new account, hashing its password.
func (s *Store) Create(username, password string, active bool, global wire.GlobalPermissions) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.createLocked(username, password, active, wire.Permissions{Global: global})
	if err != nil {
		return nil, err
	}
	return u, s.save()
}

func (s *Store) createLocked(username, password string, active bool, perms wire.Permissions) (*User, error) {
	normalized := id.Normalize(username)
	if _, exists := s.nameIndex[normalized]; exists {
		return nil, wire.New(wire.KindResourceNameInvalid, "auth: username %q already exists", username)
	}
	u, err := newUser(s.nextID, username, password, active, perms)
	if err != nil {
		return nil, err
	}
	s.users[u.ID] = u
	s.nameIndex[normalized] = u.ID
	s.nextID++
	return u, nil
}

// Delete removes an account.
func (s *Store) Delete(userID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return wire.New(wire.KindUserNotFound, "auth: user %d not found", userID)
	}
	delete(s.users, userID)
	delete(s.nameIndex, id.Normalize(u.Username))
	return s.save()
}

// Update changes username and/or active status.
func (s *Store) Update(userID uint32, username *string, active *bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return wire.New(wire.KindUserNotFound, "auth: user %d not found", userID)
	}
	if username != nil {
		delete(s.nameIndex, id.Normalize(u.Username))
		u.Username = *username
		s.nameIndex[id.Normalize(*username)] = userID
	}
	if active != nil {
		u.Active = *active
	}
	return s.save()
}

// UpdatePermissions replaces a user's full permission set.
func (s *Store) UpdatePermissions(userID uint32, perms wire.Permissions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return wire.New(wire.KindUserNotFound, "auth: user %d not found", userID)
	}
	u.Permissions = perms
	return s.save()
}

// ChangePassword verifies oldPassword and replaces the stored hash.
func (s *Store) ChangePassword(userID uint32, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return wire.New(wire.KindUserNotFound, "auth: user %d not found", userID)
	}
	if err := u.checkPassword(oldPassword); err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return s.save()
}

// Authenticate verifies username/password and returns the matching active user.
func (s *Store) Authenticate(username, password string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.nameIndex[id.Normalize(username)]
	if !ok {
		return nil, wire.New(wire.KindInvalidCredentials, "auth: invalid credentials")
	}
	u := s.users[userID]
	if !u.Active {
		return nil, wire.New(wire.KindInvalidCredentials, "auth: account disabled")
	}
	if err := u.checkPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns a user by id.
func (s *Store) Get(userID uint32) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, wire.New(wire.KindUserNotFound, "auth: user %d not found", userID)
	}
	return u, nil
}

// List returns every user sorted by id.
func (s *Store) List() []*User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uint32, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]*User, len(ids))
	for i, id := range ids {
		out[i] = s.users[id]
	}
	return out
}
