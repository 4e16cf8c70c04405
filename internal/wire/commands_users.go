package wire

import "strings"

type LoginUser struct {
	Username string
	Password string
}

func (c LoginUser) Code() uint32 { return CodeLoginUser }
func (c LoginUser) Encode() []byte {
	u := []byte(c.Username)
	p := []byte(c.Password)
	buf := make([]byte, 0, 2+len(u)+len(p))
	buf = append(buf, byte(len(u)))
	buf = append(buf, u...)
	buf = append(buf, byte(len(p)))
	buf = append(buf, p...)
	return buf
}
func (c LoginUser) String() string { return c.Username + "|" + c.Password }

func ParseLoginUser(s string) (LoginUser, error) {
	parts := strings.SplitN(s, "|", 2)
	if len(parts) != 2 {
		return LoginUser{}, New(KindInvalidCommand, "wire: LoginUser wants username|password")
	}
	return LoginUser{Username: parts[0], Password: parts[1]}, nil
}

func decodeLoginUser(b []byte) (Command, error) {
	if err := requireLen(b, 1); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	ulen := int(b[0])
	if err := requireLen(b, 1+ulen+1); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	username := string(b[1 : 1+ulen])
	plen := int(b[1+ulen])
	if err := requireLen(b, 1+ulen+1+plen); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	password := string(b[1+ulen+1 : 1+ulen+1+plen])
	return LoginUser{Username: username, Password: password}, nil
}

type LogoutUser struct{}

func (LogoutUser) Code() uint32   { return CodeLogoutUser }
func (LogoutUser) Encode() []byte { return nil }
func (LogoutUser) String() string { return "" }
func decodeLogoutUser([]byte) (Command, error) { return LogoutUser{}, nil }

type CreateUser struct {
	Username string
	Password string
	Active   bool
	Global   GlobalPermissions
}

func (c CreateUser) Code() uint32 { return CodeCreateUser }
func (c CreateUser) Encode() []byte {
	u := []byte(c.Username)
	p := []byte(c.Password)
	buf := make([]byte, 0, 3+len(u)+len(p))
	buf = append(buf, byte(len(u)))
	buf = append(buf, u...)
	buf = append(buf, byte(len(p)))
	buf = append(buf, p...)
	if c.Active {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, c.Global.AsBytes()...)
	return buf
}
func (c CreateUser) String() string { return c.Username + "|" + c.Password }

func decodeCreateUser(b []byte) (Command, error) {
	if err := requireLen(b, 1); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	ulen := int(b[0])
	pos := 1 + ulen
	if err := requireLen(b, pos+1); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	username := string(b[1:pos])
	plen := int(b[pos])
	pos++
	if err := requireLen(b, pos+plen+2); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	password := string(b[pos : pos+plen])
	pos += plen
	active := b[pos] != 0
	pos++
	global := globalPermissionsFromByte(b[pos])
	return CreateUser{Username: username, Password: password, Active: active, Global: global}, nil
}

type DeleteUser struct {
	UserID uint32
}

func (c DeleteUser) Code() uint32   { return CodeDeleteUser }
func (c DeleteUser) Encode() []byte { buf := make([]byte, 4); putU32(buf, 0, c.UserID); return buf }
func (c DeleteUser) String() string { return itoa(c.UserID) }
func decodeDeleteUser(b []byte) (Command, error) {
	if err := requireLen(b, 4); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return DeleteUser{UserID: getU32(b, 0)}, nil
}

type UpdateUser struct {
	UserID   uint32
	Username *string
	Active   *bool
}

func (c UpdateUser) Code() uint32 { return CodeUpdateUser }
func (c UpdateUser) Encode() []byte {
	buf := make([]byte, 4)
	putU32(buf, 0, c.UserID)
	if c.Username != nil {
		buf = append(buf, 1, byte(len(*c.Username)))
		buf = append(buf, []byte(*c.Username)...)
	} else {
		buf = append(buf, 0)
	}
	if c.Active != nil {
		buf = append(buf, 1)
		if *c.Active {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	} else {
		buf = append(buf, 0)
	}
	return buf
}
func (c UpdateUser) String() string { return itoa(c.UserID) }

func decodeUpdateUser(b []byte) (Command, error) {
	if err := requireLen(b, 5); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	userID := getU32(b, 0)
	pos := 4
	cmd := UpdateUser{UserID: userID}
	hasUsername := b[pos]
	pos++
	if hasUsername == 1 {
		if err := requireLen(b, pos+1); err != nil {
			return nil, New(KindInvalidCommand, "%v", err)
		}
		ulen := int(b[pos])
		pos++
		if err := requireLen(b, pos+ulen); err != nil {
			return nil, New(KindInvalidCommand, "%v", err)
		}
		name := string(b[pos : pos+ulen])
		cmd.Username = &name
		pos += ulen
	}
	if err := requireLen(b, pos+1); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	hasActive := b[pos]
	pos++
	if hasActive == 1 {
		if err := requireLen(b, pos+1); err != nil {
			return nil, New(KindInvalidCommand, "%v", err)
		}
		active := b[pos] != 0
		cmd.Active = &active
	}
	return cmd, nil
}

type UpdatePermissions struct {
	UserID      uint32
	Permissions Permissions
}

func (c UpdatePermissions) Code() uint32 { return CodeUpdatePermissions }
func (c UpdatePermissions) Encode() []byte {
	buf := make([]byte, 4)
	putU32(buf, 0, c.UserID)
	return append(buf, c.Permissions.AsBytes()...)
}
func (c UpdatePermissions) String() string { return itoa(c.UserID) }

func decodeUpdatePermissions(b []byte) (Command, error) {
	if err := requireLen(b, 4); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	userID := getU32(b, 0)
	perms, _, err := permissionsFromBytes(b[4:])
	if err != nil {
		return nil, err
	}
	return UpdatePermissions{UserID: userID, Permissions: perms}, nil
}

type ChangePassword struct {
	UserID      uint32
	OldPassword string
	NewPassword string
}

func (c ChangePassword) Code() uint32 { return CodeChangePassword }
func (c ChangePassword) Encode() []byte {
	buf := make([]byte, 4)
	putU32(buf, 0, c.UserID)
	old := []byte(c.OldPassword)
	nw := []byte(c.NewPassword)
	buf = append(buf, byte(len(old)))
	buf = append(buf, old...)
	buf = append(buf, byte(len(nw)))
	buf = append(buf, nw...)
	return buf
}
func (c ChangePassword) String() string { return itoa(c.UserID) }

func decodeChangePassword(b []byte) (Command, error) {
	if err := requireLen(b, 5); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	userID := getU32(b, 0)
	pos := 4
	oldLen := int(b[pos])
	pos++
	if err := requireLen(b, pos+oldLen+1); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	old := string(b[pos : pos+oldLen])
	pos += oldLen
	newLen := int(b[pos])
	pos++
	if err := requireLen(b, pos+newLen); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	nw := string(b[pos : pos+newLen])
	return ChangePassword{UserID: userID, OldPassword: old, NewPassword: nw}, nil
}
