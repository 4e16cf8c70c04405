package wire

// GlobalPermissions are the account-wide capabilities that do not depend on
// a specific stream (manage_servers, read_servers, manage_users, ...).
type GlobalPermissions struct {
	ManageServers bool
	ReadServers   bool
	ManageUsers   bool
	ReadUsers     bool
	ManageStreams bool
	ReadStreams   bool
}

func (g GlobalPermissions) AsBytes() []byte {
	var b byte
	if g.ManageServers {
		b |= 1 << 0
	}
	if g.ReadServers {
		b |= 1 << 1
	}
	if g.ManageUsers {
		b |= 1 << 2
	}
	if g.ReadUsers {
		b |= 1 << 3
	}
	if g.ManageStreams {
		b |= 1 << 4
	}
	if g.ReadStreams {
		b |= 1 << 5
	}
	return []byte{b}
}

func globalPermissionsFromByte(b byte) GlobalPermissions {
	return GlobalPermissions{
		ManageServers: b&(1<<0) != 0,
		ReadServers:   b&(1<<1) != 0,
		ManageUsers:   b&(1<<2) != 0,
		ReadUsers:     b&(1<<3) != 0,
		ManageStreams: b&(1<<4) != 0,
		ReadStreams:   b&(1<<5) != 0,
	}
}

// TopicPermissions overrides stream-level defaults for one topic.
type TopicPermissions struct {
	Manage bool
	Read   bool
	Poll   bool
	Send   bool
}

func (t TopicPermissions) AsBytes() []byte {
	var b byte
	if t.Manage {
		b |= 1 << 0
	}
	if t.Read {
		b |= 1 << 1
	}
	if t.Poll {
		b |= 1 << 2
	}
	if t.Send {
		b |= 1 << 3
	}
	return []byte{b}
}

func topicPermissionsFromByte(b byte) TopicPermissions {
	return TopicPermissions{
		Manage: b&(1<<0) != 0,
		Read:   b&(1<<1) != 0,
		Poll:   b&(1<<2) != 0,
		Send:   b&(1<<3) != 0,
	}
}

// StreamPermissions is per-stream capability plus optional per-topic
// overrides, matching the data model's StreamPerms.
type StreamPermissions struct {
	Manage bool
	Read   bool
	Poll   bool
	Send   bool
	Topics map[uint32]TopicPermissions
}

// Permissions is the full permission set attached to a user, as carried by
// UpdatePermissions and stored with the account.
type Permissions struct {
	Global  GlobalPermissions
	Streams map[uint32]StreamPermissions
}

func (p Permissions) AsBytes() []byte {
	buf := append([]byte{}, p.Global.AsBytes()...)
	streamCount := make([]byte, 4)
	putU32(streamCount, 0, uint32(len(p.Streams)))
	buf = append(buf, streamCount...)
	for streamID, sp := range p.Streams {
		idBuf := make([]byte, 4)
		putU32(idBuf, 0, streamID)
		buf = append(buf, idBuf...)
		var flags byte
		if sp.Manage {
			flags |= 1 << 0
		}
		if sp.Read {
			flags |= 1 << 1
		}
		if sp.Poll {
			flags |= 1 << 2
		}
		if sp.Send {
			flags |= 1 << 3
		}
		buf = append(buf, flags)
		topicCount := make([]byte, 4)
		putU32(topicCount, 0, uint32(len(sp.Topics)))
		buf = append(buf, topicCount...)
		for topicID, tp := range sp.Topics {
			tidBuf := make([]byte, 4)
			putU32(tidBuf, 0, topicID)
			buf = append(buf, tidBuf...)
			buf = append(buf, tp.AsBytes()...)
		}
	}
	return buf
}

// PermissionsFromBytes decodes a Permissions value written by AsBytes,
// returning the number of bytes consumed. Exported for persistence layers
// outside this package (the user store) that need to round-trip the type.
func PermissionsFromBytes(b []byte) (Permissions, int, error) {
	return permissionsFromBytes(b)
}

func permissionsFromBytes(b []byte) (Permissions, int, error) {
	if err := requireLen(b, 5); err != nil {
		return Permissions{}, 0, err
	}
	pos := 0
	global := globalPermissionsFromByte(b[pos])
	pos++
	streamCount := int(getU32(b, pos))
	pos += 4
	streams := make(map[uint32]StreamPermissions, streamCount)
	for i := 0; i < streamCount; i++ {
		if err := requireLen(b, pos+9); err != nil {
			return Permissions{}, 0, err
		}
		streamID := getU32(b, pos)
		pos += 4
		flags := b[pos]
		pos++
		topicCount := int(getU32(b, pos))
		pos += 4
		topics := make(map[uint32]TopicPermissions, topicCount)
		for j := 0; j < topicCount; j++ {
			if err := requireLen(b, pos+5); err != nil {
				return Permissions{}, 0, err
			}
			topicID := getU32(b, pos)
			pos += 4
			topics[topicID] = topicPermissionsFromByte(b[pos])
			pos++
		}
		streams[streamID] = StreamPermissions{
			Manage: flags&(1<<0) != 0,
			Read:   flags&(1<<1) != 0,
			Poll:   flags&(1<<2) != 0,
			Send:   flags&(1<<3) != 0,
			Topics: topics,
		}
	}
	return Permissions{Global: global, Streams: streams}, pos, nil
}
