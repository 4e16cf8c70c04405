package wire

import (
	"strconv"
)

type Ping struct{}

func (Ping) Code() uint32    { return CodePing }
func (Ping) Encode() []byte  { return nil }
func (Ping) String() string  { return "" }
func ParsePing(string) (Ping, error) { return Ping{}, nil }
func decodePing([]byte) (Command, error) { return Ping{}, nil }

type GetStats struct{}

func (GetStats) Code() uint32   { return CodeGetStats }
func (GetStats) Encode() []byte { return nil }
func (GetStats) String() string { return "" }
func decodeGetStats([]byte) (Command, error) { return GetStats{}, nil }

type GetMe struct{}

func (GetMe) Code() uint32   { return CodeGetMe }
func (GetMe) Encode() []byte { return nil }
func (GetMe) String() string { return "" }
func decodeGetMe([]byte) (Command, error) { return GetMe{}, nil }

type GetClient struct {
	ClientID uint32
}

func (c GetClient) Code() uint32 { return CodeGetClient }
func (c GetClient) Encode() []byte {
	buf := make([]byte, 4)
	putU32(buf, 0, c.ClientID)
	return buf
}
func (c GetClient) String() string { return strconv.FormatUint(uint64(c.ClientID), 10) }

func ParseGetClient(s string) (GetClient, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return GetClient{}, New(KindInvalidCommand, "wire: bad client id: %v", err)
	}
	return GetClient{ClientID: uint32(v)}, nil
}

func decodeGetClient(b []byte) (Command, error) {
	if err := requireLen(b, 4); err != nil {
		return nil, New(KindInvalidCommand, "%v", err)
	}
	return GetClient{ClientID: getU32(b, 0)}, nil
}

type GetClients struct{}

func (GetClients) Code() uint32   { return CodeGetClients }
func (GetClients) Encode() []byte { return nil }
func (GetClients) String() string { return "" }
func decodeGetClients([]byte) (Command, error) { return GetClients{}, nil }
