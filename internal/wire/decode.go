package wire

// decoders maps every stable command code to its binary decoder. Decode
// dispatches here instead of a type switch so adding a command only means
// adding one entry.
var decoders = map[uint32]func([]byte) (Command, error){
	CodePing:       decodePing,
	CodeGetStats:   decodeGetStats,
	CodeGetMe:      decodeGetMe,
	CodeGetClient:  decodeGetClient,
	CodeGetClients: decodeGetClients,

	CodeLoginUser:         decodeLoginUser,
	CodeLogoutUser:        decodeLogoutUser,
	CodeCreateUser:        decodeCreateUser,
	CodeDeleteUser:        decodeDeleteUser,
	CodeUpdateUser:        decodeUpdateUser,
	CodeUpdatePermissions: decodeUpdatePermissions,
	CodeChangePassword:    decodeChangePassword,

	CodeCreateStream: decodeCreateStream,
	CodeUpdateStream: decodeUpdateStream,
	CodeDeleteStream: decodeDeleteStream,
	CodeGetStream:    decodeGetStream,
	CodeGetStreams:   decodeGetStreams,

	CodeCreateTopic: decodeCreateTopic,
	CodeUpdateTopic: decodeUpdateTopic,
	CodeDeleteTopic: decodeDeleteTopic,
	CodeGetTopic:    decodeGetTopic,
	CodeGetTopics:   decodeGetTopics,

	CodeCreatePartitions: decodeCreatePartitions,
	CodeDeletePartitions: decodeDeletePartitions,

	CodeSendMessages: decodeSendMessages,
	CodePollMessages: decodePollMessages,

	CodeStoreConsumerOffset: decodeStoreConsumerOffset,
	CodeGetConsumerOffset:   decodeGetConsumerOffset,

	CodeCreateConsumerGroup: decodeCreateConsumerGroup,
	CodeDeleteConsumerGroup: decodeDeleteConsumerGroup,
	CodeGetConsumerGroup:    decodeGetConsumerGroup,
	CodeGetConsumerGroups:   decodeGetConsumerGroups,
	CodeJoinConsumerGroup:   decodeJoinConsumerGroup,
	CodeLeaveConsumerGroup:  decodeLeaveConsumerGroup,
}

// Decode turns a command code and its raw payload into a concrete Command.
func Decode(code uint32, payload []byte) (Command, error) {
	fn, ok := decoders[code]
	if !ok {
		return nil, New(KindInvalidCommand, "wire: unknown command code %d", code)
	}
	return fn(payload)
}
