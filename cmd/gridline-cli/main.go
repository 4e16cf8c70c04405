// Command gridline-cli is a thin client over the binary wire protocol,
// printing one status line per action the way the Rust CLI this broker is
// modelled on does.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericlarwa/gridline/internal/id"
	"github.com/ericlarwa/gridline/internal/transport/tcp"
	"github.com/ericlarwa/gridline/internal/wire"
)

var serverAddr string

func main() {
	root := &cobra.Command{
		Use:   "gridline-cli",
		Short: "Talk to a gridline broker over the binary protocol",
	}
	root.PersistentFlags().StringVar(&serverAddr, "server", "127.0.0.1:8090", "broker tcp address")

	root.AddCommand(
		pingCmd(),
		streamCmd(),
		topicCmd(),
		consumerGroupCmd(),
		messageCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dial() (*tcp.Client, error) {
	return tcp.Dial(serverAddr, 5*time.Second)
}

func call(cmd wire.Command) ([]byte, error) {
	c, err := dial()
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", serverAddr, err)
	}
	defer c.Close()
	return c.Call(cmd)
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check whether the broker is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := call(wire.Ping{}); err != nil {
				return err
			}
			fmt.Println("pong")
			return nil
		},
	}
}

func streamCmd() *cobra.Command {
	parent := &cobra.Command{Use: "stream", Short: "Manage streams"}

	var streamID uint32
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := call(wire.CreateStream{StreamID: streamID, Name: args[0]}); err != nil {
				return err
			}
			fmt.Printf("Stream with id: %d and name: %s created\n", streamID, args[0])
			return nil
		},
	}
	create.Flags().Uint32Var(&streamID, "id", 0, "stream id (sent as given; the broker does not assign one)")

	del := &cobra.Command{
		Use:   "delete <id-or-name>",
		Short: "Delete a stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ident, err := id.ParseIdentifier(args[0])
			if err != nil {
				return err
			}
			if _, err := call(wire.DeleteStream{StreamID: ident}); err != nil {
				return err
			}
			fmt.Printf("Stream with id: %s deleted\n", args[0])
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := call(wire.GetStreams{})
			if err != nil {
				return err
			}
			return printJSON(payload)
		},
	}

	parent.AddCommand(create, del, list)
	return parent
}

func topicCmd() *cobra.Command {
	parent := &cobra.Command{Use: "topic", Short: "Manage topics"}

	var streamArg string
	var topicID uint32
	var partitions uint32
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := id.ParseIdentifier(streamArg)
			if err != nil {
				return err
			}
			if _, err := call(wire.CreateTopic{
				StreamID: sid, TopicID: topicID, Name: args[0],
				PartitionsCount: partitions, Partitioner: wire.PartitionerBalanced,
			}); err != nil {
				return err
			}
			fmt.Printf("Topic with id: %d and name: %s created\n", topicID, args[0])
			return nil
		},
	}
	create.Flags().StringVar(&streamArg, "stream", "", "stream id or name")
	create.Flags().Uint32Var(&topicID, "id", 0, "topic id (sent as given; the broker does not assign one)")
	create.Flags().Uint32Var(&partitions, "partitions", 1, "number of partitions")
	create.MarkFlagRequired("stream")

	var delStream string
	del := &cobra.Command{
		Use:   "delete <id-or-name>",
		Short: "Delete a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := id.ParseIdentifier(delStream)
			if err != nil {
				return err
			}
			tid, err := id.ParseIdentifier(args[0])
			if err != nil {
				return err
			}
			if _, err := call(wire.DeleteTopic{StreamID: sid, TopicID: tid}); err != nil {
				return err
			}
			fmt.Printf("Topic with id: %s deleted\n", args[0])
			return nil
		},
	}
	del.Flags().StringVar(&delStream, "stream", "", "stream id or name")
	del.MarkFlagRequired("stream")

	var listStream string
	list := &cobra.Command{
		Use:   "list",
		Short: "List topics in a stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, err := id.ParseIdentifier(listStream)
			if err != nil {
				return err
			}
			payload, err := call(wire.GetTopics{StreamID: sid})
			if err != nil {
				return err
			}
			return printJSON(payload)
		},
	}
	list.Flags().StringVar(&listStream, "stream", "", "stream id or name")
	list.MarkFlagRequired("stream")

	parent.AddCommand(create, del, list)
	return parent
}

func consumerGroupCmd() *cobra.Command {
	parent := &cobra.Command{Use: "consumer-group", Short: "Manage consumer groups"}

	var streamArg, topicArg string
	var groupID uint32
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a consumer group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, tid, err := parseStreamTopic(streamArg, topicArg)
			if err != nil {
				return err
			}
			if _, err := call(wire.CreateConsumerGroup{StreamID: sid, TopicID: tid, GroupID: groupID, Name: args[0]}); err != nil {
				return err
			}
			fmt.Printf("Consumer group with id: %d and name: %s created\n", groupID, args[0])
			return nil
		},
	}
	create.Flags().StringVar(&streamArg, "stream", "", "stream id or name")
	create.Flags().StringVar(&topicArg, "topic", "", "topic id or name")
	create.Flags().Uint32Var(&groupID, "id", 0, "group id (sent as given; the broker does not assign one)")
	create.MarkFlagRequired("stream")
	create.MarkFlagRequired("topic")

	var joinStream, joinTopic string
	join := &cobra.Command{
		Use:   "join <id-or-name>",
		Short: "Join a consumer group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, tid, err := parseStreamTopic(joinStream, joinTopic)
			if err != nil {
				return err
			}
			gid, err := id.ParseIdentifier(args[0])
			if err != nil {
				return err
			}
			payload, err := call(wire.JoinConsumerGroup{StreamID: sid, TopicID: tid, GroupID: gid})
			if err != nil {
				return err
			}
			return printJSON(payload)
		},
	}
	join.Flags().StringVar(&joinStream, "stream", "", "stream id or name")
	join.Flags().StringVar(&joinTopic, "topic", "", "topic id or name")
	join.MarkFlagRequired("stream")
	join.MarkFlagRequired("topic")

	parent.AddCommand(create, join)
	return parent
}

func messageCmd() *cobra.Command {
	parent := &cobra.Command{Use: "message", Short: "Send and poll messages"}

	var streamArg, topicArg, payload string
	send := &cobra.Command{
		Use:   "send",
		Short: "Send a single message",
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, tid, err := parseStreamTopic(streamArg, topicArg)
			if err != nil {
				return err
			}
			result, err := call(wire.SendMessages{
				StreamID: sid, TopicID: tid,
				Partitioning: wire.Partitioning{Kind: wire.PartitioningBalanced},
				Messages:     []wire.OutgoingMessage{{Payload: []byte(payload)}},
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	send.Flags().StringVar(&streamArg, "stream", "", "stream id or name")
	send.Flags().StringVar(&topicArg, "topic", "", "topic id or name")
	send.Flags().StringVar(&payload, "payload", "", "message payload")
	send.MarkFlagRequired("stream")
	send.MarkFlagRequired("topic")

	var pollStream, pollTopic string
	var partitionID uint32
	var count uint32
	poll := &cobra.Command{
		Use:   "poll",
		Short: "Poll messages from a partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			sid, tid, err := parseStreamTopic(pollStream, pollTopic)
			if err != nil {
				return err
			}
			result, err := call(wire.PollMessages{
				Consumer:    wire.Consumer{Kind: wire.ConsumerKindConsumer, ID: 1},
				StreamID:    sid,
				TopicID:     tid,
				PartitionID: partitionID,
				Strategy:    wire.PollingStrategy{Kind: wire.PollNext},
				Count:       count,
				AutoCommit:  true,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	poll.Flags().StringVar(&pollStream, "stream", "", "stream id or name")
	poll.Flags().StringVar(&pollTopic, "topic", "", "topic id or name")
	poll.Flags().Uint32Var(&partitionID, "partition", 1, "partition id")
	poll.Flags().Uint32Var(&count, "count", 10, "max messages to poll")
	poll.MarkFlagRequired("stream")
	poll.MarkFlagRequired("topic")

	parent.AddCommand(send, poll)
	return parent
}

func parseStreamTopic(streamArg, topicArg string) (id.Identifier, id.Identifier, error) {
	sid, err := id.ParseIdentifier(streamArg)
	if err != nil {
		return id.Identifier{}, id.Identifier{}, err
	}
	tid, err := id.ParseIdentifier(topicArg)
	if err != nil {
		return id.Identifier{}, id.Identifier{}, err
	}
	return sid, tid, nil
}

func printJSON(payload []byte) error {
	if len(payload) == 0 {
		fmt.Println("{}")
		return nil
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		fmt.Println(string(payload))
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
