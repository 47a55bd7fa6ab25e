// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package protocol_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/absmach/stomp/commands"
	"github.com/absmach/stomp/frame"
	"github.com/absmach/stomp/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toFrame(t *testing.T, cmd commands.Command) *frame.Frame {
	t.Helper()
	f, err := protocol.NewWireFormat(nil).ToFrame(cmd)
	require.NoError(t, err)
	require.NotNil(t, f)
	return f
}

func get(f *frame.Frame, name string) string {
	v, _ := f.Header.Get(name)
	return v
}

func fromWire(t *testing.T, input string) (commands.Command, error) {
	t.Helper()
	wf := protocol.NewWireFormat(nil)
	return wf.Unmarshal(frame.NewReader(strings.NewReader(input), nil))
}

func TestSendOmitsDefaultPriorityAndReplyTo(t *testing.T) {
	msg := commands.NewTextMessage("hello")
	msg.Destination = commands.ParseDestination("/queue/TEST")

	f := toFrame(t, msg)

	assert.Equal(t, frame.SEND, f.Command)
	assert.Equal(t, "/queue/TEST", get(f, "destination"))
	assert.False(t, f.Header.Contains("priority"))
	assert.False(t, f.Header.Contains("reply-to"))
	assert.False(t, f.Header.Contains("expires"))
	assert.False(t, f.Header.Contains("receipt"))
	assert.Equal(t, "false", get(f, "persistent"))
	assert.Equal(t, "false", get(f, "NMSXDeliveryMode"))
	assert.Equal(t, []byte("hello"), f.Body)
}

func TestSendHeaders(t *testing.T) {
	msg := commands.NewTextMessage("x")
	msg.SetCommandID(9)
	msg.SetResponseRequired(true)
	msg.Destination = commands.NewTopic("prices")
	msg.ReplyTo = &commands.Destination{Type: commands.TemporaryQueue, PhysicalName: "reply"}
	msg.CorrelationID = "corr-1"
	msg.Expiration = 1000
	msg.Priority = 7
	msg.Type = "quote"
	msg.Persistent = true
	msg.TransactionID = &commands.TransactionID{ConnectionID: "c1", Value: 3}

	f := toFrame(t, msg)

	assert.Equal(t, "9", get(f, "receipt"))
	assert.Equal(t, "/topic/prices", get(f, "destination"))
	assert.Equal(t, "/temp-queue/reply", get(f, "reply-to"))
	assert.Equal(t, "corr-1", get(f, "correlation-id"))
	assert.Equal(t, "1000", get(f, "expires"))
	assert.Equal(t, "7", get(f, "priority"))
	assert.Equal(t, "quote", get(f, "type"))
	assert.Equal(t, "c1:3", get(f, "transaction"))
	assert.Equal(t, "true", get(f, "persistent"))
	assert.Equal(t, "true", get(f, "NMSXDeliveryMode"))
}

func TestSendBodies(t *testing.T) {
	cases := []struct {
		desc           string
		msg            *commands.Message
		contentLength  string
		transformation string
	}{
		{
			desc: "text body has no transformation",
			msg:  commands.NewTextMessage("text"),
		},
		{
			desc:           "bytes body sets content-length",
			msg:            commands.NewBytesMessage([]byte{1, 0, 2}),
			contentLength:  "3",
			transformation: "jms-byte",
		},
		{
			desc:           "empty bytes body has no content-length",
			msg:            commands.NewBytesMessage(nil),
			transformation: "jms-byte",
		},
		{
			desc:           "map body uses the codec name",
			msg:            commands.NewMapMessage(map[string]any{"a": int32(1)}),
			transformation: protocol.XMLMapName,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			f := toFrame(t, tc.msg)
			assert.Equal(t, tc.contentLength, get(f, "content-length"))
			assert.Equal(t, tc.transformation, get(f, "transformation"))
		})
	}
}

func TestSendGroupHeaders(t *testing.T) {
	msg := commands.NewTextMessage("x")
	msg.Destination = commands.NewQueue("q")
	msg.GroupID = "g1"
	msg.GroupSeq = 5
	msg.SetProperty("NMSXGroupID", "stale")
	msg.SetProperty("JMSXGroupSeq", 99)
	msg.SetProperty("color", "red")

	f := toFrame(t, msg)

	assert.Equal(t, "g1", get(f, "JMSXGroupID"))
	assert.Equal(t, "g1", get(f, "NMSXGroupID"))
	assert.Equal(t, "5", get(f, "JMSXGroupSeq"))
	assert.Equal(t, "5", get(f, "NMSXGroupSeq"))
	assert.Equal(t, "red", get(f, "color"))
}

func TestSendPropertiesAreSorted(t *testing.T) {
	msg := commands.NewTextMessage("")
	msg.Destination = commands.NewQueue("q")
	msg.SetProperty("b", true)
	msg.SetProperty("a", int64(42))
	msg.SetProperty("c", 1.5)

	var buf bytes.Buffer
	_, err := protocol.NewWireFormat(nil).Marshal(msg, frame.NewWriter(&buf))
	require.NoError(t, err)

	want := "SEND\ndestination:/queue/q\npersistent:false\nNMSXDeliveryMode:false\na:42\nb:true\nc:1.5\n\n\x00"
	assert.Equal(t, want, buf.String())
}

func TestAck(t *testing.T) {
	ack := &commands.MessageAck{
		LastMessageID: commands.ParseMessageID("ID:host-1:0:1:1:7"),
		TransactionID: &commands.TransactionID{ConnectionID: "c", Value: 2},
	}
	ack.SetCommandID(11)
	ack.SetResponseRequired(true)

	f := toFrame(t, ack)

	assert.Equal(t, frame.ACK, f.Command)
	assert.Equal(t, "ignore:11", get(f, "receipt"))
	assert.Equal(t, "ID:host-1:0:1:1:7", get(f, "message-id"))
	assert.Equal(t, "c:2", get(f, "transaction"))
}

func TestConnect(t *testing.T) {
	info := &commands.ConnectionInfo{ClientID: "cid", UserName: "user", Password: "pass"}
	info.SetCommandID(1)
	info.SetResponseRequired(true)

	f := toFrame(t, info)

	assert.Equal(t, frame.CONNECT, f.Command)
	assert.Equal(t, []string{"client-id", "login", "passcode", "request-id"}, f.Header.Names())
	assert.Equal(t, "1", get(f, "request-id"))
}

func TestSubscribe(t *testing.T) {
	cases := []struct {
		desc    string
		info    *commands.ConsumerInfo
		present map[string]string
		absent  []string
	}{
		{
			desc: "defaults",
			info: &commands.ConsumerInfo{
				ConsumerID:   &commands.ConsumerID{ConnectionID: "c", SessionID: 1, Value: 2},
				Destination:  commands.NewQueue("q"),
				AckMode:      commands.AutoAcknowledge,
				PrefetchSize: 1000,
				Priority:     3,
			},
			present: map[string]string{
				"destination":                        "/queue/q",
				"id":                                 "c:1:2",
				"ack":                                "client",
				"activemq.dispatchAsync":             "false",
				"activemq.prefetchSize":              "1000",
				"activemq.priority":                  "3",
				"activemq.maximumPendingMessageLimit": "0",
			},
			absent: []string{"selector", "no-local", "activemq.exclusive", "activemq.retroactive", "durable-subscriber-name", "activemq.subscriptionName"},
		},
		{
			desc: "individual ack and extensions",
			info: &commands.ConsumerInfo{
				ConsumerID:       &commands.ConsumerID{ConnectionID: "c", SessionID: 1, Value: 3},
				Destination:      commands.NewTopic("t"),
				AckMode:          commands.IndividualAcknowledge,
				SubscriptionName: "durable",
				Selector:         "color = 'red'",
				NoLocal:          true,
				DispatchAsync:    true,
				Exclusive:        true,
				Retroactive:      true,
			},
			present: map[string]string{
				"ack":                       "client-individual",
				"selector":                  "color = 'red'",
				"no-local":                  "true",
				"durable-subscriber-name":   "durable",
				"activemq.subscriptionName": "durable",
				"activemq.subcriptionName":  "durable",
				"activemq.dispatchAsync":    "true",
				"activemq.exclusive":        "true",
				"activemq.retroactive":      "true",
			},
		},
		{
			desc: "client ack maps to client",
			info: &commands.ConsumerInfo{Destination: commands.NewQueue("q"), AckMode: commands.ClientAcknowledge},
			present: map[string]string{
				"ack": "client",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			f := toFrame(t, tc.info)
			assert.Equal(t, frame.SUBSCRIBE, f.Command)
			for name, value := range tc.present {
				assert.Equal(t, value, get(f, name), name)
			}
			for _, name := range tc.absent {
				assert.False(t, f.Header.Contains(name), name)
			}
		})
	}
}

func TestUnsubscribe(t *testing.T) {
	rm := &commands.RemoveInfo{ObjectID: &commands.ConsumerID{ConnectionID: "c", SessionID: 1, Value: 2}}
	rm.SetCommandID(4)
	rm.SetResponseRequired(true)

	f := toFrame(t, rm)

	assert.Equal(t, frame.UNSUBSCRIBE, f.Command)
	assert.Equal(t, "c:1:2", get(f, "id"))
	assert.Equal(t, "4", get(f, "receipt"))
}

func TestTransactions(t *testing.T) {
	cases := []struct {
		desc     string
		typ      commands.TransactionType
		command  string
		required bool
	}{
		{desc: "begin", typ: commands.TransactionBegin, command: frame.BEGIN},
		{desc: "commit forces a receipt", typ: commands.TransactionCommit, command: frame.COMMIT, required: true},
		{desc: "rollback forces a receipt", typ: commands.TransactionRollback, command: frame.ABORT, required: true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			info := &commands.TransactionInfo{
				TransactionID: &commands.TransactionID{ConnectionID: "c", Value: 1},
				Type:          tc.typ,
			}
			info.SetCommandID(8)

			f := toFrame(t, info)

			assert.Equal(t, tc.command, f.Command)
			assert.Equal(t, "c:1", get(f, "transaction"))
			assert.Equal(t, tc.required, info.ResponseRequired())
			assert.Equal(t, tc.required, f.Header.Contains("receipt"))
		})
	}
}

func TestShutdown(t *testing.T) {
	var buf bytes.Buffer
	wf := protocol.NewWireFormat(nil)

	_, err := wf.Marshal(&commands.ShutdownInfo{}, frame.NewWriter(&buf))
	require.NoError(t, err)
	assert.Equal(t, "DISCONNECT\n\n\x00", buf.String())

	info := &commands.ShutdownInfo{}
	info.SetResponseRequired(true)
	_, err = wf.Marshal(info, frame.NewWriter(&buf))
	assert.ErrorIs(t, err, protocol.ErrResponseRequired)
}

func TestKeepAliveWritesHeartbeat(t *testing.T) {
	var buf bytes.Buffer
	n, err := protocol.NewWireFormat(nil).Marshal(&commands.KeepAliveInfo{}, frame.NewWriter(&buf))
	require.NoError(t, err)

	assert.Equal(t, 1, n)
	assert.Equal(t, "\n", buf.String())
}

func TestCommandsWithoutWireFormRespond(t *testing.T) {
	cases := []struct {
		desc string
		cmd  commands.Command
	}{
		{desc: "session info", cmd: &commands.SessionInfo{}},
		{desc: "producer info", cmd: &commands.ProducerInfo{}},
		{desc: "remove subscription", cmd: &commands.RemoveSubscriptionInfo{}},
		{desc: "remove producer", cmd: &commands.RemoveInfo{ObjectID: &commands.ProducerID{ConnectionID: "c"}}},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			var got []commands.Command
			wf := protocol.NewWireFormat(nil)
			wf.SetResponder(func(c commands.Command) { got = append(got, c) })

			tc.cmd.SetCommandID(21)
			tc.cmd.SetResponseRequired(true)

			var buf bytes.Buffer
			n, err := wf.Marshal(tc.cmd, frame.NewWriter(&buf))
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Zero(t, buf.Len())

			require.Len(t, got, 1)
			resp, ok := got[0].(*commands.Response)
			require.True(t, ok)
			assert.Equal(t, int32(21), resp.CorrelationID)
		})
	}
}

func TestCommandWithoutWireFormNoResponse(t *testing.T) {
	called := false
	wf := protocol.NewWireFormat(nil)
	wf.SetResponder(func(commands.Command) { called = true })

	var buf bytes.Buffer
	_, err := wf.Marshal(&commands.SessionInfo{}, frame.NewWriter(&buf))
	require.NoError(t, err)
	assert.False(t, called)
}

func TestUnmarshalResponses(t *testing.T) {
	cases := []struct {
		desc  string
		input string
		id    int32
		isNil bool
	}{
		{desc: "receipt", input: "RECEIPT\nreceipt-id:12\n\n\x00", id: 12},
		{desc: "receipt with ignore prefix", input: "RECEIPT\nreceipt-id:ignore:13\n\n\x00", id: 13},
		{desc: "receipt without id", input: "RECEIPT\n\n\x00", isNil: true},
		{desc: "connected with response-id", input: "CONNECTED\nsession:s1\nresponse-id:1\n\n\x00", id: 1},
		{desc: "connected prefers receipt-id", input: "CONNECTED\nresponse-id:1\nreceipt-id:2\n\n\x00", id: 2},
		{desc: "connected without ids", input: "CONNECTED\nsession:s1\n\n\x00", isNil: true},
		{desc: "error with ignore prefix", input: "ERROR\nreceipt-id:ignore:42\n\n\x00", id: 42},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cmd, err := fromWire(t, tc.input)
			require.NoError(t, err)
			if tc.isNil {
				assert.Nil(t, cmd)
				return
			}
			resp, ok := cmd.(*commands.Response)
			require.True(t, ok, "got %T", cmd)
			assert.Equal(t, tc.id, resp.CorrelationID)
		})
	}
}

func TestUnmarshalError(t *testing.T) {
	cmd, err := fromWire(t, "ERROR\nreceipt-id:5\nmessage:bad destination\n\ndetails\x00")
	require.NoError(t, err)

	exc, ok := cmd.(*commands.ExceptionResponse)
	require.True(t, ok, "got %T", cmd)
	assert.Equal(t, int32(5), exc.CorrelationID)
	assert.Equal(t, "bad destination", exc.Exception.Message)

	cmd, err = fromWire(t, "ERROR\nmessage:boom\n\n\x00")
	require.NoError(t, err)
	exc, ok = cmd.(*commands.ExceptionResponse)
	require.True(t, ok)
	assert.Zero(t, exc.CorrelationID)
	assert.EqualError(t, exc.Exception, "broker error: boom")
}

func TestUnmarshalUnknownCommand(t *testing.T) {
	cmd, err := fromWire(t, "PING\nfoo:bar\n\n\x00")
	require.NoError(t, err)
	assert.Nil(t, cmd)
}

func TestUnmarshalDecodeFaults(t *testing.T) {
	cases := []struct {
		desc  string
		input string
	}{
		{desc: "receipt id", input: "RECEIPT\nreceipt-id:abc\n\n\x00"},
		{desc: "ignored error receipt id", input: "ERROR\nreceipt-id:ignore:x\n\n\x00"},
		{desc: "error receipt id", input: "ERROR\nreceipt-id:x\n\n\x00"},
		{desc: "priority", input: "MESSAGE\npriority:high\n\n\x00"},
		{desc: "priority out of range", input: "MESSAGE\npriority:300\n\n\x00"},
		{desc: "timestamp", input: "MESSAGE\ntimestamp:now\n\n\x00"},
		{desc: "expires", input: "MESSAGE\nexpires:never\n\n\x00"},
		{desc: "group sequence", input: "MESSAGE\nJMSXGroupSeq:first\n\n\x00"},
		{desc: "map body", input: "MESSAGE\ntransformation:jms-map-xml\n\n<map><entry>\x00"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cmd, err := fromWire(t, tc.input)
			assert.ErrorIs(t, err, protocol.ErrDecode)
			assert.Nil(t, cmd)
		})
	}
}

func TestUnmarshalLogsUnparsableReceipt(t *testing.T) {
	cases := []struct {
		desc  string
		input string
		want  string
	}{
		{desc: "receipt", input: "RECEIPT\nreceipt-id:abc\n\n\x00", want: "receipt_id=abc"},
		{desc: "suppressed error", input: "ERROR\nreceipt-id:ignore:x1\n\n\x00", want: "receipt_id=ignore:x1"},
		{desc: "error", input: "ERROR\nreceipt-id:9z\nmessage:boom\n\n\x00", want: "receipt_id=9z"},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
			wf := protocol.NewWireFormat(logger)

			_, err := wf.Unmarshal(frame.NewReader(strings.NewReader(tc.input), nil))
			assert.ErrorIs(t, err, protocol.ErrDecode)
			assert.Contains(t, buf.String(), tc.want)
		})
	}
}

func TestUnmarshalMessage(t *testing.T) {
	input := "MESSAGE\n" +
		"receipt:3\n" +
		"type:quote\n" +
		"destination:/topic/prices\n" +
		"reply-to:/queue/replies\n" +
		"subscription:c:1:2\n" +
		"correlation-id:corr\n" +
		"message-id:ID:host-1:0:1:1:9\n" +
		"persistent:false\n" +
		"NMSXDeliveryMode:true\n" +
		"priority:6\n" +
		"timestamp:1700000000000\n" +
		"expires:1700000001000\n" +
		"redelivered:false\n" +
		"JMSXGroupID:g\n" +
		"JMSXGroupSeq:4\n" +
		"color:red\n" +
		"\n" +
		"hello\x00"

	cmd, err := fromWire(t, input)
	require.NoError(t, err)

	dispatch, ok := cmd.(*commands.MessageDispatch)
	require.True(t, ok, "got %T", cmd)
	msg := dispatch.Message

	assert.Equal(t, commands.TextBody, msg.BodyType)
	assert.Equal(t, "hello", msg.Text())
	assert.Equal(t, "quote", msg.Type)
	assert.Equal(t, "/topic/prices", msg.Destination.String())
	assert.Equal(t, "/queue/replies", msg.ReplyTo.String())
	assert.Equal(t, &commands.ConsumerID{ConnectionID: "c", SessionID: 1, Value: 2}, msg.TargetConsumerID)
	assert.Equal(t, "corr", msg.CorrelationID)
	assert.Equal(t, "ID:host-1:0:1:1:9", msg.MessageID.String())
	assert.True(t, msg.Persistent)
	assert.Equal(t, byte(6), msg.Priority)
	assert.Equal(t, int64(1700000000000), msg.Timestamp)
	assert.Equal(t, int64(1700000001000), msg.Expiration)
	assert.Equal(t, 1, msg.RedeliveryCounter)
	assert.Equal(t, "g", msg.GroupID)
	assert.Equal(t, int32(4), msg.GroupSeq)
	assert.Equal(t, map[string]any{
		"NMSXGroupID":  "g",
		"NMSXGroupSeq": int32(4),
		"color":        "red",
	}, msg.Properties)

	assert.Equal(t, msg.TargetConsumerID, dispatch.ConsumerID)
	assert.Equal(t, msg.Destination, dispatch.Destination)
	assert.Equal(t, 1, dispatch.RedeliveryCounter)
}

func TestUnmarshalBytesMessage(t *testing.T) {
	cmd, err := fromWire(t, "MESSAGE\ncontent-length:3\ntransformation:jms-byte\n\na\x00b\x00")
	require.NoError(t, err)

	msg := cmd.(*commands.MessageDispatch).Message
	assert.Equal(t, commands.BytesBody, msg.BodyType)
	assert.Equal(t, []byte("a\x00b"), msg.Content)
	assert.Equal(t, map[string]any{
		"content-length": "3",
		"transformation": "jms-byte",
	}, msg.Properties)
	assert.Equal(t, commands.DefaultPriority, msg.Priority)
	assert.False(t, msg.Persistent)
	assert.Zero(t, msg.RedeliveryCounter)
}

func TestUnmarshalKeepsBodyHeadersAsProperties(t *testing.T) {
	cmd, err := fromWire(t, "MESSAGE\ndestination:/queue/a\ncontent-length:2\ntransformation:custom-x\n\nab\x00")
	require.NoError(t, err)

	msg := cmd.(*commands.MessageDispatch).Message
	assert.Equal(t, commands.BytesBody, msg.BodyType)
	assert.Equal(t, []byte("ab"), msg.Content)
	assert.Equal(t, "2", msg.Properties["content-length"])
	assert.Equal(t, "custom-x", msg.Properties["transformation"])
}

func TestSendForwardedMessageKeepsBodyFraming(t *testing.T) {
	cmd, err := fromWire(t, "MESSAGE\ndestination:/queue/a\ncontent-length:2\ntransformation:jms-byte\n\nab\x00")
	require.NoError(t, err)

	msg := cmd.(*commands.MessageDispatch).Message
	msg.Content = []byte("longer")
	f := toFrame(t, msg)
	assert.Equal(t, "6", get(f, "content-length"))
	assert.Equal(t, "jms-byte", get(f, "transformation"))

	text := commands.NewTextMessage("hi")
	text.Destination = commands.NewQueue("a")
	text.SetProperty("content-length", "40")
	text.SetProperty("transformation", "custom-x")
	f = toFrame(t, text)
	assert.False(t, f.Header.Contains("content-length"))
	assert.Equal(t, "custom-x", get(f, "transformation"))
}

func TestRoundTrip(t *testing.T) {
	text := commands.NewTextMessage("hello world")
	text.Destination = commands.NewQueue("orders")
	text.ReplyTo = commands.NewTopic("replies")
	text.CorrelationID = "c-1"
	text.Type = "order"
	text.Priority = 9
	text.Expiration = 123
	text.Persistent = true
	text.GroupID = "grp"
	text.GroupSeq = 2
	text.SetProperty("region", "eu")

	bin := commands.NewBytesMessage([]byte{0, 1, 2, 0})
	bin.Destination = commands.NewQueue("blobs")

	emptyBin := commands.NewBytesMessage(nil)
	emptyBin.Destination = commands.NewQueue("blobs")

	mapped := commands.NewMapMessage(map[string]any{
		"name":  "widget",
		"count": int32(3),
		"price": 2.5,
		"ok":    true,
		"raw":   []byte("xyz"),
	})
	mapped.Destination = commands.NewQueue("maps")

	cases := []struct {
		desc string
		msg  *commands.Message
	}{
		{desc: "text", msg: text},
		{desc: "bytes", msg: bin},
		{desc: "empty bytes", msg: emptyBin},
		{desc: "map", msg: mapped},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			wf := protocol.NewWireFormat(nil)

			var buf bytes.Buffer
			_, err := wf.Marshal(tc.msg, frame.NewWriter(&buf))
			require.NoError(t, err)

			// A broker relays SEND as MESSAGE.
			wire := strings.Replace(buf.String(), "SEND", "MESSAGE", 1)
			cmd, err := wf.Unmarshal(frame.NewReader(strings.NewReader(wire), nil))
			require.NoError(t, err)

			got := cmd.(*commands.MessageDispatch).Message
			want := tc.msg
			assert.Equal(t, want.BodyType, got.BodyType)
			assert.Equal(t, want.Destination, got.Destination)
			assert.Equal(t, want.ReplyTo, got.ReplyTo)
			assert.Equal(t, want.CorrelationID, got.CorrelationID)
			assert.Equal(t, want.Type, got.Type)
			assert.Equal(t, want.Priority, got.Priority)
			assert.Equal(t, want.Expiration, got.Expiration)
			assert.Equal(t, want.Persistent, got.Persistent)
			assert.Equal(t, want.GroupID, got.GroupID)
			assert.Equal(t, want.GroupSeq, got.GroupSeq)
			assert.Equal(t, want.Map, got.Map)
			if want.BodyType != commands.MapBody {
				assert.Equal(t, len(want.Content), len(got.Content))
				assert.True(t, bytes.Equal(want.Content, got.Content))
			}
			for name, value := range want.Properties {
				assert.Equal(t, value, got.Properties[name], name)
			}
		})
	}
}
