package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

const testReceiveTimeout = 5 * time.Second

var (
	testLogsOnce   sync.Once
	testLogsSetups int

	testLoggerMutex sync.Mutex
	testLogger      func(logs.Entry)
)

// setupTestLogs sets the global log and error encoders once for the whole
// package. Handlers from previous environments may still be logging while a
// new one starts, so tests swap the destination with setTestLogger instead.
func setupTestLogs() {
	testLogsOnce.Do(func() {
		testLogsSetups++

		logs.Encoder = json.Marshal
		errors.Encoder = json.Marshal

		logs.SetLogger(func(e logs.Entry) {
			testLoggerMutex.Lock()
			defer testLoggerMutex.Unlock()

			if testLogger != nil {
				testLogger(e)
			}
		})
	})
}

// setTestLogger redirects log entries to l until the returned function is
// called.
func setTestLogger(l func(logs.Entry)) func() {
	setupTestLogs()

	testLoggerMutex.Lock()
	testLogger = l
	testLoggerMutex.Unlock()

	return func() {
		testLoggerMutex.Lock()
		testLogger = nil
		testLoggerMutex.Unlock()
	}
}

// Creates a testing environement to unit test handlers.
func NewTestingEnv(t *testing.T, newHandler func() Handler) (*TestClient, func()) {
	resetLogger := setTestLogger(func(e logs.Entry) {
		t.Log(e)
	})

	client, close := newTestingEnv(t, newHandler)
	return client, func() {
		resetLogger()
		close()
	}
}

func newTestingEnv(t *testing.T, newHandler func() Handler) (*TestClient, func()) {
	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(context.Background(), conn, handler)
		},
	})

	config, err := websocket.NewConfig(
		strings.ReplaceAll(server.URL, "http://", "ws://"),
		"http://localhost",
	)
	if err != nil {
		t.Fatalf("error initializing web socket: %s", err)
	}

	config.Header.Set("User-Agent", "ted")
	config.Header.Set(XForwardedForHeaderKey, "192.0.0.0")
	config.Header.Set(HeaderClientID, uuid.NewString())

	conn, err := websocket.DialConfig(config)
	if err != nil {
		t.Fatalf("error dialing web socket: %s", err)
	}

	client := &TestClient{
		t:    t,
		conn: conn,
	}

	return client, func() {
		conn.Close()
		server.Close()
	}
}

// TestClient is a client connected to a testing environment.
type TestClient struct {
	t    *testing.T
	conn *websocket.Conn
}

// Send sends a message with the given payload.
func (c *TestClient) Send(t MsgType, data any) {
	msg, err := NewMsg(t, data)
	require.NoError(c.t, err)

	b, err := json.Marshal(msg)
	require.NoError(c.t, err)

	err = websocket.Message.Send(c.conn, string(b))
	require.NoError(c.t, err)
}

// Receive waits for the next message.
func (c *TestClient) Receive() Msg {
	err := c.conn.SetReadDeadline(time.Now().Add(testReceiveTimeout))
	require.NoError(c.t, err)

	var data []byte
	err = websocket.Message.Receive(c.conn, &data)
	require.NoError(c.t, err)

	var msg Msg
	err = json.Unmarshal(data, &msg)
	require.NoError(c.t, err)
	return msg
}

// ReceiveUntil receives messages until one of the given type arrives. It
// returns all the received messages, the one of the given type being the
// last.
func (c *TestClient) ReceiveUntil(t MsgType) []Msg {
	var msgs []Msg
	for {
		msg := c.Receive()
		msgs = append(msgs, msg)
		if msg.Type == t {
			return msgs
		}
	}
}
