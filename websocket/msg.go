package websocket

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeMsgDecode = "msg_decode_failed"
	ErrTypeMsgEncode = "msg_encode_failed"
)

// MsgType is the type of a message exchanged with a client.
type MsgType string

const (
	MsgTypePing           MsgType = "ping"
	MsgTypeAttach         MsgType = "attach"
	MsgTypeViewportUpdate MsgType = "viewport_update"
	MsgTypeViewportResize MsgType = "viewport_resize"
	MsgTypeUpdate         MsgType = "update"
	MsgTypeDetach         MsgType = "detach"

	MsgTypePong          MsgType = "pong"
	MsgTypeEntityAdd     MsgType = "entity_add"
	MsgTypeEntityRemove  MsgType = "entity_remove"
	MsgTypeRenderSummary MsgType = "render_summary"
	MsgTypeError         MsgType = "error"
)

// Msg is a message exchanged with a client.
type Msg struct {
	Type MsgType         `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMsg creates a message with the given payload.
func NewMsg(t MsgType, data any) (Msg, error) {
	if data == nil {
		return Msg{Type: t}, nil
	}

	b, err := json.Marshal(data)
	if err != nil {
		return Msg{}, errors.New("encoding message data failed").
			WithType(ErrTypeMsgEncode).
			WithTag("msg_type", t).
			Wrap(err)
	}
	return Msg{Type: t, Data: b}, nil
}

// DataTo decodes the message payload into v.
func (m Msg) DataTo(v any) error {
	if len(m.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message data failed").
			WithType(ErrTypeMsgDecode).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// Receiver receives a message. It returns the number of bytes read.
type Receiver func() (Msg, int, error)

// Sender sends a message. It returns the number of bytes written.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to be sent to a client.
type ResponseSender interface {
	Send(t MsgType, data any)
	SendMsg(msg Msg)
}

// NewReceiver returns a receiver that reads JSON text frames from the given
// connection.
func NewReceiver(conn *websocket.Conn) Receiver {
	return func() (Msg, int, error) {
		var data []byte
		if err := websocket.Message.Receive(conn, &data); err != nil {
			return Msg{}, 0, err
		}

		var msg Msg
		if err := json.Unmarshal(data, &msg); err != nil {
			return Msg{}, len(data), errors.New("decoding message failed").
				WithType(ErrTypeMsgDecode).
				Wrap(err)
		}
		return msg, len(data), nil
	}
}

// NewSender returns a sender that writes JSON text frames to the given
// connection.
func NewSender(conn *websocket.Conn) Sender {
	return func(msg Msg) (int, error) {
		data, err := json.Marshal(msg)
		if err != nil {
			return 0, errors.New("encoding message failed").
				WithType(ErrTypeMsgEncode).
				WithTag("msg_type", msg.Type).
				Wrap(err)
		}

		if err := websocket.Message.Send(conn, string(data)); err != nil {
			return 0, err
		}
		return len(data), nil
	}
}

// Viewport is the visible area of a client map.
type Viewport struct {
	Zoom   float64    `json:"zoom"`
	Center [2]float64 `json:"center"`
	Width  float64    `json:"width"`
	Height float64    `json:"height"`
}

type PingRequest struct {
	RequestID uint32 `json:"request_id,omitempty"`
}

type PongResponse struct {
	RequestID uint32    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type AttachRequest struct {
	RequestID uint32 `json:"request_id,omitempty"`

	// The name of the dataset to cluster.
	Dataset string `json:"dataset"`

	// The clustering method: grid or passthrough. Defaults to grid.
	Method string `json:"method,omitempty"`

	// The size of a grid cell, in pixels. The server default is used when 0.
	GridSize float64 `json:"grid_size,omitempty"`

	// The initial viewport. Nothing is rendered until a viewport is known.
	Viewport *Viewport `json:"viewport,omitempty"`
}

type UpdateRequest struct {
	RequestID uint32  `json:"request_id,omitempty"`
	Dataset   string  `json:"dataset,omitempty"`
	Method    string  `json:"method,omitempty"`
	GridSize  float64 `json:"grid_size,omitempty"`
}

type EntityAdd struct {
	EntityID    string         `json:"entity_id"`
	Kind        string         `json:"kind"`
	ClusterID   string         `json:"cluster_id,omitempty"`
	Coordinates [2]float64     `json:"coordinates"`
	Count       int            `json:"count"`
	FeatureIDs  []string       `json:"feature_ids"`
	Properties  map[string]any `json:"properties,omitempty"`
}

type EntityRemove struct {
	EntityID string `json:"entity_id"`
}

type RenderSummary struct {
	Method     string  `json:"method"`
	Visible    int     `json:"visible"`
	Added      int     `json:"added"`
	Removed    int     `json:"removed"`
	DurationMS float64 `json:"duration_ms"`
}

// Error codes sent to clients.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeNotAttached     = "not_attached"
	ErrCodeAlreadyAttached = "already_attached"
	ErrCodeInternal        = "internal_error"
)

type ErrorResponse struct {
	RequestID uint32 `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}
