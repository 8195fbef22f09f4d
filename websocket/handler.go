package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/mapclusterer/throttle"
	"golang.org/x/net/websocket"
)

const (
	sendChanSize  = 512
	timerChanSize = 16
)

// Handler represents a clusterer connection handler.
type Handler interface {
	// Handles a client connection. Timer callbacks scheduled with the given
	// clock run on the goroutine that calls the other handler methods.
	HandleConnect(conn *websocket.Conn, clock throttle.Clock)

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Handles a ping request.
	HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to attach a clusterer to the client map.
	HandleAttach(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a change of the client map location.
	HandleViewportUpdate(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a change of the client map size.
	HandleViewportResize(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to change the clustered dataset or the clustering
	// method.
	HandleUpdate(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to detach the clusterer.
	HandleDetach(ctx context.Context, respond ResponseSender, msg Msg) error

	// Creates a message receiver used to receive incoming messages.
	Receiver() Receiver

	// Creates a message sender used to send messages.
	Sender() Sender

	// Closes the handler and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// Get ClientID
	GetClientID() string
}

// Handle handles a connection with the given handler until the client
// disconnects or the context is canceled.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	// The clusterer handler.
	Handler Handler

	sendChan       chan Msg
	sendDone       chan struct{}
	timerChan      chan func()
	msgChan        chan Msg
	sender         Sender
	receiver       Receiver
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	h.timerChan = make(chan func(), timerChanSize)
	h.Handler.HandleConnect(h.Conn, loopClock{
		ctx:       ctx,
		timerChan: h.timerChan,
	})

	var wg sync.WaitGroup

	h.sendChan = make(chan Msg, sendChanSize)
	h.sendDone = make(chan struct{})
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(h.sendDone)
		h.startSending(ctx)
	}()

	h.msgChan = make(chan Msg)
	h.receiver = h.Handler.Receiver()
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	var responder = responseSender{
		send:    h.send,
		sendMsg: h.sendMsg,
	}

	disconnected := false

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			h.disconnect(ctx.Err())

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", h.Handler.IdleTimeout()))

		case f := <-h.timerChan:
			f()

		case msg := <-h.msgChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				h.disconnect(errors.New("handling message failed").Wrap(err))
			}

		case err := <-h.disconnectChan:
			h.handleDisconnect(err)
			disconnected = true
			if ctx.Err() == nil {
				// cancel context so go routines can cleanly exit
				cancel()
			}
		}
	}

	if !disconnected {
		h.handleDisconnect(ctx.Err())
	}

	wg.Wait()
}

func (h *handler) send(t MsgType, data any) {
	msg, err := NewMsg(t, data)
	if err != nil {
		logs.WithTag(logs.ClientIDTag, h.Handler.GetClientID()).
			WithTag("msg_type", t).
			Debug(err)
		return
	}
	h.sendMsg(msg)
}

func (h *handler) sendMsg(msg Msg) {
	select {
	case h.sendChan <- msg:
	case <-h.sendDone:
	}
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		default:
			msg, _, err := h.receiver()
			if err != nil {
				h.disconnect(errors.New("receiving message failed").Wrap(err))
				return
			}

			select {
			case h.msgChan <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg Msg, responder ResponseSender) error {
	switch msg.Type {
	case MsgTypePing:
		return h.Handler.HandlePing(ctx, responder, msg)

	case MsgTypeAttach:
		return h.Handler.HandleAttach(ctx, responder, msg)

	case MsgTypeViewportUpdate:
		return h.Handler.HandleViewportUpdate(ctx, responder, msg)

	case MsgTypeViewportResize:
		return h.Handler.HandleViewportResize(ctx, responder, msg)

	case MsgTypeUpdate:
		return h.Handler.HandleUpdate(ctx, responder, msg)

	case MsgTypeDetach:
		return h.Handler.HandleDetach(ctx, responder, msg)

	default:
		responder.Send(MsgTypeError, ErrorResponse{
			Code:    ErrCodeBadRequest,
			Message: "unknown message type: " + msg.TypeString(),
		})
		return nil
	}
}

func (h *handler) disconnect(err error) {
	select {
	case h.disconnectChan <- err:
	default:
	}
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

type responseSender struct {
	send    func(MsgType, any)
	sendMsg func(Msg)
}

func (r responseSender) Send(t MsgType, data any) {
	r.send(t, data)
}

func (r responseSender) SendMsg(msg Msg) {
	r.sendMsg(msg)
}

// loopClock is a clock whose timer callbacks are run by the connection loop.
type loopClock struct {
	ctx       context.Context
	timerChan chan func()
}

func (c loopClock) Now() time.Time {
	return time.Now()
}

func (c loopClock) AfterFunc(d time.Duration, f func()) throttle.Timer {
	return time.AfterFunc(d, func() {
		select {
		case c.timerChan <- f:
		case <-c.ctx.Done():
		}
	})
}
