package websocket

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/mapclusterer/throttle"
	"golang.org/x/net/websocket"
)

const (
	XForwardedForHeaderKey = "X-Forwarded-For"
)

func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	originalRequest *http.Request

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int

	dataset string
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn, clock throttle.Clock) {
	h.Handler.HandleConnect(conn, clock)

	req := conn.Request()
	h.originalRequest = req

	logs.WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("http_headers", h.httpHeaders()).
		Info("new client is connected")
}

func (h *handlerWithLogs) HandleAttach(ctx context.Context, respond ResponseSender, msg Msg) error {
	if err := h.Handler.HandleAttach(ctx, respond, msg); err != nil {
		return err
	}

	var req AttachRequest
	// Check for error here is unecessary since it would never go here if the
	// request parsing failed in h.Handler.HandleAttach.
	msg.DataTo(&req)

	h.dataset = h.currentDataset(req.Dataset)

	logs.WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("dataset", h.dataset).
		WithTag("method", req.Method).
		WithTag("grid_size", req.GridSize).
		WithTag("has_viewport", req.Viewport != nil).
		Info("attach request handled")
	return nil
}

func (h *handlerWithLogs) HandleUpdate(ctx context.Context, respond ResponseSender, msg Msg) error {
	if err := h.Handler.HandleUpdate(ctx, respond, msg); err != nil {
		return err
	}

	var req UpdateRequest
	msg.DataTo(&req)

	previous := h.dataset
	h.dataset = h.currentDataset(h.dataset)

	logs.WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("previous_dataset", previous).
		WithTag("dataset", h.dataset).
		WithTag("method", req.Method).
		WithTag("grid_size", req.GridSize).
		Info("update request handled")
	return nil
}

// currentDataset returns the dataset reported by the wrapped handler, or
// fallback when it does not report one.
func (h *handlerWithLogs) currentDataset(fallback string) string {
	if d, ok := h.Handler.(interface{ Dataset() string }); ok {
		return d.Dataset()
	}
	return fallback
}

func (h *handlerWithLogs) HandleDetach(ctx context.Context, respond ResponseSender, msg Msg) error {
	if err := h.Handler.HandleDetach(ctx, respond, msg); err != nil {
		return err
	}

	logs.WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("dataset", h.dataset).
		Info("detach request handled")
	h.dataset = ""
	return nil
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)

	entry := logs.WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("dataset", h.dataset)
	if err != nil {
		entry = entry.WithTag("reason", err.Error())
	}
	entry.Info("client disconnected")
}

func (h *handlerWithLogs) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			logs.WithTag(logs.ClientIDTag, h.GetClientID()).
				Error(errors.New("receiving message failed").Wrap(err))
		} else if err == nil {
			logs.WithTag(logs.ClientIDTag, h.GetClientID()).
				WithTag("msg_type", msg.TypeString()).
				Debug("message received")
			h.incCounter(msg.TypeString())
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() Sender {
	sender := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			logs.WithTag(logs.ClientIDTag, h.GetClientID()).
				WithTag("msg_type", msgType).
				Error(errors.New("sending message failed").Wrap(err))
		} else if err == nil {
			logs.WithTag(logs.ClientIDTag, h.GetClientID()).
				WithTag("msg_type", msgType).
				Debug("message sent")
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) httpHeaders() any {
	if h.originalRequest == nil {
		return nil
	}

	return struct {
		UserAgent     string `json:"user_agent,omitempty"`
		XForwardedFor string `json:"x_forwarded_for,omitempty"`
	}{
		UserAgent:     h.originalRequest.UserAgent(),
		XForwardedFor: h.originalRequest.Header.Get(XForwardedForHeaderKey),
	}
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) incCounter(msgType string) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.counter[msgType]++
}

func (h *handlerWithLogs) logSummary() {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	if len(h.counter) == 0 {
		return
	}

	entry := logs.
		WithTag(logs.ClientIDTag, h.GetClientID()).
		WithTag("time_interval", h.summaryInterval)

	for k, v := range h.counter {
		entry = entry.WithTag(k, v)
		delete(h.counter, k)
	}

	entry.Info("inbound message summary")
}
