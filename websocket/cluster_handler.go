package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/mapclusterer/clusterer"
	"github.com/aukilabs/mapclusterer/datasets"
	"github.com/aukilabs/mapclusterer/featureflag"
	"github.com/aukilabs/mapclusterer/methods"
	"github.com/aukilabs/mapclusterer/methods/grid"
	"github.com/aukilabs/mapclusterer/methods/registry"
	"github.com/aukilabs/mapclusterer/throttle"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

// ClusterHandler is a handler that clusters a dataset on the map of the
// connected client and streams the resulting entities to it.
type ClusterHandler struct {
	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	// The datasets clients can attach to.
	Datasets *datasets.Store

	// The grid options used when a client does not specify them.
	GridOptions grid.Options

	// The minimum time between two renders triggered by viewport changes.
	TickTimeout time.Duration

	FeatureFlags featureflag.FeatureFlag

	conn      *websocket.Conn
	clientID  string
	clock     throttle.Clock
	host      *host
	clusterer *clusterer.Clusterer
	dataset   string
}

func (h *ClusterHandler) HandleConnect(conn *websocket.Conn, clock throttle.Clock) {
	h.conn = conn
	h.clock = clock
	h.clientID = clientIDFromRequest(conn.Request())
}

func (h *ClusterHandler) HandleDisconnect(_ error) {
	if h.clusterer == nil {
		return
	}

	h.host.closed = true
	h.clusterer.OnDetach()
	h.clusterer = nil
	h.host = nil
}

func (h *ClusterHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req PingRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	respond.Send(MsgTypePong, PongResponse{
		RequestID: req.RequestID,
		Timestamp: time.Now(),
	})
	return nil
}

func (h *ClusterHandler) HandleAttach(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req AttachRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.clusterer != nil {
		sendError(respond, req.RequestID, ErrCodeAlreadyAttached, "a clusterer is already attached")
		return nil
	}

	dataset, err := h.Datasets.Get(req.Dataset)
	if err != nil {
		sendError(respond, req.RequestID, ErrCodeNotFound, err.Error())
		return nil
	}

	method, err := h.newMethod(req.Method, req.GridSize)
	if err != nil {
		sendError(respond, req.RequestID, ErrCodeBadRequest, err.Error())
		return nil
	}

	host := &host{
		Clock:   h.clock,
		respond: respond,
	}
	if req.Viewport != nil {
		if err := host.SetViewport(*req.Viewport); err != nil {
			sendError(respond, req.RequestID, ErrCodeBadRequest, err.Error())
			return nil
		}
	}

	c, err := clusterer.New(
		clusterer.WithMethod(method),
		clusterer.WithFeatures(dataset.Features),
		clusterer.WithMarker(newMarker),
		clusterer.WithCluster(newCluster),
		clusterer.WithTickTimeout(h.TickTimeout),
		clusterer.WithOnRendered(func(s clusterer.Stats) {
			h.sendRenderSummary(respond, s)
		}),
		clusterer.WithOnError(func(err error) {
			sendError(respond, 0, ErrCodeInternal, err.Error())
		}),
	)
	if err != nil {
		return errors.New("creating clusterer failed").Wrap(err)
	}

	h.host = host
	h.clusterer = c
	h.dataset = dataset.Name

	if err := c.OnAttach(host); err != nil {
		sendError(respond, req.RequestID, ErrCodeInternal, err.Error())
	}
	return nil
}

func (h *ClusterHandler) HandleViewportUpdate(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.handleViewportChange(respond, msg, func() {
		h.clusterer.HandleViewportUpdate()
	})
}

func (h *ClusterHandler) HandleViewportResize(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.handleViewportChange(respond, msg, func() {
		h.clusterer.HandleViewportResize()
	})
}

func (h *ClusterHandler) handleViewportChange(respond ResponseSender, msg Msg, notify func()) error {
	var viewport Viewport
	if err := msg.DataTo(&viewport); err != nil {
		return err
	}

	if h.clusterer == nil {
		sendError(respond, 0, ErrCodeNotAttached, "no clusterer is attached")
		return nil
	}

	if err := h.host.SetViewport(viewport); err != nil {
		sendError(respond, 0, ErrCodeBadRequest, err.Error())
		return nil
	}

	notify()
	return nil
}

func (h *ClusterHandler) HandleUpdate(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req UpdateRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	if h.clusterer == nil {
		sendError(respond, req.RequestID, ErrCodeNotAttached, "no clusterer is attached")
		return nil
	}

	var options []clusterer.Option
	var datasetName string

	if req.Dataset != "" {
		dataset, err := h.Datasets.Get(req.Dataset)
		if err != nil {
			sendError(respond, req.RequestID, ErrCodeNotFound, err.Error())
			return nil
		}

		datasetName = dataset.Name
		options = append(options, clusterer.WithFeatures(dataset.Features))
	}

	if req.Method != "" || req.GridSize != 0 {
		method, err := h.newMethod(req.Method, req.GridSize)
		if err != nil {
			sendError(respond, req.RequestID, ErrCodeBadRequest, err.Error())
			return nil
		}
		options = append(options, clusterer.WithMethod(method))
	}

	if err := h.clusterer.OnUpdate(options...); err != nil {
		sendError(respond, req.RequestID, ErrCodeInternal, err.Error())
		return nil
	}

	if datasetName != "" {
		h.dataset = datasetName
	}
	return nil
}

func (h *ClusterHandler) HandleDetach(ctx context.Context, respond ResponseSender, msg Msg) error {
	if h.clusterer == nil {
		sendError(respond, 0, ErrCodeNotAttached, "no clusterer is attached")
		return nil
	}

	h.clusterer.OnDetach()
	h.clusterer = nil
	h.host = nil
	h.dataset = ""
	return nil
}

func (h *ClusterHandler) Receiver() Receiver {
	return NewReceiver(h.conn)
}

func (h *ClusterHandler) Sender() Sender {
	return NewSender(h.conn)
}

func (h *ClusterHandler) Close() {
}

func (h *ClusterHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *ClusterHandler) GetClientID() string {
	return h.clientID
}

// Dataset returns the name of the attached dataset.
func (h *ClusterHandler) Dataset() string {
	return h.dataset
}

func (h *ClusterHandler) newMethod(name string, gridSize float64) (methods.Method, error) {
	r := registry.Registry{
		GridOptions:  h.GridOptions,
		FeatureFlags: h.FeatureFlags,
	}
	return r.New(name, gridSize)
}

func (h *ClusterHandler) sendRenderSummary(respond ResponseSender, s clusterer.Stats) {
	if h.FeatureFlags.IsSet(featureflag.FlagDisableRenderSummary) {
		return
	}

	respond.Send(MsgTypeRenderSummary, RenderSummary{
		Method:     s.Method,
		Visible:    s.Visible,
		Added:      s.Added,
		Removed:    s.Removed,
		DurationMS: float64(s.Duration) / float64(time.Millisecond),
	})
}

func sendError(respond ResponseSender, requestID uint32, code, message string) {
	respond.Send(MsgTypeError, ErrorResponse{
		RequestID: requestID,
		Code:      code,
		Message:   message,
	})
}

// HeaderClientID is the header a client can use to identify itself. A random
// id is assigned to clients that don't set it.
const HeaderClientID = "X-Client-Id"

func clientIDFromRequest(r *http.Request) string {
	if r != nil {
		if id := r.Header.Get(HeaderClientID); id != "" {
			return id
		}
	}
	return uuid.NewString()
}
