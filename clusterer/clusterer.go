// Package clusterer keeps the entities displayed by a host in sync with the
// clusters rendered by a clustering method.
//
// A Clusterer is not safe for concurrent use. Every call, including the timer
// callbacks scheduled on the host clock, must happen on the same goroutine.
package clusterer

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/mapclusterer/methods"
	"github.com/aukilabs/mapclusterer/models"
	"github.com/aukilabs/mapclusterer/throttle"
)

const (
	// The default minimum time between two renders triggered by viewport
	// changes.
	DefaultTickTimeout = 200 * time.Millisecond

	ErrTypeInvalidProps    = "invalid_props"
	ErrTypeFactory         = "entity_factory_failed"
	ErrTypeAlreadyAttached = "already_attached"
	ErrTypeSkipReconcile   = "skip_reconcile"
	ErrTypeOnRender        = "on_render_failed"
)

// SkipReconcile is returned by an OnRender hook to prevent the rendered
// objects from being reconciled. The visible entities are left untouched.
var SkipReconcile = errors.New("reconciliation skipped").WithType(ErrTypeSkipReconcile)

// State describes whether a clusterer is attached to a host.
type State int

const (
	StateDetached State = iota
	StateAttached
)

func (s State) String() string {
	switch s {
	case StateDetached:
		return "detached"
	case StateAttached:
		return "attached"
	default:
		return "unknown"
	}
}

// Attachable is implemented by components that follow the lifecycle of a
// host.
type Attachable interface {
	OnAttach(h Host) error
	OnDetach()
	OnUpdate(options ...Option) error
}

// Props contains the configuration of a clusterer.
type Props struct {
	// The clustering method.
	Method methods.Method

	// The features to cluster.
	Features []models.Feature

	// Creates the entity of a single feature.
	Marker MarkerFactory

	// Creates the entity of a cluster.
	Cluster ClusterFactory

	// The minimum time between two renders triggered by viewport changes. 0
	// disables throttling.
	TickTimeout time.Duration

	// Called with the rendered objects before they are reconciled. Returning
	// SkipReconcile prevents the reconciliation.
	OnRender func(objects []models.ClustererObject) error

	// Called after every reconciled render pass.
	OnRendered func(s Stats)

	// Called with the errors of renders that are not triggered by a direct
	// call. Errors are logged when not set.
	OnError func(err error)

	replaced replacedProps
}

type replacedProps uint8

const (
	replacedMethod replacedProps = 1 << iota
	replacedFactories
)

func (p Props) validate() error {
	if p.Method == nil {
		return errors.New("method is required").WithType(ErrTypeInvalidProps)
	}

	if p.Marker == nil {
		return errors.New("marker factory is required").WithType(ErrTypeInvalidProps)
	}

	if p.Cluster == nil {
		return errors.New("cluster factory is required").WithType(ErrTypeInvalidProps)
	}

	if p.TickTimeout < 0 {
		return errors.New("tick timeout must not be negative").
			WithType(ErrTypeInvalidProps).
			WithTag("tick_timeout", p.TickTimeout)
	}

	return nil
}

// Option is a function that sets up clusterer props.
type Option func(*Props)

func WithMethod(m methods.Method) Option {
	return func(p *Props) {
		p.Method = m
		p.replaced |= replacedMethod
	}
}

func WithFeatures(f []models.Feature) Option {
	return func(p *Props) {
		p.Features = f
	}
}

func WithMarker(f MarkerFactory) Option {
	return func(p *Props) {
		p.Marker = f
		p.replaced |= replacedFactories
	}
}

func WithCluster(f ClusterFactory) Option {
	return func(p *Props) {
		p.Cluster = f
		p.replaced |= replacedFactories
	}
}

func WithTickTimeout(d time.Duration) Option {
	return func(p *Props) {
		p.TickTimeout = d
	}
}

func WithOnRender(h func(objects []models.ClustererObject) error) Option {
	return func(p *Props) {
		p.OnRender = h
	}
}

func WithOnRendered(h func(s Stats)) Option {
	return func(p *Props) {
		p.OnRendered = h
	}
}

func WithOnError(h func(err error)) Option {
	return func(p *Props) {
		p.OnError = h
	}
}

// Stats describes a reconciled render pass.
type Stats struct {
	Method   string
	Objects  int
	Visible  int
	Added    int
	Removed  int
	Duration time.Duration
}

// Clusterer renders features with a clustering method and keeps the entities
// of its host in sync with the result.
type Clusterer struct {
	props      Props
	state      State
	host       Host
	reconciler *Reconciler
	throttle   *throttle.Throttle
}

// New creates a clusterer with the given options.
func New(options ...Option) (*Clusterer, error) {
	props := Props{
		TickTimeout: DefaultTickTimeout,
	}
	for _, o := range options {
		o(&props)
	}

	if err := props.validate(); err != nil {
		return nil, err
	}
	props.replaced = 0

	return &Clusterer{
		props:      props,
		reconciler: NewReconciler(props.Marker, props.Cluster),
	}, nil
}

// Props returns the current props.
func (c *Clusterer) Props() Props {
	return c.props
}

// State returns whether the clusterer is attached.
func (c *Clusterer) State() State {
	return c.state
}

// OnAttach attaches the clusterer to a host and renders once.
func (c *Clusterer) OnAttach(h Host) error {
	if c.state == StateAttached {
		return errors.New("clusterer is already attached").WithType(ErrTypeAlreadyAttached)
	}

	c.reconciler.Reset()
	c.host = h
	c.state = StateAttached
	c.resetThrottle()

	return c.Render()
}

// OnDetach removes the visible entities from the host and detaches the
// clusterer from it.
func (c *Clusterer) OnDetach() {
	if c.state != StateAttached {
		return
	}

	c.throttle.Cancel()
	c.throttle = nil
	c.clear()

	c.host = nil
	c.state = StateDetached
}

// OnUpdate replaces the props set by the given options and renders
// immediately when attached.
//
// Cluster ids are only meaningful for the method that produced them: when the
// method or a factory is replaced, every visible entity is removed and the
// cache is cleared before rendering.
func (c *Clusterer) OnUpdate(options ...Option) error {
	props := c.props
	for _, o := range options {
		o(&props)
	}

	if err := props.validate(); err != nil {
		return err
	}

	replaced := props.replaced
	tickTimeoutChanged := props.TickTimeout != c.props.TickTimeout
	props.replaced = 0
	c.props = props
	c.reconciler.SetFactories(props.Marker, props.Cluster)

	if c.state != StateAttached {
		c.reconciler.Reset()
		return nil
	}

	if replaced != 0 {
		c.clear()
	}

	if tickTimeoutChanged {
		c.throttle.Cancel()
		c.resetThrottle()
	}
	return c.Render()
}

// HandleViewportUpdate requests a render after the host viewport moved.
// Renders are throttled by the tick timeout.
func (c *Clusterer) HandleViewportUpdate() {
	if c.state != StateAttached {
		return
	}
	c.throttle.Call()
}

// HandleViewportResize requests a render after the host viewport was
// resized. It shares its throttle with HandleViewportUpdate.
func (c *Clusterer) HandleViewportResize() {
	if c.state != StateAttached {
		return
	}
	c.throttle.Call()
}

// Render runs a render pass. It does nothing when the clusterer is detached or
// when the host has no viewport yet.
func (c *Clusterer) Render() error {
	if c.state != StateAttached {
		return nil
	}

	viewport, projection, ok := c.host.Viewport()
	if !ok {
		return nil
	}

	method := c.props.Method.Name()
	start := c.host.Now()

	objects := c.props.Method.Render(methods.RenderProps{
		Viewport:   viewport,
		Projection: projection,
		Features:   c.props.Features,
	})

	if c.props.OnRender != nil {
		if err := c.props.OnRender(objects); err != nil {
			if errors.IsType(err, ErrTypeSkipReconcile) {
				instrumentSkippedRender(method)
				return nil
			}

			err = errors.New("on render hook failed").
				WithType(ErrTypeOnRender).
				Wrap(err)
			instrumentRenderError(method, err)
			return err
		}
	}

	delta, err := c.reconciler.Reconcile(objects)
	if err != nil {
		instrumentRenderError(method, err)
		return err
	}
	Apply(c.host, delta)

	stats := Stats{
		Method:   method,
		Objects:  len(objects),
		Visible:  len(delta.Visible),
		Added:    len(delta.Added),
		Removed:  len(delta.Removed),
		Duration: c.host.Now().Sub(start),
	}
	instrumentRender(stats)

	logs.WithTag("method", stats.Method).
		WithTag("zoom", viewport.Zoom).
		WithTag("objects", stats.Objects).
		WithTag("added", stats.Added).
		WithTag("removed", stats.Removed).
		Debug("render pass")

	if c.props.OnRendered != nil {
		c.props.OnRendered(stats)
	}
	return nil
}

func (c *Clusterer) clear() {
	for _, e := range c.reconciler.Visible() {
		c.host.RemoveChild(e)
	}
	c.reconciler.Reset()
}

func (c *Clusterer) resetThrottle() {
	c.throttle = throttle.New(c.host, c.props.TickTimeout, c.throttledRender)
}

func (c *Clusterer) throttledRender() {
	err := c.Render()
	if err == nil {
		return
	}

	if c.props.OnError != nil {
		c.props.OnError(err)
		return
	}
	logs.Warn(errors.New("throttled render failed").Wrap(err))
}
