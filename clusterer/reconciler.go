package clusterer

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/mapclusterer/models"
)

// Delta describes the changes to apply to a container to go from one render
// pass to the next.
type Delta struct {
	// Entities to remove, in the order they were previously visible.
	Removed []Entity

	// Entities to add, in the order of the rendered objects.
	Added []Entity

	// All the entities visible after the pass, by cluster id.
	Visible map[string]Entity

	order []string
}

// Reconciler keeps track of the entities created for cluster ids and of the
// ones currently visible.
//
// Entities are cached by cluster id for the lifetime of the reconciler or
// until Reset is called.
type Reconciler struct {
	marker  MarkerFactory
	cluster ClusterFactory

	cache   map[string]Entity
	visible map[string]Entity
	order   []string
}

// NewReconciler creates a reconciler that uses the given factories to create
// entities.
func NewReconciler(marker MarkerFactory, cluster ClusterFactory) *Reconciler {
	return &Reconciler{
		marker:  marker,
		cluster: cluster,
		cache:   make(map[string]Entity),
		visible: make(map[string]Entity),
	}
}

// SetFactories replaces the factories used to create entities. Cached
// entities are kept.
func (r *Reconciler) SetFactories(marker MarkerFactory, cluster ClusterFactory) {
	r.marker = marker
	r.cluster = cluster
}

// Entity returns the entity of the given object, creating and caching it
// when the object cluster id is seen for the first time.
func (r *Reconciler) Entity(o models.ClustererObject) (Entity, error) {
	if e, ok := r.cache[o.ClusterID]; ok {
		return e, nil
	}

	var e Entity
	var err error

	if len(o.Features) == 1 {
		e, err = r.marker(o.Features[0])
	} else {
		e, err = r.cluster(o.LngLat, o.Features)
	}
	if err != nil {
		return nil, errors.New("creating entity failed").
			WithType(ErrTypeFactory).
			WithTag("cluster_id", o.ClusterID).
			WithTag("features", len(o.Features)).
			Wrap(err)
	}

	r.cache[o.ClusterID] = e
	return e, nil
}

// Reconcile computes the changes required to display the given objects and
// makes them the visible set. The visible set is left untouched when an
// entity can't be created.
func (r *Reconciler) Reconcile(objects []models.ClustererObject) (Delta, error) {
	delta := Delta{
		Visible: make(map[string]Entity, len(objects)),
		order:   make([]string, 0, len(objects)),
	}

	for _, o := range objects {
		if _, ok := delta.Visible[o.ClusterID]; ok {
			continue
		}

		e, err := r.Entity(o)
		if err != nil {
			return Delta{}, err
		}

		delta.Visible[o.ClusterID] = e
		delta.order = append(delta.order, o.ClusterID)

		if _, ok := r.visible[o.ClusterID]; !ok {
			delta.Added = append(delta.Added, e)
		}
	}

	for _, id := range r.order {
		if _, ok := delta.Visible[id]; !ok {
			delta.Removed = append(delta.Removed, r.visible[id])
		}
	}

	r.visible = delta.Visible
	r.order = delta.order
	return delta, nil
}

// Visible returns the visible entities, in the order they were rendered.
func (r *Reconciler) Visible() []Entity {
	entities := make([]Entity, len(r.order))
	for i, id := range r.order {
		entities[i] = r.visible[id]
	}
	return entities
}

// VisibleIDs returns the cluster ids of the visible entities, in the order
// they were rendered.
func (r *Reconciler) VisibleIDs() []string {
	return append([]string(nil), r.order...)
}

// CacheLen returns the number of cached entities.
func (r *Reconciler) CacheLen() int {
	return len(r.cache)
}

// Reset forgets every cached and visible entity.
func (r *Reconciler) Reset() {
	r.cache = make(map[string]Entity)
	r.visible = make(map[string]Entity)
	r.order = nil
}

// Apply applies a delta to a container. Removals happen before additions.
func Apply(c Container, d Delta) {
	for _, e := range d.Removed {
		c.RemoveChild(e)
	}

	for _, e := range d.Added {
		c.AddChild(e)
	}
}
