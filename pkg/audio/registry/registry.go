package registry

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
)

type withPriority[F any] struct {
	Priority int
	Factory  F
}

// factoryRegistry keeps one factory per concrete type and returns them
// ordered by priority, the highest first.
type factoryRegistry[F any] struct {
	locker    sync.Mutex
	kind      string
	factories map[reflect.Type]withPriority[F]
}

func newFactoryRegistry[F any](kind string) *factoryRegistry[F] {
	return &factoryRegistry[F]{
		kind:      kind,
		factories: map[reflect.Type]withPriority[F]{},
	}
}

func (r *factoryRegistry[F]) register(priority int, factory F) {
	t := reflect.ValueOf(factory).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.locker.Lock()
	defer r.locker.Unlock()
	if _, ok := r.factories[t]; ok {
		panic(fmt.Errorf("there is already registered a factory of %s of type %v", r.kind, t))
	}
	r.factories[t] = withPriority[F]{
		Priority: priority,
		Factory:  factory,
	}
}

func (r *factoryRegistry[F]) list() []F {
	r.locker.Lock()
	var items []withPriority[F]
	for _, item := range r.factories {
		items = append(items, item)
	}
	r.locker.Unlock()

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		return fmt.Sprintf("%T", items[i].Factory) < fmt.Sprintf("%T", items[j].Factory)
	})

	result := make([]F, 0, len(items))
	for _, item := range items {
		result = append(result, item.Factory)
	}
	return result
}
