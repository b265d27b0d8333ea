package memscene

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/temppivot/pkg/scene"
)

type subKind int

const (
	subTransform subKind = iota
	subSelection
	subTime
	subAttr
)

type subscription struct {
	kind        subKind
	node        scene.NodeID
	attr        string
	onTransform func(scene.ChangeKind)
	fn          func()
}

func (s *Scene) subscribe(sub *subscription) scene.SubscriptionID {
	s.nextSub++
	s.subs[s.nextSub] = sub
	return s.nextSub
}

// OnTransformChanged registers fn for matrix and pivot changes of id.
func (s *Scene) OnTransformChanged(id scene.NodeID, fn func(scene.ChangeKind)) scene.SubscriptionID {
	return s.subscribe(&subscription{kind: subTransform, node: id, onTransform: fn})
}

// OnSelectionChanged registers fn for selection changes.
func (s *Scene) OnSelectionChanged(fn func()) scene.SubscriptionID {
	return s.subscribe(&subscription{kind: subSelection, fn: fn})
}

// OnTimeChanged registers fn for current-time changes.
func (s *Scene) OnTimeChanged(fn func()) scene.SubscriptionID {
	return s.subscribe(&subscription{kind: subTime, fn: fn})
}

// OnAttributeChanged registers fn for writes to id.attr.
func (s *Scene) OnAttributeChanged(id scene.NodeID, attr string, fn func()) scene.SubscriptionID {
	return s.subscribe(&subscription{kind: subAttr, node: id, attr: attr, fn: fn})
}

// Unsubscribe removes a callback.
func (s *Scene) Unsubscribe(id scene.SubscriptionID) error {
	if _, ok := s.subs[id]; !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSubscription, id)
	}
	delete(s.subs, id)
	return nil
}

// Subscriptions returns the number of live subscriptions.
func (s *Scene) Subscriptions() int { return len(s.subs) }

func (s *Scene) dropSubscriptions(id scene.NodeID) {
	maps.DeleteFunc(s.subs, func(_ scene.SubscriptionID, sub *subscription) bool {
		return sub.node == id && (sub.kind == subTransform || sub.kind == subAttr)
	})
}

// matching returns subscription ids accepted by keep, in registration order.
func (s *Scene) matching(keep func(*subscription) bool) []scene.SubscriptionID {
	var ids []scene.SubscriptionID
	for id, sub := range s.subs {
		if keep(sub) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// dispatch runs call for each id that is still subscribed when its turn comes.
func (s *Scene) dispatch(ids []scene.SubscriptionID, call func(*subscription)) {
	s.dispatching++
	defer func() { s.dispatching-- }()
	for _, id := range ids {
		if sub, ok := s.subs[id]; ok {
			call(sub)
		}
	}
}

func (s *Scene) fireTransformChanged(id scene.NodeID, kind scene.ChangeKind) {
	ids := s.matching(func(sub *subscription) bool { return sub.kind == subTransform && sub.node == id })
	s.dispatch(ids, func(sub *subscription) { sub.onTransform(kind) })
}

func (s *Scene) fireSelectionChanged() {
	ids := s.matching(func(sub *subscription) bool { return sub.kind == subSelection })
	s.dispatch(ids, func(sub *subscription) { sub.fn() })
}

func (s *Scene) fireTimeChanged() {
	ids := s.matching(func(sub *subscription) bool { return sub.kind == subTime })
	s.dispatch(ids, func(sub *subscription) { sub.fn() })
}

// queueAttrChanged defers one attribute-changed notification per id.attr,
// coalescing repeated writes until the queue drains.
func (s *Scene) queueAttrChanged(id scene.NodeID, attr string) {
	watched := s.matching(func(sub *subscription) bool {
		return sub.kind == subAttr && sub.node == id && sub.attr == attr
	})
	if len(watched) == 0 {
		return
	}
	key := string(id) + "." + attr
	if s.pendingAttr[key] {
		return
	}
	s.pendingAttr[key] = true
	s.Defer(func() {
		delete(s.pendingAttr, key)
		ids := s.matching(func(sub *subscription) bool {
			return sub.kind == subAttr && sub.node == id && sub.attr == attr
		})
		s.dispatch(ids, func(sub *subscription) { sub.fn() })
	})
}

// Defer queues fn for the next RunDeferred.
func (s *Scene) Defer(fn func()) {
	s.deferred = append(s.deferred, fn)
}

// Pending returns the number of queued deferred callbacks.
func (s *Scene) Pending() int { return len(s.deferred) }

// Dispatching reports whether a notification callback is running.
func (s *Scene) Dispatching() bool { return s.dispatching > 0 }

// RunDeferred drains the deferred queue in FIFO order, including callbacks
// queued while draining, and returns how many ran.
func (s *Scene) RunDeferred() int {
	ran := 0
	for len(s.deferred) > 0 {
		fn := s.deferred[0]
		s.deferred[0] = nil
		s.deferred = s.deferred[1:]
		fn()
		ran++
	}
	return ran
}
