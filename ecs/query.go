package ecs

import "github.com/milk9111/autopilot/ecs/component"

// ForEach calls fn for every entity carrying kind. The entity list is
// snapshotted first, so fn may add or remove components.
func ForEach[A any](w *World, ka component.ComponentKind[A], fn func(Entity, *A)) {
	sa := storeFor(w, ka, false)
	for _, id := range sa.ids() {
		e, ok := w.resolve(id)
		if !ok {
			continue
		}
		a := sa.get(id)
		if a == nil {
			continue
		}
		fn(e, a)
	}
}

// ForEach2 calls fn for every entity carrying both kinds.
func ForEach2[A, B any](w *World, ka component.ComponentKind[A], kb component.ComponentKind[B], fn func(Entity, *A, *B)) {
	sa := storeFor(w, ka, false)
	sb := storeFor(w, kb, false)
	if sa == nil || sb == nil {
		return
	}
	for _, id := range sa.ids() {
		e, ok := w.resolve(id)
		if !ok {
			continue
		}
		a, b := sa.get(id), sb.get(id)
		if a == nil || b == nil {
			continue
		}
		fn(e, a, b)
	}
}

// ForEach3 calls fn for every entity carrying all three kinds.
func ForEach3[A, B, C any](w *World, ka component.ComponentKind[A], kb component.ComponentKind[B], kc component.ComponentKind[C], fn func(Entity, *A, *B, *C)) {
	sa := storeFor(w, ka, false)
	sb := storeFor(w, kb, false)
	sc := storeFor(w, kc, false)
	if sa == nil || sb == nil || sc == nil {
		return
	}
	for _, id := range sa.ids() {
		e, ok := w.resolve(id)
		if !ok {
			continue
		}
		a, b, c := sa.get(id), sb.get(id), sc.get(id)
		if a == nil || b == nil || c == nil {
			continue
		}
		fn(e, a, b, c)
	}
}

// ForEach4 calls fn for every entity carrying all four kinds.
func ForEach4[A, B, C, D any](w *World, ka component.ComponentKind[A], kb component.ComponentKind[B], kc component.ComponentKind[C], kd component.ComponentKind[D], fn func(Entity, *A, *B, *C, *D)) {
	sa := storeFor(w, ka, false)
	sb := storeFor(w, kb, false)
	sc := storeFor(w, kc, false)
	sd := storeFor(w, kd, false)
	if sa == nil || sb == nil || sc == nil || sd == nil {
		return
	}
	for _, id := range sa.ids() {
		e, ok := w.resolve(id)
		if !ok {
			continue
		}
		a, b, c, d := sa.get(id), sb.get(id), sc.get(id), sd.get(id)
		if a == nil || b == nil || c == nil || d == nil {
			continue
		}
		fn(e, a, b, c, d)
	}
}

// First returns the first entity carrying kind.
func First[A any](w *World, ka component.ComponentKind[A]) (Entity, bool) {
	sa := storeFor(w, ka, false)
	for _, id := range sa.ids() {
		if e, ok := w.resolve(id); ok {
			return e, true
		}
	}
	return 0, false
}

// Count returns how many entities carry kind.
func Count[A any](w *World, ka component.ComponentKind[A]) int {
	return storeFor(w, ka, false).len()
}
