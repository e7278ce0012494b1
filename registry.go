package gridbody

// Registry holds bodies in draw/selection order; the last body is on top.
// Ids are allocated monotonically and never reused.
type Registry struct {
	bodies []*Body
	nextID BodyID
}

func NewRegistry() *Registry {
	return &Registry{nextID: 1}
}

func (r *Registry) allocID() BodyID {
	id := r.nextID
	r.nextID++
	return id
}

func (r *Registry) Len() int {
	return len(r.bodies)
}

func (r *Registry) index(id BodyID) int {
	for i, b := range r.bodies {
		if b.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) Get(id BodyID) *Body {
	if i := r.index(id); i >= 0 {
		return r.bodies[i]
	}
	return nil
}

// Bodies returns the bodies in order. The slice is a copy; the bodies are not.
func (r *Registry) Bodies() []*Body {
	out := make([]*Body, len(r.bodies))
	copy(out, r.bodies)
	return out
}

func (r *Registry) IDs() []BodyID {
	out := make([]BodyID, len(r.bodies))
	for i, b := range r.bodies {
		out[i] = b.ID
	}
	return out
}

// Each visits bodies in order until fn returns false.
func (r *Registry) Each(fn func(b *Body) bool) {
	for _, b := range r.bodies {
		if !fn(b) {
			return
		}
	}
}

// TotalMass sums the cell counts of every body.
func (r *Registry) TotalMass() int {
	total := 0
	for _, b := range r.bodies {
		total += b.Mass()
	}
	return total
}

func (r *Registry) push(b *Body) {
	r.bodies = append(r.bodies, b)
}

func (r *Registry) remove(id BodyID) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.bodies = append(r.bodies[:i], r.bodies[i+1:]...)
	return true
}

// MoveToTop gives the body the highest draw/selection priority.
func (r *Registry) MoveToTop(id BodyID) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	b := r.bodies[i]
	r.bodies = append(r.bodies[:i], r.bodies[i+1:]...)
	r.bodies = append(r.bodies, b)
	return true
}
