package middleware

// Registry is an ordered collection of middleware.
type Registry struct {
	middlewares []Middleware
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Use appends middleware; earlier middleware wrap later ones.
func (r *Registry) Use(ms ...Middleware) *Registry {
	r.middlewares = append(r.middlewares, ms...)
	return r
}

// Handler wraps final with every registered middleware.
func (r *Registry) Handler(final Handler) Handler {
	if len(r.middlewares) == 0 {
		return final
	}
	return Chain(r.middlewares...)(final)
}

// Len returns the number of registered middleware.
func (r *Registry) Len() int {
	return len(r.middlewares)
}

// Clone returns an independent copy.
func (r *Registry) Clone() *Registry {
	return &Registry{middlewares: append([]Middleware(nil), r.middlewares...)}
}
