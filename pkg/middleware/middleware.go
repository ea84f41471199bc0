// Package middleware provides the HTTP middleware shared by the bridge and REST modules.
package middleware

import "net/http"

// Func wraps a handler.
type Func = func(http.Handler) http.Handler

// System is an ordered middleware stack. The first middleware added runs outermost.
type System interface {
	Use(mw ...Func)
	Apply(handler http.Handler) http.Handler
}

type stack struct {
	funcs []Func
}

// New creates an empty middleware System.
func New() System {
	return &stack{}
}

func (s *stack) Use(mw ...Func) {
	for _, fn := range mw {
		if fn != nil {
			s.funcs = append(s.funcs, fn)
		}
	}
}

func (s *stack) Apply(handler http.Handler) http.Handler {
	for i := len(s.funcs) - 1; i >= 0; i-- {
		handler = s.funcs[i](handler)
	}
	return handler
}
