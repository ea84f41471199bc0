package routes

import (
	"net/http"

	"github.com/JaimeStill/agrogestion/pkg/openapi"
)

// Group organizes routes under a common prefix. Children inherit the prefix.
type Group struct {
	Prefix   string
	Routes   []Route
	Children []Group
}

// Register adds all routes from the given groups to the mux.
func Register(mux *http.ServeMux, groups ...Group) {
	for _, group := range groups {
		group.Walk("", func(route Route, path string) {
			mux.HandleFunc(route.Method+" "+path, route.Handler)
		})
	}
}

// Document adds every documented route to spec, with paths resolved under base.
func Document(spec *openapi.Spec, base string, groups ...Group) {
	for _, group := range groups {
		group.Walk(base, func(route Route, path string) {
			spec.AddOperation(route.Method, path, route.OpenAPI)
		})
	}
}

// Walk visits every route in the group and its children with the full path
// resolved against parent.
func (g Group) Walk(parent string, fn func(route Route, path string)) {
	prefix := parent + g.Prefix
	for _, route := range g.Routes {
		fn(route, prefix+route.Pattern)
	}
	for _, child := range g.Children {
		child.Walk(prefix, fn)
	}
}
