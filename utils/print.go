package utils

import (
	"net/http"
	"sort"
	"strings"

	chi "github.com/go-chi/chi/v5"
)

// Routes lists the routes registered on r as "METHOD /pattern", sorted.
func Routes(r chi.Routes) ([]string, error) {
	var routes []string
	walkFunc := func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+strings.ReplaceAll(route, "/*/", "/"))
		return nil
	}
	if err := chi.Walk(r, walkFunc); err != nil {
		return nil, err
	}
	sort.Strings(routes)
	return routes, nil
}
