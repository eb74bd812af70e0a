package guard

import (
	"net/http"
)

// Middleware applies the route's guards in front of a handler
func (a *Authorizer) Middleware(route Route) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			guarded := route
			guarded.Path = r.URL.Path
			decision := a.Navigate(r.Context(), guarded)
			if !decision.Admitted() {
				http.Redirect(w, r, decision.Location(), http.StatusSeeOther)
				return
			}
			next(w, r)
		}
	}
}

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

// Handler mounts next on every path of Routes behind its guards
func (a *Authorizer) Handler(next http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	for _, route := range Routes {
		guarded := append(append([]func(http.HandlerFunc) http.HandlerFunc{}, mw...), a.Middleware(route))
		handler := ChainMiddleware(next, guarded...)
		mux.HandleFunc(route.Path, handler)
		if !route.Guest && !route.Public {
			mux.HandleFunc(route.Path+"/", handler)
		}
	}
	return mux
}
