package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ListItemsParams are the optional query filters of GET /items.
type ListItemsParams struct {
	Done *bool   `form:"done,omitempty" json:"done,omitempty"`
	Q    *string `form:"q,omitempty" json:"q,omitempty"`
}

// ServerInterface is the set of item endpoints served under the base router.
type ServerInterface interface {
	// (GET /items)
	ListItems(w http.ResponseWriter, r *http.Request, params ListItemsParams)
	// (POST /items)
	CreateItem(w http.ResponseWriter, r *http.Request)
	// (POST /items/toggle-all)
	ToggleAll(w http.ResponseWriter, r *http.Request)
	// (POST /items/clear-completed)
	ClearCompleted(w http.ResponseWriter, r *http.Request)
	// (GET /items/{id})
	GetItem(w http.ResponseWriter, r *http.Request, id int64)
	// (PUT /items/{id})
	UpdateItem(w http.ResponseWriter, r *http.Request, id int64)
	// (DELETE /items/{id})
	DeleteItem(w http.ResponseWriter, r *http.Request, id int64)
	// (GET /stats)
	GetStats(w http.ResponseWriter, r *http.Request)
}

type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper binds path and query parameters before dispatching.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) ListItems(w http.ResponseWriter, r *http.Request) {
	var params ListItemsParams

	if err := runtime.BindQueryParameter("form", true, false, "done", r.URL.Query(), &params.Done); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "done", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "q", r.URL.Query(), &params.Q); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "q", Err: err})
		return
	}

	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.ListItems(w, r, params)
	})
}

func (siw *ServerInterfaceWrapper) CreateItem(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.CreateItem)
}

func (siw *ServerInterfaceWrapper) ToggleAll(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ToggleAll)
}

func (siw *ServerInterfaceWrapper) ClearCompleted(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.ClearCompleted)
}

func (siw *ServerInterfaceWrapper) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetItem(w, r, id)
	})
}

func (siw *ServerInterfaceWrapper) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.UpdateItem(w, r, id)
	})
}

func (siw *ServerInterfaceWrapper) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.bindID(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.DeleteItem(w, r, id)
	})
}

func (siw *ServerInterfaceWrapper) GetStats(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, siw.Handler.GetStats)
}

func (siw *ServerInterfaceWrapper) bindID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64
	err := runtime.BindStyledParameterWithLocation("simple", false, "id", runtime.ParamLocationPath, chi.URLParam(r, "id"), &id)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return 0, false
	}
	return id, true
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	var handler http.Handler = fn
	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}
	handler.ServeHTTP(w, r)
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts si on the base router described by options.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/items", wrapper.ListItems)
		r.Post(options.BaseURL+"/items", wrapper.CreateItem)
		r.Post(options.BaseURL+"/items/toggle-all", wrapper.ToggleAll)
		r.Post(options.BaseURL+"/items/clear-completed", wrapper.ClearCompleted)
		r.Get(options.BaseURL+"/items/{id}", wrapper.GetItem)
		r.Put(options.BaseURL+"/items/{id}", wrapper.UpdateItem)
		r.Delete(options.BaseURL+"/items/{id}", wrapper.DeleteItem)
		r.Get(options.BaseURL+"/stats", wrapper.GetStats)
	})

	return r
}
