package api

import (
    "fmt"
    "net/http"

    "github.com/go-chi/chi/v5"
    "github.com/oapi-codegen/runtime"
    openapi_types "github.com/oapi-codegen/runtime/types"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
    // (GET /healthz)
    GetHealthz(w http.ResponseWriter, r *http.Request)
    // (POST /upload)
    PostUpload(w http.ResponseWriter, r *http.Request)
    // (POST /analyze/{file_id})
    PostAnalyze(w http.ResponseWriter, r *http.Request, fileId openapi_types.UUID, params PostAnalyzeParams)
    // (GET /results/{file_id})
    GetResults(w http.ResponseWriter, r *http.Request, fileId openapi_types.UUID)
    // (GET /files)
    GetFiles(w http.ResponseWriter, r *http.Request)
    // (GET /files/{file_id}/media)
    GetFileMedia(w http.ResponseWriter, r *http.Request, fileId openapi_types.UUID)
    // (DELETE /files/{file_id})
    DeleteFile(w http.ResponseWriter, r *http.Request, fileId openapi_types.UUID)
    // (POST /cleanup)
    PostCleanup(w http.ResponseWriter, r *http.Request, params PostCleanupParams)
}

type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper converts chi requests into typed handler calls.
type ServerInterfaceWrapper struct {
    Handler            ServerInterface
    HandlerMiddlewares []MiddlewareFunc
    ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError is passed to ErrorHandlerFunc when a parameter cannot be bound.
type InvalidParamFormatError struct {
    ParamName string
    Err       error
}

func (e *InvalidParamFormatError) Error() string {
    return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
    for _, middleware := range siw.HandlerMiddlewares {
        h = middleware(h)
    }
    h.ServeHTTP(w, r)
}

func (siw *ServerInterfaceWrapper) fileID(w http.ResponseWriter, r *http.Request) (openapi_types.UUID, bool) {
    var fileId openapi_types.UUID
    err := runtime.BindStyledParameterWithOptions("simple", "file_id", chi.URLParam(r, "file_id"), &fileId,
        runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
    if err != nil {
        siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "file_id", Err: err})
        return fileId, false
    }
    return fileId, true
}

func (siw *ServerInterfaceWrapper) GetHealthz(w http.ResponseWriter, r *http.Request) {
    siw.serve(w, r, http.HandlerFunc(siw.Handler.GetHealthz))
}

func (siw *ServerInterfaceWrapper) PostUpload(w http.ResponseWriter, r *http.Request) {
    siw.serve(w, r, http.HandlerFunc(siw.Handler.PostUpload))
}

func (siw *ServerInterfaceWrapper) PostAnalyze(w http.ResponseWriter, r *http.Request) {
    fileId, ok := siw.fileID(w, r)
    if !ok {
        return
    }
    var params PostAnalyzeParams
    if err := runtime.BindQueryParameter("form", true, false, "wait", r.URL.Query(), &params.Wait); err != nil {
        siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "wait", Err: err})
        return
    }
    if err := runtime.BindQueryParameter("form", true, false, "timeout", r.URL.Query(), &params.Timeout); err != nil {
        siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "timeout", Err: err})
        return
    }
    siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        siw.Handler.PostAnalyze(w, r, fileId, params)
    }))
}

func (siw *ServerInterfaceWrapper) GetResults(w http.ResponseWriter, r *http.Request) {
    fileId, ok := siw.fileID(w, r)
    if !ok {
        return
    }
    siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        siw.Handler.GetResults(w, r, fileId)
    }))
}

func (siw *ServerInterfaceWrapper) GetFiles(w http.ResponseWriter, r *http.Request) {
    siw.serve(w, r, http.HandlerFunc(siw.Handler.GetFiles))
}

func (siw *ServerInterfaceWrapper) GetFileMedia(w http.ResponseWriter, r *http.Request) {
    fileId, ok := siw.fileID(w, r)
    if !ok {
        return
    }
    siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        siw.Handler.GetFileMedia(w, r, fileId)
    }))
}

func (siw *ServerInterfaceWrapper) DeleteFile(w http.ResponseWriter, r *http.Request) {
    fileId, ok := siw.fileID(w, r)
    if !ok {
        return
    }
    siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        siw.Handler.DeleteFile(w, r, fileId)
    }))
}

func (siw *ServerInterfaceWrapper) PostCleanup(w http.ResponseWriter, r *http.Request) {
    var params PostCleanupParams
    if err := runtime.BindQueryParameter("form", true, false, "max_age_hours", r.URL.Query(), &params.MaxAgeHours); err != nil {
        siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "max_age_hours", Err: err})
        return
    }
    siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        siw.Handler.PostCleanup(w, r, params)
    }))
}

type ChiServerOptions struct {
    BaseURL          string
    BaseRouter       chi.Router
    Middlewares      []MiddlewareFunc
    ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux mounts the routes of api/openapi.yaml on the provided mux.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
    return HandlerWithOptions(si, ChiServerOptions{BaseRouter: r})
}

// HandlerWithOptions creates http.Handler with additional options.
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
        r.Get(options.BaseURL+"/healthz", wrapper.GetHealthz)
    })
    r.Group(func(r chi.Router) {
        r.Post(options.BaseURL+"/upload", wrapper.PostUpload)
    })
    r.Group(func(r chi.Router) {
        r.Post(options.BaseURL+"/analyze/{file_id}", wrapper.PostAnalyze)
    })
    r.Group(func(r chi.Router) {
        r.Get(options.BaseURL+"/results/{file_id}", wrapper.GetResults)
    })
    r.Group(func(r chi.Router) {
        r.Get(options.BaseURL+"/files", wrapper.GetFiles)
    })
    r.Group(func(r chi.Router) {
        r.Get(options.BaseURL+"/files/{file_id}/media", wrapper.GetFileMedia)
    })
    r.Group(func(r chi.Router) {
        r.Delete(options.BaseURL+"/files/{file_id}", wrapper.DeleteFile)
    })
    r.Group(func(r chi.Router) {
        r.Post(options.BaseURL+"/cleanup", wrapper.PostCleanup)
    })
    return r
}
