package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-kernel/framework/http/validation"
)

// Default messages, the same wording Laravel uses for its JSON errors.
const (
	MessageNotFound         = "Not found."
	MessageMethodNotAllowed = "Method not allowed."
	MessageServerError      = "Server Error."
	MessageInvalid          = "The given data was invalid."
)

// Failure is the body of every error response.
type Failure struct {
	Message   string              `json:"message"`
	Errors    map[string][]string `json:"errors,omitempty"`
	Exception string              `json:"exception,omitempty"`
	RequestID string              `json:"request_id,omitempty"`
}

// Response writes JSON bodies for module handlers and the request boundary.
type Response struct {
	w         http.ResponseWriter
	requestID string
}

func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// For tags error bodies with the request id the router assigned to r.
//
//	gohttp.NewResponse(w).For(r).NotFound()
func (res *Response) For(r *http.Request) *Response {
	res.requestID = middleware.GetReqID(r.Context())
	return res
}

// JSON writes data with status.
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 {"data": v}.
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, map[string]any{"data": v})
}

// Created sends 201 {"data": v}.
func (res *Response) Created(v any) {
	res.JSON(http.StatusCreated, map[string]any{"data": v})
}

func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Fail sends f with status, filling in the request id.
func (res *Response) Fail(status int, f Failure) {
	if f.RequestID == "" {
		f.RequestID = res.requestID
	}
	res.JSON(status, f)
}

// Error sends {"message": message}.
func (res *Response) Error(status int, message string) {
	res.Fail(status, Failure{Message: message})
}

func (res *Response) NotFound() {
	res.Error(http.StatusNotFound, MessageNotFound)
}

func (res *Response) MethodNotAllowed() {
	res.Error(http.StatusMethodNotAllowed, MessageMethodNotAllowed)
}

// Exception sends 500 for err. The error text is only exposed with debug:
//
//	{"message": "Server Error.", "exception": "panic: cache unavailable"}
func (res *Response) Exception(err error, debug bool) {
	f := Failure{Message: MessageServerError}
	if debug && err != nil {
		f.Exception = err.Error()
	}
	res.Fail(http.StatusInternalServerError, f)
}

// ValidationError sends 422 with the error bag.
func (res *Response) ValidationError(errs *validation.Errors) {
	res.Fail(http.StatusUnprocessableEntity, Failure{Message: MessageInvalid, Errors: errs.Bag})
}
