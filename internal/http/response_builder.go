// Package http provides HTTP server and handler implementations.
//
// This file implements the builder used for every API response. Besides the
// JSON body it maintains the HX-Trigger header, so HTMX pages and SPA
// clients alike can react to events such as show-notification.

package http

import (
	"encoding/json"
	"net/http"

	"savvy/internal/dashboard"
)

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       any
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *ResponseBuilder) Trigger(name string, data any) *ResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerRecordsChanged tells listeners that a list must be re-read.
func (b *ResponseBuilder) TriggerRecordsChanged(kind string) *ResponseBuilder {
	return b.Trigger(kind+":changed", struct{}{})
}

// TriggerFormReset adds the form:reset trigger.
func (b *ResponseBuilder) TriggerFormReset() *ResponseBuilder {
	return b.Trigger("form:reset", struct{}{})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Notification is the payload of the show-notification trigger.
type Notification struct {
	Type     NotificationType `json:"type"`
	Title    string           `json:"title,omitempty"`
	Message  string           `json:"message"`
	Duration int              `json:"duration"`
}

func (b *ResponseBuilder) TriggerNotification(n Notification) *ResponseBuilder {
	return b.Trigger("show-notification", n)
}

func (b *ResponseBuilder) TriggerSuccessNotification(title, message string) *ResponseBuilder {
	return b.TriggerNotification(Notification{Type: NotificationSuccess, Title: title, Message: message, Duration: 3000})
}

func (b *ResponseBuilder) TriggerErrorNotification(title, message string) *ResponseBuilder {
	return b.TriggerNotification(Notification{Type: NotificationError, Title: title, Message: message, Duration: 5000})
}

// NotifyResult turns an action outcome into the matching toast.
func (b *ResponseBuilder) NotifyResult(res dashboard.Result) *ResponseBuilder {
	if res.Title == "" && res.Message == "" {
		return b
	}
	if res.OK {
		return b.TriggerSuccessNotification(res.Title, res.Message)
	}
	return b.TriggerErrorNotification(res.Title, res.Message)
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// ValidationError answers 422 with the per-field messages.
func ValidationError(fields map[string]string) *ResponseBuilder {
	return NewResponse().
		Status(http.StatusUnprocessableEntity).
		JSON(errorBody{Error: "validation failed", Fields: fields})
}

func UnauthorizedError() *ResponseBuilder {
	return NewResponse().
		Status(http.StatusUnauthorized).
		Header("WWW-Authenticate", `Bearer realm="savvy"`).
		JSON(map[string]any{"error": "not signed in", "authenticated": false})
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}
