// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading request bodies and query
// strings. Entry forms arrive either as JSON from the SPA or form-encoded
// from HTMX, and both land in the same forms types.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"savvy/internal/forms"
	"savvy/internal/viewmodel"
)

const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the body once, up to maxBodyBytes.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = errors.New("request body too large")
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// TransactionForm reads the transaction entry fields.
func (p *RequestBodyParser) TransactionForm() forms.TransactionForm {
	return forms.TransactionForm{
		Description: p.Get("description"),
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Type:        p.Get("type"),
		Date:        p.Get("date"),
	}
}

// GoalForm reads the goal entry fields.
func (p *RequestBodyParser) GoalForm() forms.GoalForm {
	return forms.GoalForm{
		Name:          p.Get("name"),
		IconName:      p.Get("iconName"),
		TargetAmount:  p.Get("targetAmount"),
		CurrentAmount: p.Get("currentAmount"),
		Deadline:      p.Get("deadline"),
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines, and
// trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// ParseSortState reads sort and dir from the query. Missing values fall back
// to the default state; unknown ones are an error.
func ParseSortState(q url.Values, fieldKey, dirKey string) (viewmodel.SortState, error) {
	st := viewmodel.DefaultSortState
	if v := strings.TrimSpace(q.Get(fieldKey)); v != "" {
		f, err := viewmodel.ParseSortField(v)
		if err != nil {
			return st, err
		}
		st.Field = f
	}
	if v := strings.TrimSpace(q.Get(dirKey)); v != "" {
		d, err := viewmodel.ParseSortDirection(v)
		if err != nil {
			return st, err
		}
		st.Direction = d
	}
	return st, nil
}
