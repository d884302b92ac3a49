// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON (API clients) or form-encoded (the server-rendered
// pages); both go through RequestBodyParser so handlers see one shape.

package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/listing"
)

const maxBodyBytes = 64 << 10

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once, up to 64 KiB.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if p.err == nil && len(p.body) > maxBodyBytes {
			p.err = fmt.Errorf("%w: request body too large", errInvalidInput)
		}
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

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: malformed JSON body", errInvalidInput)
			return p.err
		}
		return nil
	}

	if p.formData, p.err = url.ParseQuery(string(body)); p.err != nil {
		p.err = fmt.Errorf("%w: malformed form body", errInvalidInput)
	}
	return p.err
}

// Has reports whether key was sent at all, even with an empty value.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		v, ok := p.jsonData[key]
		return ok && v != nil
	}
	if p.formData != nil {
		_, ok := p.formData[key]
		return ok
	}
	return false
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

// GetRaw returns a value without sanitizing, for passwords.
func (p *RequestBodyParser) GetRaw(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return stringValue(val)
		}
		return ""
	}
	if p.formData != nil {
		return p.formData.Get(key)
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseDraft builds a transaction draft from the body. kind, when not
// empty, overrides whatever the body says (the list pages post their own
// kind implicitly).
func parseDraft(p *RequestBodyParser, kind core.Kind) (core.Draft, error) {
	var d core.Draft
	var err error

	if kind == "" {
		if d.Kind, err = core.ParseKind(p.Get("type")); err != nil {
			return core.Draft{}, err
		}
	} else {
		d.Kind = kind
	}
	if d.Amount, err = core.ParseAmount(p.Get("amount")); err != nil {
		return core.Draft{}, err
	}
	if d.Date, err = core.ParseDate(p.Get("date")); err != nil {
		return core.Draft{}, err
	}
	d.Category = p.Get("category")
	d.Description = p.Get("description")
	return d, nil
}

// parsePatch builds a patch from the fields present in the body.
func parsePatch(p *RequestBodyParser) (core.Patch, error) {
	var patch core.Patch
	if p.Has("type") {
		k, err := core.ParseKind(p.Get("type"))
		if err != nil {
			return core.Patch{}, err
		}
		patch.Kind = &k
	}
	if p.Has("amount") {
		m, err := core.ParseAmount(p.Get("amount"))
		if err != nil {
			return core.Patch{}, err
		}
		patch.Amount = &m
	}
	if p.Has("date") {
		d, err := core.ParseDate(p.Get("date"))
		if err != nil {
			return core.Patch{}, err
		}
		patch.Date = &d
	}
	if p.Has("category") {
		c := p.Get("category")
		patch.Category = &c
	}
	if p.Has("description") {
		desc := p.Get("description")
		patch.Description = &desc
	}
	return patch, nil
}

// parseProfilePatch reads the editable profile fields.
func parseProfilePatch(p *RequestBodyParser) core.ProfilePatch {
	var patch core.ProfilePatch
	if p.Has("name") {
		name := p.Get("name")
		patch.Name = &name
	}
	if p.Has("profile_picture_path") {
		pic := p.Get("profile_picture_path")
		patch.ProfilePicturePath = &pic
	}
	return patch
}

// ParseListQuery reads the list filters from query parameters. kind, when
// not empty, pins the query to one transaction type.
func ParseListQuery(query url.Values, kind core.Kind) (listing.Query, error) {
	q := listing.Query{
		Kind:     kind,
		Search:   stripControl(query.Get("search")),
		Category: sanitizeInput(query.Get("category")),
		Month:    strings.TrimSpace(query.Get("month")),
		SortBy:   listing.SortField(strings.ToLower(strings.TrimSpace(query.Get("sort")))),
		Order:    listing.Order(strings.ToLower(strings.TrimSpace(query.Get("order")))),
	}
	if q.Kind == "" {
		if v := strings.TrimSpace(query.Get("kind")); v != "" {
			k, err := core.ParseKind(v)
			if err != nil {
				return listing.Query{}, err
			}
			q.Kind = k
		}
	}
	if err := q.Validate(); err != nil {
		return listing.Query{}, fmt.Errorf("%w: %v", errInvalidInput, err)
	}
	return q, nil
}

// ParseDays reads the series window, falling back to def when absent.
func ParseDays(query url.Values, def int) (int, error) {
	v := strings.TrimSpace(query.Get("days"))
	if v == "" {
		return def, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 || days > 366 {
		return 0, fmt.Errorf("%w: days must be between 1 and 366", errInvalidInput)
	}
	return days, nil
}
