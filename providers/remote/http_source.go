// http_source.go: HTTP flag source built on resty
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package remote

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/agilira/go-errors"
	"github.com/agilira/vexilla"
	"github.com/go-resty/resty/v2"
)

// HTTPOptions configures an HTTPSource.
type HTTPOptions struct {
	// Timeout bounds a single request. Default: 5s.
	Timeout time.Duration

	// Headers are sent with every request, e.g. Authorization.
	Headers map[string]string

	// Format of the response body. Default: JSON.
	Format vexilla.ConfigFormat
}

// HTTPSource fetches the flag document with GET baseURL+path.
type HTTPSource struct {
	client *resty.Client
	path   string
	format vexilla.ConfigFormat
}

// NewHTTPSource returns a source for baseURL and path.
func NewHTTPSource(baseURL, path string, options HTTPOptions) *HTTPSource {
	if options.Timeout <= 0 {
		options.Timeout = 5 * time.Second
	}
	if options.Format == vexilla.FormatUnknown {
		options.Format = vexilla.FormatJSON
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(options.Timeout).
		SetHeader("Accept", acceptHeader(options.Format))
	for k, v := range options.Headers {
		client.SetHeader(k, v)
	}
	if path == "" {
		path = "/"
	}
	return &HTTPSource{client: client, path: path, format: options.Format}
}

// Name returns the request URL.
func (s *HTTPSource) Name() string { return s.client.BaseURL + s.path }

// Fetch implements Source. 4xx responses are permanent
// (ErrCodeRemoteRejected); 5xx and transport errors are retried.
func (s *HTTPSource) Fetch(ctx context.Context) (map[string]interface{}, error) {
	resp, err := s.client.R().SetContext(ctx).Get(s.path)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeRemoteFetch, "flag request failed").
			WithContext("url", s.Name())
	}
	if err := mapHTTPError(resp); err != nil {
		return nil, err
	}
	data, err := vexilla.ParseConfig(resp.Body(), s.format)
	if err != nil {
		return nil, errors.Wrap(err, ErrCodeRemoteRejected, "malformed flag document").
			WithContext("url", s.Name())
	}
	return data, nil
}

func mapHTTPError(resp *resty.Response) error {
	code := resp.StatusCode()
	if code >= http.StatusOK && code < http.StatusMultipleChoices {
		return nil
	}
	body := strings.TrimSpace(string(resp.Body()))
	if body == "" {
		body = http.StatusText(code)
	}
	if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout {
		return errors.New(ErrCodeRemoteRejected, "flag service rejected the request").
			WithContext("status", code).
			WithContext("body", body)
	}
	return errors.New(ErrCodeRemoteFetch, "flag service returned an error").
		WithContext("status", code).
		WithContext("body", body)
}

func acceptHeader(format vexilla.ConfigFormat) string {
	switch format {
	case vexilla.FormatYAML:
		return "application/yaml"
	case vexilla.FormatTOML:
		return "application/toml"
	}
	return "application/json"
}
