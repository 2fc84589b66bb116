// Elmer - Whisky Review Discord Bot
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/elmerbot

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// SearchRequest holds the query parameters of /reviews/search.
type SearchRequest struct {
	Q     string `query:"q" validate:"required,max=200"`
	Limit int    `query:"limit" validate:"min=1,max=25"`
}

// RecentRequest holds the parameters of /reviews/{id}/recent.
type RecentRequest struct {
	ID    int `query:"id" validate:"min=0"`
	Limit int `query:"limit" validate:"min=1,max=50"`
}

// paramError reports a parameter that is not a number at all, before
// struct validation runs.
type paramError struct {
	name  string
	value string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s must be an integer, got %q", e.name, e.value)
}

// intQuery reads an integer query parameter, falling back to def when the
// parameter is absent.
func intQuery(r *http.Request, key string, def int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &paramError{name: key, value: value}
	}
	return n, nil
}

// idParam reads the {id} path parameter.
func idParam(r *http.Request) (int, error) {
	value := chi.URLParam(r, "id")
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &paramError{name: "id", value: value}
	}
	return n, nil
}
