package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendAndParseJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q", r.Header.Get("Content-Type"))
		}
		var in map[string]int
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]int{"doubled": in["n"] * 2})
	}))
	defer srv.Close()

	var out map[string]int
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method: MethodPost,
		URL:    srv.URL,
		Body:   map[string]int{"n": 21},
	}, &out)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if out["doubled"] != 42 {
		t.Fatalf("out = %v", out)
	}
}

func TestSendAndParseStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	if !IsStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("err = %v", err)
	}
	se := err.(*StatusError)
	if se.Body != "model not loaded" {
		t.Fatalf("body = %q", se.Body)
	}
}

func TestQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Query().Get("last")))
	}))
	defer srv.Close()

	var raw []byte
	err := NewClient().SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         srv.URL,
		QueryParams: map[string][]string{"last": {"10"}},
	}, &raw)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if string(raw) != "10" {
		t.Fatalf("raw = %q", raw)
	}
}
