package elastic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cdtdelta/mft2es/internal/bulk"
	"github.com/cdtdelta/mft2es/internal/model"
)

func newTestClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithRetryMax(0), WithRetryWait(time.Millisecond, time.Millisecond)}, opts...)
	return New(url, opts...)
}

func TestBulk_RequestFormat(t *testing.T) {
	var gotLines []string
	var gotQuery, gotType, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/_bulk" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("pipeline")
		gotType = r.Header.Get("Content-Type")
		gotUser, gotPass, _ = r.BasicAuth()
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			gotLines = append(gotLines, sc.Text())
		}
		io.WriteString(w, `{"errors":false,"items":[{"index":{"_id":"a","status":201}},{"index":{"_id":"b","status":200}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithBasicAuth("elastic", "changeme"))
	items := []bulk.Item{
		{ID: "a", Body: []byte(`{"x":1}`)},
		{ID: "b", Body: []byte(`{"x":2}`)},
	}
	res, err := c.Bulk(context.Background(), "mft2es", "geoip", items)
	if err != nil {
		t.Fatalf("Bulk failed: %v", err)
	}

	wantLines := []string{
		`{"index":{"_index":"mft2es","_id":"a"}}`,
		`{"x":1}`,
		`{"index":{"_index":"mft2es","_id":"b"}}`,
		`{"x":2}`,
	}
	if diff := cmp.Diff(wantLines, gotLines); diff != "" {
		t.Errorf("bulk body mismatch (-want +got):\n%s", diff)
	}
	if gotQuery != "geoip" {
		t.Errorf("pipeline = %q, want geoip", gotQuery)
	}
	if gotType != "application/x-ndjson" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotUser != "elastic" || gotPass != "changeme" {
		t.Errorf("basic auth = %q/%q", gotUser, gotPass)
	}
	want := []bulk.ItemResult{{ID: "a", Status: 201}, {ID: "b", Status: 200}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestBulk_NoPipelineParameter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("query = %q, want empty", r.URL.RawQuery)
		}
		if _, _, ok := r.BasicAuth(); ok {
			t.Error("unexpected basic auth")
		}
		io.WriteString(w, `{"errors":false,"items":[{"index":{"_id":"a","status":201}}]}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Bulk(context.Background(), "i", "", []bulk.Item{{ID: "a", Body: []byte(`{}`)}}); err != nil {
		t.Fatal(err)
	}
}

func TestBulk_ItemErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"errors":true,"items":[
			{"index":{"_id":"a","status":201}},
			{"index":{"_id":"b","status":400,"error":{"type":"mapper_parsing_exception","reason":"failed to parse field [mft.header.flags]"}}},
			{"index":{"_id":"c","status":429}}
		]}`)
	}))
	defer srv.Close()

	items := []bulk.Item{{ID: "a", Body: []byte(`{}`)}, {ID: "b", Body: []byte(`{}`)}, {ID: "c", Body: []byte(`{}`)}}
	res, err := newTestClient(srv.URL).Bulk(context.Background(), "i", "", items)
	if err != nil {
		t.Fatal(err)
	}
	want := []bulk.ItemResult{
		{ID: "a", Status: 201},
		{ID: "b", Status: 400, Error: "mapper_parsing_exception: failed to parse field [mft.header.flags]"},
		{ID: "c", Status: 429, Error: "Too Many Requests"},
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestBulk_StatusErrors(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusBadRequest, http.StatusServiceUnavailable} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			io.WriteString(w, `{"error":"nope"}`)
		}))
		_, err := newTestClient(srv.URL).Bulk(context.Background(), "i", "", []bulk.Item{{ID: "a", Body: []byte(`{}`)}})
		srv.Close()
		if !errors.Is(err, model.ErrTransport) {
			t.Errorf("status %d: expected ErrTransport, got %v", status, err)
		}
	}
}

func TestBulk_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"errors":false,"items":[{"index":{"_id":"a","status":201}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, WithRetryMax(2))
	res, err := c.Bulk(context.Background(), "i", "", []bulk.Item{{ID: "a", Body: []byte(`{}`)}})
	if err != nil {
		t.Fatalf("Bulk failed after retry: %v", err)
	}
	if len(res) != 1 || calls.Load() != 2 {
		t.Errorf("results = %v after %d calls", res, calls.Load())
	}
}

func TestBulk_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).Bulk(context.Background(), "i", "", []bulk.Item{{ID: "a", Body: []byte(`{}`)}})
	if !errors.Is(err, model.ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
	if err := newTestClient(url).Ping(context.Background()); !errors.Is(err, model.ErrTransport) {
		t.Errorf("Ping: expected ErrTransport, got %v", err)
	}
}

func TestBulk_EmptyItemsSendsNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	defer srv.Close()
	res, err := newTestClient(srv.URL).Bulk(context.Background(), "i", "", nil)
	if err != nil || res != nil {
		t.Errorf("Bulk(nil) = %v, %v", res, err)
	}
}

func TestWriterOverClient(t *testing.T) {
	var indexed atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var items []map[string]any
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			var action actionLine
			if err := json.Unmarshal(sc.Bytes(), &action); err != nil {
				t.Errorf("bad action line: %v", err)
				return
			}
			sc.Scan()
			items = append(items, map[string]any{"index": map[string]any{"_id": action.Index.ID, "status": 201}})
			indexed.Add(1)
		}
		json.NewEncoder(w).Encode(map[string]any{"errors": false, "items": items})
	}))
	defer srv.Close()

	w, err := bulk.NewWriter(newTestClient(srv.URL), bulk.WithRequestSize(3))
	if err != nil {
		t.Fatal(err)
	}
	var docs []model.Document
	for i := 0; i < 7; i++ {
		docs = append(docs, model.Document{"n": i, "path": strings.Repeat("a", i)})
	}
	res, err := w.Write(context.Background(), docs, "mft2es", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Success != 7 || indexed.Load() != 7 {
		t.Errorf("success = %d, indexed = %d, want 7", res.Success, indexed.Load())
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"tagline":"You Know, for Search"}`)
	}))
	defer srv.Close()
	if err := newTestClient(srv.URL + "/").Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
