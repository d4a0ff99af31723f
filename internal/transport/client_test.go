package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/filters"
	"github.com/starford/raido/internal/session"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *session.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sess := session.New()
	return New(srv.URL, 5*time.Second, sess), sess
}

func TestGetList_SendsBearerAndParams(t *testing.T) {
	var gotAuth, gotQuery string
	c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[]`))
	})
	sess.Set("tok123", time.Time{})

	_, err := c.GetList(context.Background(), "/admin/orders", filters.Params{"page": "1", "limit": "20", "status": "pending"})
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !strings.Contains(gotQuery, "status=pending") || !strings.Contains(gotQuery, "page=1") {
		t.Errorf("query = %q", gotQuery)
	}
}

func TestDo_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	})

	if _, err := c.Get(context.Background(), "/admin/orders/1"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestPost_JSONRoundTrip(t *testing.T) {
	var gotCT string
	var gotBody map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"new"}`))
	})

	out, err := c.Post(context.Background(), "/admin/products", map[string]string{"name": "Widget"})
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if gotCT != "application/json" {
		t.Errorf("Content-Type = %q", gotCT)
	}
	if gotBody["name"] != "Widget" {
		t.Errorf("body = %v", gotBody)
	}
	if string(out) != `{"id":"new"}` {
		t.Errorf("response = %q", out)
	}
}

func TestDo_ClassifiesStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   apperr.Kind
	}{
		{403, apperr.KindForbidden},
		{404, apperr.KindNotFound},
		{422, apperr.KindValidation},
		{500, apperr.KindServerError},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"error":"nope"}`))
		})
		_, err := c.Get(context.Background(), "/admin/orders/1")
		if apperr.KindOf(err) != tc.want {
			t.Errorf("status %d: kind = %s, want %s", tc.status, apperr.KindOf(err), tc.want)
		}
	}
}

func TestDo_NetworkError(t *testing.T) {
	sess := session.New()
	c := New("http://127.0.0.1:1", 200*time.Millisecond, sess)
	_, err := c.Get(context.Background(), "/admin/orders")
	if apperr.KindOf(err) != apperr.KindNetworkError {
		t.Errorf("kind = %s, want %s", apperr.KindOf(err), apperr.KindNetworkError)
	}
}

func TestDo_401ExpiresSessionOnce(t *testing.T) {
	var hookFired atomic.Int32
	c, sess := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"unauthorized"}`))
	})
	sess.Set("stale", time.Time{})
	sess.OnUnauthorized(func() { hookFired.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "/admin/orders")
			if apperr.KindOf(err) != apperr.KindUnauthorized {
				t.Errorf("kind = %s", apperr.KindOf(err))
			}
		}()
	}
	wg.Wait()

	if hookFired.Load() != 1 {
		t.Errorf("unauthorized hook fired %d times, want 1", hookFired.Load())
	}
	if tok, _ := sess.Token(); tok != "" {
		t.Errorf("token = %q after 401", tok)
	}
}

func TestExport_StreamsBlob(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte("id,status\n1,pending\n"))
	})

	body, ct, err := c.Export(context.Background(), "/admin/orders/export", filters.Params{"page": "1", "limit": "20"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	defer body.Close()

	if ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	data, _ := io.ReadAll(body)
	if !strings.HasPrefix(string(data), "id,status") {
		t.Errorf("blob = %q", data)
	}
}

func TestUpload_MultipartBoundary(t *testing.T) {
	var gotCT string
	var gotFile, gotField string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotField = r.FormValue("kind")
		f, hdr, err := r.FormFile("document")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		gotFile = hdr.Filename
		w.Write([]byte(`{"uploaded":true}`))
	})

	_, err := c.Upload(context.Background(), "/admin/kyc/k1/documents", "document", "passport.pdf",
		strings.NewReader("%PDF-fake"), map[string]string{"kind": "passport"})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(gotCT, "multipart/form-data; boundary=") {
		t.Errorf("Content-Type = %q", gotCT)
	}
	if gotFile != "passport.pdf" || gotField != "passport" {
		t.Errorf("file = %q, field = %q", gotFile, gotField)
	}
}
