package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "test-token", Options{Timeout: 5 * time.Second})
}

func TestLoginStoresToken(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/token/" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"token":"fresh-token"}`))
	}))
	c.SetToken("")

	tok, err := c.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if tok != "fresh-token" {
		t.Errorf("token = %q, want fresh-token", tok)
	}
}

func TestLoginDetectsTwoFactor(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"MFA code required for this account"}`))
	}))

	_, err := c.Login(context.Background(), "alice", "secret")
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err = %v, want AuthError", err)
	}
	if !authErr.TwoFactor {
		t.Error("TwoFactor not detected from MFA message")
	}
}

func TestListDocumentsSendsFilterParams(t *testing.T) {
	var gotQuery map[string][]string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		if r.Header.Get("Authorization") != "Token test-token" {
			t.Errorf("missing token header, got %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":[
			{"id":7,"title":"Invoice","tags":[3],"created":"2024-03-01T00:00:00Z","added":"2024-03-02T00:00:00Z","modified":"2024-03-02T00:00:00Z"}]}`))
	}))

	corr := int64(5)
	after := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := c.ListDocuments(context.Background(), &DocumentQuery{
		Search:          "invoice",
		TagIDs:          []int64{3, 7},
		CorrespondentID: &corr,
		CreatedAfter:    &after,
		Page:            2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || len(out.Results) != 1 || out.Results[0].ID != 7 {
		t.Errorf("envelope = %+v", out)
	}
	if gotQuery["query"][0] != "invoice" {
		t.Errorf("query param = %v", gotQuery["query"])
	}
	if gotQuery["tags__id__in"][0] != "3,7" {
		t.Errorf("tags__id__in = %v", gotQuery["tags__id__in"])
	}
	if gotQuery["correspondent__id"][0] != "5" {
		t.Errorf("correspondent__id = %v", gotQuery["correspondent__id"])
	}
	if gotQuery["created__date__gte"][0] != "2024-01-01" {
		t.Errorf("created__date__gte = %v", gotQuery["created__date__gte"])
	}
	if gotQuery["page"][0] != "2" {
		t.Errorf("page = %v", gotQuery["page"])
	}
}

func TestListTagsRequestsSinglePage(t *testing.T) {
	var gotPageSize string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPageSize = r.URL.Query().Get("page_size")
		_, _ = w.Write([]byte(`{"count":1,"next":null,"previous":null,"results":[{"id":3,"name":"taxes"}]}`))
	}))

	out, err := c.ListTags(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 1 || out.Results[0].Name != "taxes" {
		t.Errorf("results = %+v", out.Results)
	}
	if gotPageSize != "100000" {
		t.Errorf("page_size = %q, want the whole set in one page", gotPageSize)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", 401, func(t *testing.T, err error) {
			var e *AuthError
			if !errors.As(err, &e) || e.StatusCode != 401 {
				t.Errorf("err = %v, want AuthError 401", err)
			}
		}},
		{"not found", 404, func(t *testing.T, err error) {
			if !IsNotFound(err) {
				t.Errorf("err = %v, want 404 ClientError", err)
			}
		}},
		{"server error", 500, func(t *testing.T, err error) {
			var e *ClientError
			if !errors.As(err, &e) || e.StatusCode != 500 {
				t.Errorf("err = %v, want ClientError 500", err)
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"detail":"nope"}`))
			}))
			_, err := c.GetDocument(context.Background(), 1)
			if err == nil {
				t.Fatal("expected error")
			}
			tc.check(t, err)
		})
	}
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // reachable URL, refused connection
	c := New(srv.URL, "tok", Options{Timeout: time.Second})

	_, err := c.GetDocument(context.Background(), 1)
	if !IsNetworkError(err) {
		t.Errorf("err = %v, want NetworkError", err)
	}
}

func TestParseErrorOnBadBody(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>definitely not paperless</html>`))
	}))

	_, err := c.GetDocument(context.Background(), 1)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("err = %v, want ParseError", err)
	}
}

func TestUpdateDocumentReturnsAuthoritativeState(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "PATCH" {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		_, _ = w.Write([]byte(`{"id":7,"title":"Renamed by server","tags":[1,2],
			"created":"2024-03-01T00:00:00Z","added":"2024-03-02T00:00:00Z","modified":"2024-03-05T00:00:00Z"}`))
	}))

	title := "Renamed"
	doc, err := c.UpdateDocument(context.Background(), 7, &DocumentUpdate{Title: &title})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Renamed by server" {
		t.Errorf("title = %q, want the server's version", doc.Title)
	}
}

func TestDeleteDocument(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "DELETE" {
			t.Errorf("method = %s, want DELETE", r.Method)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	if err := c.DeleteDocument(context.Background(), 7); err != nil {
		t.Fatal(err)
	}
}
