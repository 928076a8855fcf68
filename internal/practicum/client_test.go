package practicum

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hwbot/internal/homework"
	logx "hwbot/pkg/logx"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{Endpoint: srv.URL + "/api/user_api/homework_statuses/", Token: "secret", Timeout: 2 * time.Second}, logx.Nop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestFetchSendsAuthAndCursor(t *testing.T) {
	t.Parallel()
	var gotAuth, gotFrom, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotFrom = r.URL.Query().Get("from_date")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"homeworks":[{"homework_name":"proj1","status":"approved","id":7}],"current_date":1700000100}`))
	})

	resp, err := c.Fetch(context.Background(), 1700000000)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if gotAuth != "OAuth secret" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotFrom != "1700000000" {
		t.Fatalf("from_date = %q", gotFrom)
	}
	if gotPath != "/api/user_api/homework_statuses/" {
		t.Fatalf("path = %q", gotPath)
	}
	if len(resp.Homeworks) != 1 || resp.Homeworks[0].HomeworkName != "proj1" || resp.Homeworks[0].Status != homework.StatusApproved {
		t.Fatalf("unexpected body: %+v", resp)
	}
	if resp.CurrentDate != 1700000100 {
		t.Fatalf("CurrentDate = %d", resp.CurrentDate)
	}
}

func TestFetchZeroCursorUsesClock(t *testing.T) {
	t.Parallel()
	var gotFrom string
	fixed := time.Unix(1234567890, 0)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from_date")
		_, _ = w.Write([]byte(`{"homeworks":[]}`))
	}, WithClock(func() time.Time { return fixed }))

	if _, err := c.Fetch(context.Background(), 0); err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if gotFrom != "1234567890" {
		t.Fatalf("from_date = %q", gotFrom)
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	t.Parallel()
	for _, code := range []int{http.StatusInternalServerError, http.StatusUnauthorized, http.StatusNoContent, http.StatusCreated} {
		code := code
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
				_, _ = w.Write([]byte(`{"homeworks":[]}`))
			})
			resp, err := c.Fetch(context.Background(), 1)
			if !errors.Is(err, homework.ErrUnexpectedResponse) {
				t.Fatalf("err = %v, want ErrUnexpectedResponse", err)
			}
			if resp.Homeworks != nil {
				t.Fatalf("body returned on failure: %+v", resp)
			}
		})
	}
}

func TestFetchMalformedJSON(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"homeworks": [`))
	})
	_, err := c.Fetch(context.Background(), 1)
	if homework.KindOf(err) != homework.KindUnexpectedResponse {
		t.Fatalf("kind = %v (err %v)", homework.KindOf(err), err)
	}
}

func TestFetchTransportFault(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{Endpoint: url, Token: "secret", Timeout: time.Second}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Fetch(context.Background(), 1)
	if !errors.Is(err, homework.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
}

func TestFetchTimeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := New(Config{Endpoint: srv.URL, Token: "secret", Timeout: 50 * time.Millisecond}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.Fetch(context.Background(), 1)
	if homework.KindOf(err) != homework.KindTransport {
		t.Fatalf("kind = %v (err %v)", homework.KindOf(err), err)
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
	c, err := New(Config{Token: "x"}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if c.cfg.Endpoint != DefaultEndpoint {
		t.Fatalf("Endpoint = %q", c.cfg.Endpoint)
	}
	if c.cfg.Timeout != defaultTimeout {
		t.Fatalf("Timeout = %v", c.cfg.Timeout)
	}
}
