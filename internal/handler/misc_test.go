package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGreeting(t *testing.T) {
	rec := httptest.NewRecorder()
	Greeting(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "Hello, world!" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestDelay(t *testing.T) {
	req := httptest.NewRequest("GET", "/delay/0", nil)
	req.SetPathValue("seconds", "0")
	rec := httptest.NewRecorder()
	Delay(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "Waited for 0 seconds" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestDelayInvalidSeconds(t *testing.T) {
	for _, v := range []string{"-1", "abc", "1.5"} {
		req := httptest.NewRequest("GET", "/delay/"+v, nil)
		req.SetPathValue("seconds", v)
		rec := httptest.NewRecorder()
		Delay(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("%q: status = %d, want %d", v, rec.Code, http.StatusUnprocessableEntity)
		}
	}
}

func TestDelayClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/delay/60", nil).WithContext(ctx)
	req.SetPathValue("seconds", "60")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		Delay(rec, req)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Delay did not return after the request was cancelled")
	}
}

func TestNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound(rec, httptest.NewRequest("GET", "/does-not-exist?x=1", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	want := "'404 Not Found' \n I couldn't find '/does-not-exist?x=1'. Try something else?"
	if rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestHealth(t *testing.T) {
	db := setupTestDB(t)

	rec := httptest.NewRecorder()
	Health(db)(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body struct {
		Status        string `json:"status"`
		SchemaVersion int64  `json:"schema_version"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.SchemaVersion != 3 {
		t.Errorf("body = %+v", body)
	}

	db.Close()
	rec = httptest.NewRecorder()
	Health(db)(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("closed db: status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
