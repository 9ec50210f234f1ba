package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zintix-labs/slot666/errs"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.Illegal("session ended"), http.StatusConflict},
		{errs.Malformed("bad json"), http.StatusBadRequest},
		{errs.NewKind(errs.NotFound, "no session"), http.StatusNotFound},
		{errs.Unavailable(errors.New("io"), "ledger down"), http.StatusServiceUnavailable},
		{errs.NewKind(errs.Closed, "closed"), http.StatusServiceUnavailable},
		{errs.Wrap(context.DeadlineExceeded, "spin"), http.StatusGatewayTimeout},
		{errs.Wrap(context.Canceled, "spin"), http.StatusRequestTimeout},
		{errs.NewWarn("plain warn"), http.StatusBadRequest},
		{errs.NewFatal("boom"), http.StatusInternalServerError},
		{errors.New("raw"), http.StatusInternalServerError},
		{errs.Wrap(errs.Illegal("inner"), "outer"), http.StatusConflict},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Errorf("StatusCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestErrsWritesJSON(t *testing.T) {
	w := httptest.NewRecorder()
	Errs(w, errs.NewKind(errs.NotFound, "no session"))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status %d", w.Code)
	}
	var b Body
	if err := json.Unmarshal(w.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Kind != "not_found" || b.Status != 404 || b.Error == "" {
		t.Fatalf("unexpected body %+v", b)
	}
}
