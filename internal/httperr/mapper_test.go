package httperr

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"chainsidecar/internal/chain"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWriteMapsKnownErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"does not exist", chain.ErrDoesNotExist, http.StatusNotFound},
		{"unavailable", chain.ErrUnavailable, http.StatusServiceUnavailable},
		{"too many requests upstream", chain.ErrTooManyRequests, http.StatusServiceUnavailable},
		{"node not ready", chain.ErrNodeNotReady, http.StatusServiceUnavailable},
		{"skipped block", chain.ErrSkippedBlock, http.StatusNoContent},
		{"unmapped", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped known error", fmtWrap(chain.ErrDoesNotExist), http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			Write(c, tc.err)

			if w.Code != tc.want {
				t.Fatalf("Write(%v) status = %d, want %d", tc.err, w.Code, tc.want)
			}
		})
	}
}

func fmtWrap(err error) error {
	return errors.Join(errors.New("context"), err)
}
