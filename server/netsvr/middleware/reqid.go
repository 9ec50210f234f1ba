package middleware

import (
	"net/http"
	"strings"

	chimid "github.com/go-chi/chi/v5/middleware"
)

// HeaderRequestID 回應中帶的 request id
const HeaderRequestID = "X-Request-Id"

// RequestID 沿用 client 帶來的 X-Request-Id，沒有時由 chi 產生，並回寫到回應 header
func RequestID(next http.Handler) http.Handler {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := GetReqId(r); id != "" {
			w.Header().Set(HeaderRequestID, id)
		}
		next.ServeHTTP(w, r)
	})
	return chimid.RequestID(echo)
}

func GetReqId(r *http.Request) string {
	return chimid.GetReqID(r.Context())
}

// GetReqIdNumPart 取 chi request id 最後一段流水號，log 中較短
func GetReqIdNumPart(r *http.Request) string {
	id := GetReqId(r)
	if i := strings.LastIndexByte(id, '-'); i >= 0 && i+1 < len(id) {
		return id[i+1:]
	}
	return id
}
