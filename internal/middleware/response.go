package middleware

import (
	"net/http"

	"github.com/zimid/booking-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeText(w http.ResponseWriter, status int, text string) {
	httputil.WriteText(w, status, text)
}
