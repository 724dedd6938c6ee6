package handler

import (
	"net/http"

	apperrors "github.com/folklore/luck-server-go/internal/errors"
	"github.com/folklore/luck-server-go/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// NotFound answers every unknown path and every path/method mismatch.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, apperrors.NotFound())
}
