package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"parcel-backend/internal/apperr"
	"parcel-backend/pkg/utils"

	log "github.com/sirupsen/logrus"
)

func PanicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithField("request_id", GetRequestID(r.Context())).
					Errorf("PANIC RECOVERED: %v\n%s", rec, debug.Stack())
				utils.Error(w, apperr.Wrap(apperr.KindStorageUnavailable, "Internal server error", fmt.Errorf("panic: %v", rec)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}
