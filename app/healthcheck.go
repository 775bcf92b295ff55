package main

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

var startedAt = time.Now()

// healthCheckHandler reports "degraded" while the media breaker is open:
// reads still work but publishing with images fails fast.
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	media := app.media.State()

	status := "available"
	if media == gobreaker.StateOpen.String() {
		status = "degraded"
	}

	err := app.writeJSON(w, http.StatusOK, envelope{
		"status": status,
		"system_info": map[string]string{
			"environment": app.config.Environment,
			"version":     app.config.Version,
			"media":       media,
			"uptime":      time.Since(startedAt).Round(time.Second).String(),
		},
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
