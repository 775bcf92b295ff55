package main

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

const internalErrorMessage = "the server encountered a problem and could not process your request"

func (app *application) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(),
		slog.String("request_id", requestID(r)),
		slog.String("method", r.Method),
		slog.String("url", r.URL.RequestURI()),
	)
}

// writeErrorResponse writes the failure body shared by every endpoint.
func (app *application) writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, message string, detail any) {
	env := envelope{"success": false, "message": message, "error": detail}

	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
}

func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.writeErrorResponse(w, r, http.StatusInternalServerError, internalErrorMessage, internalErrorMessage)
}

func (app *application) badRequestErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.writeErrorResponse(w, r, http.StatusBadRequest, err.Error(), err.Error())
}

func (app *application) notFoundErrorResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusNotFound, "resource not found", "resource not found")
}

func (app *application) failedValidationErrorResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	app.writeErrorResponse(w, r, http.StatusUnprocessableEntity, "validation failed", errors)
}

func (app *application) invalidCredentialsErrorResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusUnauthorized, "invalid authentication credentials", "invalid authentication credentials")
}

func (app *application) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.writeErrorResponse(w, r, http.StatusUnauthorized, "invalid or missing authentication token", "invalid or missing authentication token")
}

func (app *application) inactiveAccountResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusForbidden, "your account must be verified to access this resource", "account not verified")
}

func (app *application) notPermittedResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusForbidden, "your account does not have the necessary permissions to access this resource", "forbidden")
}

func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded", "rate limit exceeded")
}

func (app *application) methodNotAllowedErrorResponse(w http.ResponseWriter, r *http.Request) {
	app.writeErrorResponse(w, r, http.StatusMethodNotAllowed, "method not allowed", "method not allowed")
}

// errorStatus maps an error kind to its status code. Unknown errors are 500.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, common.ErrBadInput):
		return http.StatusBadRequest
	case errors.As(err, &common.ValidationError{}):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, common.ErrEditConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// blogErrorResponse answers a failed blog or comment operation with the
// operation's own message. fallback is used when err carries none.
func (app *application) blogErrorResponse(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := errorStatus(err)
	message := common.Message(err, fallback)

	if status == http.StatusInternalServerError {
		app.logError(r, err)
		var known *common.Error
		if !errors.As(err, &known) {
			app.writeErrorResponse(w, r, status, fallback, internalErrorMessage)
			return
		}
		app.writeErrorResponse(w, r, status, message, internalErrorMessage)
		return
	}

	app.writeErrorResponse(w, r, status, message, message)
}

// userErrorResponse answers a failed account operation. Validation problems,
// duplicates included, are 422 with per-field messages.
func (app *application) userErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr common.ValidationError
	switch {
	case errors.Is(err, userservice.ErrDuplicateEmail):
		app.failedValidationErrorResponse(w, r, map[string]string{"email": "a user with this email address already exists"})
	case errors.Is(err, userservice.ErrDuplicateUsername):
		app.failedValidationErrorResponse(w, r, map[string]string{"username": "this username is already taken"})
	case errors.Is(err, userservice.ErrAuthenticationFailure):
		app.invalidCredentialsErrorResponse(w, r)
	case errors.As(err, &validationErr):
		app.failedValidationErrorResponse(w, r, validationErr.Errors)
	case errors.Is(err, userservice.ErrNotFound):
		app.notFoundErrorResponse(w, r)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
