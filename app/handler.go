package main

import (
	"errors"
	"net/http"

	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

type registerUserRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input registerUserRequest
	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, err := app.userService.CreateUser(r.Context(), input.Name, input.Username, input.Email, input.Password)
	if err != nil {
		app.userErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusCreated, "Account created, check your email to verify it", envelope{"user": user})
}

func (app *application) activateUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token string `json:"token"`
	}
	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user, err := app.userService.ActivateUser(r.Context(), input.Token)
	switch {
	case errors.Is(err, userservice.ErrNotFound):
		// unknown, expired and already used tokens look the same
		app.failedValidationErrorResponse(w, r, map[string]string{"token": "invalid or expired activation token"})
		return
	case err != nil:
		app.userErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusOK, "Your account has been verified", envelope{"user": user})
}

func (app *application) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	token, user, err := app.userService.LoginUser(r.Context(), input.Username, input.Password)
	if err != nil {
		app.userErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusOK, "Logged in", envelope{"token": token, "user": user})
}

func (app *application) logoutUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.userService.LogoutUser(r.Context(), app.getUserContext(r).ID); err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusOK, "Logged out", nil)
}

// getProfileHandler returns the caller's own profile, drafts and email
// included.
func (app *application) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := app.userService.GetProfile(r.Context(), app.getUserContext(r).ID)
	if err != nil {
		app.userErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusOK, "Profile loaded", envelope{"user": profile})
}

func (app *application) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var input userservice.Settings
	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	profile, err := app.userService.UpdateSettings(r.Context(), app.getUserContext(r).ID, input)
	if err != nil {
		app.userErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusOK, "Settings updated", envelope{"user": profile})
}

// publicProfile replaces the profile's blog list with full blog documents.
type publicProfile struct {
	*userservice.Profile
	Blogs []blogservice.Blog `json:"blogs"`
}

func (app *application) getPublicProfileHandler(w http.ResponseWriter, r *http.Request) {
	profile, err := app.userService.GetPublicProfile(r.Context(), app.readStringParam(r, "username"))
	if err != nil {
		app.userErrorResponse(w, r, err)
		return
	}

	blogs, err := app.blogService.BlogsByCreator(r.Context(), profile.ID, profile.ShowDraftBlogs)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusOK, "Profile loaded", envelope{"user": publicProfile{Profile: profile, Blogs: blogs}})
}
