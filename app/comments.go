package main

import "net/http"

type commentRequest struct {
	Comment string `json:"comment"`
}

func (app *application) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error adding comment")
		return
	}

	var input commentRequest
	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	comment, err := app.blogService.AddComment(r.Context(), id, user.ID, input.Comment)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error adding comment")
		return
	}

	app.writeSuccess(w, r, http.StatusCreated, "Comment added", envelope{"comment": comment})
}

func (app *application) addReplyHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error adding reply")
		return
	}

	var input commentRequest
	if err := app.parseJSON(w, r, &input); err != nil {
		app.badRequestErrorResponse(w, r, err)
		return
	}

	user := app.getUserContext(r)

	reply, err := app.blogService.AddReply(r.Context(), id, user.ID, input.Comment)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error adding reply")
		return
	}

	app.writeSuccess(w, r, http.StatusCreated, "Reply added", envelope{"comment": reply})
}

func (app *application) likeCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error liking comment")
		return
	}

	user := app.getUserContext(r)

	liked, comment, err := app.blogService.ToggleCommentLike(r.Context(), id, user.ID)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error liking comment")
		return
	}

	message := "Comment unliked"
	if liked {
		message = "Comment liked"
	}

	app.writeSuccess(w, r, http.StatusOK, message, envelope{"isLiked": liked, "comment": comment})
}

func (app *application) deleteCommentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error deleting comment")
		return
	}

	user := app.getUserContext(r)

	if err := app.blogService.DeleteComment(r.Context(), id, user.ID); err != nil {
		app.blogErrorResponse(w, r, err, "Error deleting comment")
		return
	}

	app.writeSuccess(w, r, http.StatusOK, "Comment deleted", nil)
}
