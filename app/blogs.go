package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sushihentaime/blogsphere/internal/blogservice"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (app *application) listBlogsHandler(w http.ResponseWriter, r *http.Request) {
	page, limit, err := app.readPageParams(r)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error fetching blogs")
		return
	}

	res, err := app.blogService.ListBlogs(r.Context(), page, limit)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error fetching blogs")
		return
	}

	app.writeSuccess(w, r, http.StatusOK, "Here are the latest posts", envelope{"blogs": res.Blogs, "hasMoreBlogs": res.HasMore})
}

func (app *application) createBlogHandler(w http.ResponseWriter, r *http.Request) {
	raw, err := app.readBlogForm(w, r)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error creating blog")
		return
	}

	user := app.getUserContext(r)

	blog, err := app.blogService.CreateBlog(r.Context(), user.ID, raw)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error creating blog")
		return
	}

	message := "Blog published successfully"
	if blog.Draft {
		message = "Blog saved as draft"
	}

	app.writeSuccess(w, r, http.StatusCreated, message, envelope{"blogId": blog.BlogID})
}

func (app *application) getBlogHandler(w http.ResponseWriter, r *http.Request) {
	slug := app.readStringParam(r, "id")

	blog, err := app.blogService.GetBlog(r.Context(), slug)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error fetching blog")
		return
	}

	app.writeSuccess(w, r, http.StatusOK, "Blog loaded", envelope{"blog": blog})
}

func (app *application) updateBlogHandler(w http.ResponseWriter, r *http.Request) {
	slug := app.readStringParam(r, "id")

	raw, err := app.readBlogForm(w, r)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error updating blog")
		return
	}

	user := app.getUserContext(r)

	blog, err := app.blogService.UpdateBlog(r.Context(), slug, user.ID, raw)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error updating blog")
		return
	}

	message := "Your blog has been updated"
	if blog.Draft {
		message = "Blog saved as draft"
	}

	app.respondWithProfile(w, r, user.ID, message, nil)
}

func (app *application) deleteBlogHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error deleting blog")
		return
	}

	user := app.getUserContext(r)

	err = app.blogService.DeleteBlog(r.Context(), id, user.ID)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error deleting blog")
		return
	}

	app.respondWithProfile(w, r, user.ID, "Your blog has been deleted", nil)
}

// respondWithProfile answers a mutation with the caller's refreshed profile.
func (app *application) respondWithProfile(w http.ResponseWriter, r *http.Request, userID primitive.ObjectID, message string, data envelope) {
	profile, err := app.userService.GetProfile(r.Context(), userID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if data == nil {
		data = envelope{}
	}
	data["user"] = profile

	app.writeSuccess(w, r, http.StatusOK, message, data)
}

func (app *application) likeBlogHandler(w http.ResponseWriter, r *http.Request) {
	app.engagementHandler(w, r, app.blogService.ToggleLike, "isLiked", "Added to your likes", "Removed from your likes", "Error liking blog")
}

func (app *application) saveBlogHandler(w http.ResponseWriter, r *http.Request) {
	app.engagementHandler(w, r, app.blogService.ToggleSave, "isSaved", "Blog added to Saved", "Blog removed from Saved", "Error saving blog")
}

type toggleFunc func(ctx context.Context, blogID, userID primitive.ObjectID) (*blogservice.Engagement, error)

func (app *application) engagementHandler(w http.ResponseWriter, r *http.Request, toggle toggleFunc, flag, added, removed, fallback string) {
	id, err := app.readIDParam(r, "id")
	if err != nil {
		app.blogErrorResponse(w, r, err, fallback)
		return
	}

	user := app.getUserContext(r)

	res, err := toggle(r.Context(), id, user.ID)
	if err != nil {
		app.blogErrorResponse(w, r, err, fallback)
		return
	}

	message := removed
	if res.Added {
		message = added
	}

	app.respondWithProfile(w, r, user.ID, message, envelope{flag: res.Added, "blog": res.Blog})
}

func (app *application) searchBlogsHandler(w http.ResponseWriter, r *http.Request) {
	page, limit, err := app.readPageParams(r)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error searching blogs")
		return
	}

	res, err := app.blogService.Search(r.Context(), r.URL.Query().Get("q"), page, limit)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error searching blogs")
		return
	}

	app.writeSuccess(w, r, http.StatusOK, "Blogs loaded", pageEnvelope(res))
}

func (app *application) blogsByTagHandler(w http.ResponseWriter, r *http.Request) {
	tag := strings.ToLower(strings.TrimSpace(app.readStringParam(r, "tag")))

	page, limit, err := app.readPageParams(r)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error fetching blogs")
		return
	}

	res, err := app.blogService.ListByTag(r.Context(), tag, r.URL.Query().Get("exclude"), page, limit)
	if err != nil {
		app.blogErrorResponse(w, r, err, "Error fetching blogs")
		return
	}

	app.writeSuccess(w, r, http.StatusOK, fmt.Sprintf("Showing blogs for %s", tag), pageEnvelope(res))
}

func pageEnvelope(p *blogservice.BlogPage) envelope {
	return envelope{"blogs": p.Blogs, "blogCount": p.BlogCount, "hasMoreBlogs": p.HasMore}
}
