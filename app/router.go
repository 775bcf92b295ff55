package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sushihentaime/blogsphere/internal/userservice"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	app.handle(router, http.MethodGet, "/v1/healthcheck", app.healthCheckHandler)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())

	// user service
	app.handle(router, http.MethodPost, "/v1/users/register", app.registerUserHandler)
	app.handle(router, http.MethodPut, "/v1/users/activate", app.activateUserHandler)
	app.handle(router, http.MethodPost, "/v1/users/login", app.loginUserHandler)
	app.handle(router, http.MethodPost, "/v1/users/logout", app.requireAuthUser(app.logoutUserHandler))
	app.handle(router, http.MethodGet, "/v1/profile", app.requireAuthUser(app.getProfileHandler))
	app.handle(router, http.MethodPatch, "/v1/profile/settings", app.requireAuthUser(app.updateSettingsHandler))
	app.handle(router, http.MethodGet, "/v1/profiles/:username", app.getPublicProfileHandler)

	// blog service
	app.handle(router, http.MethodGet, "/v1/blogs", app.listBlogsHandler)
	app.handle(router, http.MethodPost, "/v1/blogs", app.requirePermission(app.createBlogHandler, userservice.PermissionWriteBlog))
	app.handle(router, http.MethodGet, "/v1/blogs/:id", app.getBlogHandler)
	app.handle(router, http.MethodPut, "/v1/blogs/:id", app.requirePermission(app.updateBlogHandler, userservice.PermissionWriteBlog))
	app.handle(router, http.MethodDelete, "/v1/blogs/:id", app.requirePermission(app.deleteBlogHandler, userservice.PermissionWriteBlog))
	app.handle(router, http.MethodPost, "/v1/blogs/:id/like", app.requireActivatedUser(app.likeBlogHandler))
	app.handle(router, http.MethodPost, "/v1/blogs/:id/save", app.requireActivatedUser(app.saveBlogHandler))
	app.handle(router, http.MethodPost, "/v1/blogs/:id/comments", app.requireActivatedUser(app.addCommentHandler))
	app.handle(router, http.MethodGet, "/v1/search/blogs", app.searchBlogsHandler)
	app.handle(router, http.MethodGet, "/v1/tags/:tag/blogs", app.blogsByTagHandler)

	// comments
	app.handle(router, http.MethodPost, "/v1/comments/:id/replies", app.requireActivatedUser(app.addReplyHandler))
	app.handle(router, http.MethodPost, "/v1/comments/:id/like", app.requireActivatedUser(app.likeCommentHandler))
	app.handle(router, http.MethodDelete, "/v1/comments/:id", app.requireActivatedUser(app.deleteCommentHandler))

	return app.recoverPanic(app.logRequest(app.enableCORS(app.rateLimit(app.authenticate(router)))))
}
