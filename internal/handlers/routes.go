package handlers

import (
	"net/http"
	"time"

	"github.com/streamtweet/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users    UserStore
	Sessions SessionManager
	Videos   VideoStore
	Tweets   TweetStore
	Recorder ViewRecorder
	Media    MediaStore
	Limiter  RateLimiter

	MaxUploadBytes int64
	NowFunc        func() time.Time
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	users := UserHandler{
		Users:          deps.Users,
		Sessions:       deps.Sessions,
		Videos:         deps.Videos,
		Media:          deps.Media,
		Limiter:        deps.Limiter,
		MaxUploadBytes: deps.MaxUploadBytes,
		NowFunc:        deps.NowFunc,
	}
	videos := VideoHandler{
		Videos:         deps.Videos,
		Media:          deps.Media,
		Recorder:       deps.Recorder,
		MaxUploadBytes: deps.MaxUploadBytes,
		NowFunc:        deps.NowFunc,
	}
	tweets := TweetHandler{Tweets: deps.Tweets, NowFunc: deps.NowFunc}

	require := middleware.RequireAuth(deps.Sessions, rejectUnauthenticated)
	optional := middleware.OptionalAuth(deps.Sessions)

	mux.HandleFunc("GET /healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/user/register", users.Register)
	mux.HandleFunc("POST /api/v1/user/login", users.Login)
	mux.HandleFunc("POST /api/v1/user/refresh-token", users.Refresh)
	mux.HandleFunc("GET /api/v1/user/c/{username}", users.PublicChannel)
	mux.Handle("POST /api/v1/user/logout", require(http.HandlerFunc(users.Logout)))
	mux.Handle("PATCH /api/v1/user/change-current-password", require(http.HandlerFunc(users.ChangePassword)))
	mux.Handle("PATCH /api/v1/user/update-account-details", require(http.HandlerFunc(users.UpdateAccount)))
	mux.Handle("PATCH /api/v1/user/change-avatar", require(http.HandlerFunc(users.ChangeAvatar)))
	mux.Handle("GET /api/v1/user/channel/{username}", require(http.HandlerFunc(users.Channel)))
	mux.Handle("GET /api/v1/user/history", require(http.HandlerFunc(users.History)))
	mux.Handle("POST /api/v1/user/subscribe/{username}", require(http.HandlerFunc(users.Subscribe)))
	mux.Handle("POST /api/v1/user/unsubscribe/{username}", require(http.HandlerFunc(users.Unsubscribe)))

	mux.HandleFunc("GET /api/v1/video/{$}", videos.List)
	mux.Handle("GET /api/v1/video/{id}", optional(http.HandlerFunc(videos.Get)))
	mux.Handle("POST /api/v1/video/upload", require(http.HandlerFunc(videos.Upload)))
	mux.Handle("PATCH /api/v1/video/{id}", require(http.HandlerFunc(videos.Update)))
	mux.Handle("DELETE /api/v1/video/{id}", require(http.HandlerFunc(videos.Delete)))
	mux.Handle("POST /api/v1/video/{id}/like", require(http.HandlerFunc(videos.Like)))

	mux.HandleFunc("GET /api/v1/tweet/{$}", tweets.List)
	mux.Handle("POST /api/v1/tweet/{$}", require(http.HandlerFunc(tweets.Create)))
	mux.Handle("POST /api/v1/tweet/{id}/like", require(http.HandlerFunc(tweets.Like)))
	mux.Handle("DELETE /api/v1/tweet/{id}", require(http.HandlerFunc(tweets.Delete)))
}

func rejectUnauthenticated(w http.ResponseWriter, r *http.Request) {
	respondError(r.Context(), w, unauthorized("authentication required"), "")
}
