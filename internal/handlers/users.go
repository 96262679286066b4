package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/streamtweet/backend/internal/engagement"
	"github.com/streamtweet/backend/internal/history"
	"github.com/streamtweet/backend/internal/logging"
	"github.com/streamtweet/backend/internal/middleware"
	"github.com/streamtweet/backend/internal/models"
	"github.com/streamtweet/backend/internal/repositories"
)

// UserHandler implements registration, session, profile, channel, and
// watch-history endpoints.
type UserHandler struct {
	Users    UserStore
	Sessions SessionManager
	Videos   VideoStore
	Media    MediaStore
	Limiter  RateLimiter

	MaxUploadBytes int64
	NowFunc        func() time.Time
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type channelResponse struct {
	models.User
	IsSubscribed *bool `json:"isSubscribed,omitempty"`
}

type historyItem struct {
	models.Video
	WatchedAt time.Time `json:"watchedAt"`
}

// Register handles POST /api/v1/user/register. Avatar is required,
// coverImage optional; both are persisted to media storage.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, apiError{status: http.StatusTooManyRequests, message: "too many requests"}, "")
		return
	}

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(ctx, w, badRequest("invalid multipart payload"), "")
		return
	}

	username := strings.ToLower(strings.TrimSpace(r.FormValue("username")))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	password := r.FormValue("password")
	fullName := strings.TrimSpace(r.FormValue("fullName"))

	if username == "" || email == "" || password == "" {
		respondError(ctx, w, badRequest("username, email, and password are required"), "")
		return
	}
	if _, err := mail.ParseAddress(email); err != nil {
		respondError(ctx, w, badRequest("invalid email address"), "")
		return
	}
	if len(password) < 8 {
		respondError(ctx, w, badRequest("password must be at least 8 characters"), "")
		return
	}

	avatarFiles := r.MultipartForm.File["avatar"]
	if len(avatarFiles) == 0 {
		respondError(ctx, w, badRequest("avatar image is required"), "")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("hash password: %w", err), "")
		return
	}

	userID := uuid.NewString()

	avatarURL, err := saveMultipartFile(ctx, h.Media, avatarFiles[0], fmt.Sprintf("avatars/%s/%s", userID, avatarFiles[0].Filename))
	if err != nil {
		respondError(ctx, w, fmt.Errorf("store avatar: %w", err), "")
		return
	}

	var coverURL string
	if covers := r.MultipartForm.File["coverImage"]; len(covers) > 0 {
		coverURL, err = saveMultipartFile(ctx, h.Media, covers[0], fmt.Sprintf("covers/%s/%s", userID, covers[0].Filename))
		if err != nil {
			respondError(ctx, w, fmt.Errorf("store cover image: %w", err), "")
			return
		}
	}

	now := h.now()
	user := models.User{
		ID:            userID,
		Username:      username,
		Email:         email,
		Password:      string(hashed),
		FullName:      fullName,
		AvatarURL:     avatarURL,
		CoverURL:      coverURL,
		SubscriberIDs: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, conflict("username or email already exists"), "")
			return
		}
		respondError(ctx, w, fmt.Errorf("create user: %w", err), "")
		return
	}

	respondData(ctx, w, http.StatusCreated, user, "User successfully registered")
}

// Login handles POST /api/v1/user/login. The identifier may be a username or
// an email; a lookup miss and a password mismatch are indistinguishable to
// the caller.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, apiError{status: http.StatusTooManyRequests, message: "too many requests"}, "")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, badRequest("invalid request body"), "")
		return
	}

	identifier := strings.ToLower(strings.TrimSpace(req.Username))
	if identifier == "" {
		identifier = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if identifier == "" || req.Password == "" {
		respondError(ctx, w, badRequest("username or email and password are required"), "")
		return
	}

	user, err := h.Users.FindByIdentifier(ctx, identifier)
	if err != nil {
		logging.FromContext(ctx).Warn("login lookup failed", "identifier", identifier, "error", err)
		respondError(ctx, w, unauthorized("invalid credentials"), "")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondError(ctx, w, unauthorized("invalid credentials"), "")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("issue session: %w", err), "")
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, sessionResponse{
		User:         &user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "User successfully logged in")
}

// Logout handles POST /api/v1/user/logout. The persisted refresh token is
// cleared; access tokens already in the wild stay valid until expiry.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	if err := h.Sessions.Revoke(ctx, userID); err != nil {
		respondError(ctx, w, fmt.Errorf("revoke session: %w", err), "")
		return
	}

	clearSessionCookies(w)
	respondData(ctx, w, http.StatusOK, struct{}{}, "User successfully logged out")
}

// Refresh handles POST /api/v1/user/refresh-token. The token comes from the
// refresh cookie or the request body; on success both tokens rotate.
func (h UserHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var token string
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = strings.TrimSpace(req.RefreshToken)
		}
	}
	if token == "" {
		respondError(ctx, w, unauthorized("refresh token is required"), "")
		return
	}

	tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, sessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "The access token is refreshed")
}

// ChangePassword handles PATCH /api/v1/user/change-current-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, badRequest("invalid request body"), "")
		return
	}
	if req.NewPassword == "" {
		respondError(ctx, w, badRequest("new password is required"), "")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, badRequest("password must be at least 8 characters"), "")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		respondError(ctx, w, badRequest("current password is not valid"), "")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("hash password: %w", err), "")
		return
	}

	if err := h.Users.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "Password has been changed")
}

// UpdateAccount handles PATCH /api/v1/user/update-account-details.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, badRequest("invalid request body"), "")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FullName == "" || req.Email == "" {
		respondError(ctx, w, badRequest("fullName and email are required"), "")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, badRequest("invalid email address"), "")
		return
	}

	user, err := h.Users.UpdateAccount(ctx, userID, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, conflict("email already in use"), "")
			return
		}
		respondError(ctx, w, err, "user not found")
		return
	}

	respondData(ctx, w, http.StatusOK, user, "Account details updated successfully")
}

// ChangeAvatar handles PATCH /api/v1/user/change-avatar (multipart).
func (h UserHandler) ChangeAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(ctx, w, badRequest("invalid multipart payload"), "")
		return
	}

	files := r.MultipartForm.File["avatar"]
	if len(files) == 0 {
		respondError(ctx, w, badRequest("avatar image is required"), "")
		return
	}

	avatarURL, err := saveMultipartFile(ctx, h.Media, files[0], fmt.Sprintf("avatars/%s/%s", userID, files[0].Filename))
	if err != nil {
		respondError(ctx, w, fmt.Errorf("store avatar: %w", err), "")
		return
	}

	user, err := h.Users.UpdateAvatar(ctx, userID, avatarURL)
	if err != nil {
		respondError(ctx, w, err, "user not found")
		return
	}

	respondData(ctx, w, http.StatusOK, user, "Avatar image updated successfully")
}

// PublicChannel handles GET /api/v1/user/c/{username} for anonymous profile pages.
func (h UserHandler) PublicChannel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := strings.ToLower(r.PathValue("username"))
	if username == "" {
		respondError(ctx, w, badRequest("username is required"), "")
		return
	}

	channel, err := h.Users.FindByUsername(ctx, username)
	if err != nil {
		respondError(ctx, w, err, "channel not found")
		return
	}

	respondData(ctx, w, http.StatusOK, channelResponse{User: channel}, "Channel found")
}

// Channel handles GET /api/v1/user/channel/{username}, annotating the channel
// with whether the authenticated caller is subscribed.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	username := strings.ToLower(r.PathValue("username"))
	if username == "" {
		respondError(ctx, w, badRequest("username is required"), "")
		return
	}

	channel, err := h.Users.FindByUsername(ctx, username)
	if err != nil {
		respondError(ctx, w, err, "channel not found")
		return
	}

	isSubscribed := engagement.Contains(channel.SubscriberIDs, userID)
	respondData(ctx, w, http.StatusOK, channelResponse{User: channel, IsSubscribed: &isSubscribed}, "Channel found")
}

// History handles GET /api/v1/user/history. The append-only log is collapsed
// to the latest entry per video, ordered most recent first, on every read.
func (h UserHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	entries, err := h.Videos.WatchEntriesForUser(ctx, userID)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("load watch history: %w", err), "")
		return
	}

	collapsed := history.Collapse(entries)

	ids := make([]string, 0, len(collapsed))
	for _, entry := range collapsed {
		ids = append(ids, entry.VideoID)
	}

	videos, err := h.Videos.FindByIDs(ctx, ids)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("load history videos: %w", err), "")
		return
	}

	items := make([]historyItem, 0, len(collapsed))
	for _, entry := range collapsed {
		video, ok := videos[entry.VideoID]
		if !ok {
			// The video was deleted after it was watched.
			continue
		}
		items = append(items, historyItem{Video: video, WatchedAt: entry.WatchedAt})
	}

	respondData(ctx, w, http.StatusOK, items, "Watch history fetched successfully")
}

// Subscribe handles POST /api/v1/user/subscribe/{username}.
func (h UserHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.setSubscription(w, r, true)
}

// Unsubscribe handles POST /api/v1/user/unsubscribe/{username}.
func (h UserHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.setSubscription(w, r, false)
}

func (h UserHandler) setSubscription(w http.ResponseWriter, r *http.Request, subscribe bool) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	username := strings.ToLower(r.PathValue("username"))
	if username == "" {
		respondError(ctx, w, badRequest("username is required"), "")
		return
	}

	channel, err := h.Users.FindByUsername(ctx, username)
	if err != nil {
		respondError(ctx, w, err, "channel not found")
		return
	}

	subscribed := engagement.Contains(channel.SubscriberIDs, userID)
	if subscribed != subscribe {
		set, _, err := engagement.ToggleSubscription(channel.SubscriberIDs, userID, channel.ID)
		if err != nil {
			respondError(ctx, w, err, "")
			return
		}

		if err := h.Users.SetSubscribers(ctx, channel.ID, set); err != nil {
			respondError(ctx, w, err, "channel not found")
			return
		}
		channel.SubscriberIDs = set
		channel.SubscriberCount = len(set)
	} else if subscribe && userID == channel.ID {
		// Self-subscription is rejected even as a no-op.
		respondError(ctx, w, engagement.ErrSelfSubscription, "")
		return
	}

	isSubscribed := engagement.Contains(channel.SubscriberIDs, userID)
	message := "Unsubscribed from channel"
	if isSubscribed {
		message = "Subscribed to channel"
	}

	respondData(ctx, w, http.StatusOK, channelResponse{User: channel, IsSubscribed: &isSubscribed}, message)
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
