package handlers

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamtweet/backend/internal/engagement"
	"github.com/streamtweet/backend/internal/middleware"
	"github.com/streamtweet/backend/internal/models"
)

// VideoHandler implements the video catalogue, upload, engagement, and
// playback endpoints.
type VideoHandler struct {
	Videos   VideoStore
	Media    MediaStore
	Recorder ViewRecorder

	MaxUploadBytes int64
	NowFunc        func() time.Time
}

type likedVideoResponse struct {
	models.Video
	Liked *bool `json:"liked,omitempty"`
}

// List handles GET /api/v1/video/: published videos, newest first.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videos, err := h.Videos.ListPublished(ctx)
	if err != nil {
		respondError(ctx, w, fmt.Errorf("list videos: %w", err), "")
		return
	}

	respondData(ctx, w, http.StatusOK, videos, "Videos fetched successfully")
}

// Get handles GET /api/v1/video/{id}. An authenticated viewer sees their
// like state and gains a watch-history entry; anonymous viewers still count
// toward views. Both side effects run off the request path.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	videoID, err := parseVideoID(r)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}

	// Anonymous viewers get liked:false rather than an absent field.
	viewerID, authenticated := middleware.UserIDFromContext(ctx)
	liked := authenticated && engagement.Contains(video.LikedBy, viewerID)
	response := likedVideoResponse{Video: video, Liked: &liked}

	if h.Recorder != nil {
		h.Recorder.Record(video.ID, viewerID, h.now())
	}

	respondData(ctx, w, http.StatusOK, response, "Video found")
}

// Upload handles POST /api/v1/video/upload (multipart). The video file must be an
// .mp4; a thumbnail is optional.
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ownerID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respondError(ctx, w, badRequest("invalid multipart payload"), "")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))
	if title == "" {
		respondError(ctx, w, badRequest("title is required"), "")
		return
	}

	files := r.MultipartForm.File["videoFile"]
	if len(files) == 0 {
		respondError(ctx, w, badRequest("video file is required"), "")
		return
	}
	if !strings.EqualFold(path.Ext(files[0].Filename), ".mp4") {
		respondError(ctx, w, badRequest("only .mp4 video files are supported"), "")
		return
	}

	videoID := uuid.NewString()

	videoURL, err := saveMultipartFile(ctx, h.Media, files[0], fmt.Sprintf("videos/%s/%s", videoID, files[0].Filename))
	if err != nil {
		respondError(ctx, w, fmt.Errorf("store video file: %w", err), "")
		return
	}

	var thumbnailURL string
	if thumbs := r.MultipartForm.File["thumbnail"]; len(thumbs) > 0 {
		thumbnailURL, err = saveMultipartFile(ctx, h.Media, thumbs[0], fmt.Sprintf("thumbnails/%s/%s", videoID, thumbs[0].Filename))
		if err != nil {
			respondError(ctx, w, fmt.Errorf("store thumbnail: %w", err), "")
			return
		}
	}

	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)

	now := h.now()
	video := models.Video{
		ID:           videoID,
		OwnerID:      ownerID,
		Title:        title,
		Description:  description,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		Duration:     duration,
		LikedBy:      []string{},
		IsPublished:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		respondError(ctx, w, fmt.Errorf("create video: %w", err), "")
		return
	}

	respondData(ctx, w, http.StatusCreated, video, "Video uploaded successfully")
}

// Update handles PATCH /api/v1/video/{id}. Only the owner may update; all
// fields are optional and absent ones keep their current value.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	videoID, err := parseVideoID(r)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}
	if video.OwnerID != userID {
		respondError(ctx, w, forbidden("you do not own this video"), "")
		return
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(ctx, w, badRequest("invalid multipart payload"), "")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	description := strings.TrimSpace(r.FormValue("description"))

	var thumbnailURL string
	if thumbs := r.MultipartForm.File["thumbnail"]; len(thumbs) > 0 {
		thumbnailURL, err = saveMultipartFile(ctx, h.Media, thumbs[0], fmt.Sprintf("thumbnails/%s/%s", videoID, thumbs[0].Filename))
		if err != nil {
			respondError(ctx, w, fmt.Errorf("store thumbnail: %w", err), "")
			return
		}
	}

	if title == "" && description == "" && thumbnailURL == "" {
		respondError(ctx, w, badRequest("at least one of title, description, or thumbnail is required"), "")
		return
	}

	updated, err := h.Videos.UpdateDetails(ctx, videoID, title, description, thumbnailURL)
	if err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}

	respondData(ctx, w, http.StatusOK, updated, "Video updated successfully")
}

// Delete handles DELETE /api/v1/video/{id}. Only the owner may delete.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	videoID, err := parseVideoID(r)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}
	if video.OwnerID != userID {
		respondError(ctx, w, forbidden("you do not own this video"), "")
		return
	}

	if err := h.Videos.Delete(ctx, videoID); err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "Video deleted successfully")
}

// Like handles POST /api/v1/video/{id}/like. A repeat like removes the
// existing one; the like count is always the size of the liker set.
func (h VideoHandler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		respondError(ctx, w, unauthorized("authentication required"), "")
		return
	}

	videoID, err := parseVideoID(r)
	if err != nil {
		respondError(ctx, w, err, "")
		return
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}

	set, liked := engagement.Toggle(video.LikedBy, userID)
	if err := h.Videos.SetLikes(ctx, videoID, set); err != nil {
		respondError(ctx, w, err, "video not found")
		return
	}

	video.LikedBy = set
	video.LikesCount = len(set)

	message := "Video unliked"
	if liked {
		message = "Video liked"
	}
	respondData(ctx, w, http.StatusOK, likedVideoResponse{Video: video, Liked: &liked}, message)
}

func parseVideoID(r *http.Request) (string, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", badRequest("invalid video id")
	}
	return id.String(), nil
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
