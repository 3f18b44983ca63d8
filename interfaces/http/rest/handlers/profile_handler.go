package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"neuronote/application/commands"
	"neuronote/application/commands/bus"
	"neuronote/application/queries"
	querybus "neuronote/application/queries/bus"
	"neuronote/interfaces/http/rest/middleware"
	"neuronote/pkg/common"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
)

// MaxPhotoBytes is the largest accepted avatar upload.
const MaxPhotoBytes int64 = 5 << 20

// multipartOverhead leaves room for boundaries and headers around the photo.
const multipartOverhead int64 = 64 << 10

// ProfileHandler serves the caller's profile
type ProfileHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

func NewProfileHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errorHandler *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errorHandler,
		logger:     logger,
	}
}

// ProfileResponse wraps the profile view
type ProfileResponse struct {
	Success bool                `json:"success,omitempty"`
	User    queries.ProfileView `json:"user"`
}

// GetProfile handles GET /profile/me
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	profile, err := as[*queries.ProfileView](h.queryBus.Ask(r.Context(), queries.GetProfileQuery{UserID: userID}))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, ProfileResponse{User: *profile})
}

// UploadPhoto handles POST /profile/me with a multipart "photo" field
func (h *ProfileHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserID(r)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxPhotoBytes+multipartOverhead)
	if err := r.ParseMultipartForm(MaxPhotoBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errors.Handle(w, r, pkgerrors.NewValidationError(fmt.Sprintf("photo exceeds %d MiB", MaxPhotoBytes>>20)))
			return
		}
		h.errors.Handle(w, r, pkgerrors.NewValidationError("Invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("photo")
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("photo is required"))
		return
	}
	defer file.Close()

	if header.Size > MaxPhotoBytes {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(fmt.Sprintf("photo exceeds %d MiB", MaxPhotoBytes>>20)))
		return
	}

	profile, err := as[*queries.ProfileView](h.commandBus.Execute(r.Context(), commands.UpdateProfilePhotoCommand{
		UserID: userID,
		Photo:  file,
	}))
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("Profile photo updated",
		zap.String("userID", userID),
		zap.String("filename", header.Filename),
		zap.Int64("size", header.Size),
	)
	common.RespondJSON(w, http.StatusOK, ProfileResponse{Success: true, User: *profile})
}
