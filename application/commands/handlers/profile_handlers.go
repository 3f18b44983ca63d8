package handlers

import (
	"context"
	"time"

	"neuronote/application/commands"
	"neuronote/application/ports"
	"neuronote/application/queries"
	pkgerrors "neuronote/pkg/errors"

	"go.uber.org/zap"
)

// UpdateProfilePhotoHandler stores a new avatar and points the user at it
type UpdateProfilePhotoHandler struct {
	userRepo   ports.UserRepository
	memoryRepo ports.MemoryRepository
	storage    ports.AvatarStorage
	logger     *zap.Logger
}

func NewUpdateProfilePhotoHandler(
	userRepo ports.UserRepository,
	memoryRepo ports.MemoryRepository,
	storage ports.AvatarStorage,
	logger *zap.Logger,
) *UpdateProfilePhotoHandler {
	return &UpdateProfilePhotoHandler{
		userRepo:   userRepo,
		memoryRepo: memoryRepo,
		storage:    storage,
		logger:     logger,
	}
}

// Handle returns the updated profile
func (h *UpdateProfilePhotoHandler) Handle(ctx context.Context, cmd commands.UpdateProfilePhotoCommand) (*queries.ProfileView, error) {
	user, err := h.userRepo.FindByID(ctx, cmd.UserID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, pkgerrors.NewNotFoundMessage("User not found")
		}
		return nil, err
	}

	url, err := h.storage.Save(ctx, cmd.UserID, cmd.Photo)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := h.userRepo.UpdateImage(ctx, cmd.UserID, url, now); err != nil {
		return nil, err
	}
	user.Image = url
	user.UpdatedAt = now

	count, err := h.memoryRepo.CountByUser(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("Profile photo updated", zap.String("userID", cmd.UserID))
	view := queries.NewProfileView(user, count)
	return &view, nil
}
