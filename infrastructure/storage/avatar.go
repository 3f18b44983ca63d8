// Package storage keeps uploaded profile photos on local disk.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"neuronote/application/ports"
	"neuronote/domain/core/valueobjects"
	pkgerrors "neuronote/pkg/errors"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

const (
	// MaxAvatarBytes caps an uploaded photo.
	MaxAvatarBytes = 5 << 20
	avatarSize     = 256
)

// AvatarStore decodes an upload, crops it to a square thumbnail and writes
// it as JPEG under dir. Files are served from publicBaseURL + "/uploads/".
type AvatarStore struct {
	dir           string
	publicBaseURL string
	logger        *zap.Logger
}

var _ ports.AvatarStorage = (*AvatarStore)(nil)

func NewAvatarStore(dir, publicBaseURL string, logger *zap.Logger) (*AvatarStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &AvatarStore{dir: dir, publicBaseURL: strings.TrimRight(publicBaseURL, "/"), logger: logger}, nil
}

// Dir is the directory the files are written to.
func (s *AvatarStore) Dir() string { return s.dir }

func (s *AvatarStore) Save(ctx context.Context, userID string, image io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(image, MaxAvatarBytes+1))
	if err != nil {
		return "", pkgerrors.NewValidationError("failed to read photo")
	}
	if len(data) > MaxAvatarBytes {
		return "", pkgerrors.NewValidationError("photo exceeds 5 MiB")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", pkgerrors.NewValidationError("photo must be a JPEG, PNG or GIF image")
	}
	thumb := imaging.Fill(img, avatarSize, avatarSize, imaging.Center, imaging.Lanczos)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("avatar-%s-%s.jpg", sanitize(userID), valueobjects.NewID())
	path := filepath.Join(s.dir, name)
	if err := imaging.Save(thumb, path, imaging.JPEGQuality(85)); err != nil {
		return "", pkgerrors.NewInternalError("failed to store photo")
	}

	s.logger.Debug("Avatar stored", zap.String("userID", userID), zap.String("file", name))
	return s.publicBaseURL + "/uploads/" + name, nil
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, id)
}
