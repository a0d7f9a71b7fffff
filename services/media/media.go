package mediasvc

import (
	"image"
	_ "image/gif" // decoders
	_ "image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/udemo/academy/core"
)

const (
	thumbnailWidth  = 1280
	thumbnailHeight = 720
	thumbnailsDir   = "thumbnails"
	jpegQuality     = 85

	// URLPrefix is where the media directory is served.
	URLPrefix = "/media"
)

var ErrInvalidImage = errors.New("unsupported or corrupt image")

// Store persists uploaded images below a root directory.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// SaveThumbnail decodes src, center-crops it to 16:9 and stores it as JPEG.
// It returns the public path of the stored file.
func (s *Store) SaveThumbnail(src io.Reader) (string, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return "", core.NewValidationError(ErrInvalidImage, core.FieldError{Field: "thumbnail", Error: ErrInvalidImage.Error()})
	}
	thumb := imaging.Fill(img, thumbnailWidth, thumbnailHeight, imaging.Center, imaging.Lanczos)

	rel := path.Join(thumbnailsDir, time.Now().UTC().Format("200601"), uuid.New().String()+".jpg")
	fp := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return "", errors.Wrap(err, "creating media directory")
	}
	if err := imaging.Save(thumb, fp, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", errors.Wrap(err, "saving thumbnail")
	}
	return URLPrefix + "/" + rel, nil
}

// Delete removes a file previously returned by SaveThumbnail; unknown paths are ignored.
func (s *Store) Delete(publicPath string) error {
	if !strings.HasPrefix(publicPath, URLPrefix+"/") {
		return nil
	}
	rel := path.Clean(strings.TrimPrefix(publicPath, URLPrefix+"/"))
	if strings.HasPrefix(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting media file")
	}
	return nil
}
