// Package photo validates project photos and builds their thumbnails.
package photo

import (
	"bytes"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/disintegration/imaging"
)

const ThumbnailWidth = 200

var (
	ErrEmpty       = errors.New("image is empty")
	ErrTooLarge    = errors.New("image exceeds the upload size limit")
	ErrUnsupported = errors.New("image must be jpeg or png")
)

var allowed = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Validate sniffs the content type and enforces the size limit. It returns
// the detected content type.
func Validate(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", ErrTooLarge
	}
	ct := http.DetectContentType(data)
	if !allowed[ct] {
		return "", ErrUnsupported
	}
	return ct, nil
}

// Thumbnail resizes to ThumbnailWidth keeping aspect ratio and encodes as JPEG.
func Thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	thumb := imaging.Resize(img, ThumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ThumbnailKey places the thumbnail next to the original under thumbnails/.
func ThumbnailKey(objectKey string) string {
	dir := path.Dir(objectKey)
	name := strings.TrimSuffix(path.Base(objectKey), path.Ext(objectKey)) + ".jpg"
	return path.Join(dir, "thumbnails", name)
}
