package service

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"tradepost/internal/config"
	"tradepost/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultUploadDir      = "public/uploads"
	DefaultMaxUploadMB    = 5
	ListingImageMaxSize   = 2048
	ListingJPEGQuality    = 82
	ListingWebPQuality    = 70
)

// UploadImageInput carries a raw uploaded file.
type UploadImageInput struct {
	UserID      uint
	Filename    string
	ContentType string
	Content     []byte
}

// ImageService normalizes listing images: validates, downscales, and stores
// a JPEG with a WebP sibling under the public upload directory.
type ImageService struct {
	uploadDir      string
	maxUploadBytes int64
}

// NewImageService returns an ImageService configured from cfg.
func NewImageService(cfg *config.Config) *ImageService {
	uploadDir := DefaultUploadDir
	maxUploadMB := DefaultMaxUploadMB
	if cfg != nil {
		if cfg.UploadDir != "" {
			uploadDir = cfg.UploadDir
		}
		if cfg.MaxUploadMB > 0 {
			maxUploadMB = cfg.MaxUploadMB
		}
	}
	return &ImageService{
		uploadDir:      uploadDir,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
	}
}

// Store validates and persists an uploaded image, returning the public URL
// path of the JPEG variant.
func (s *ImageService) Store(in UploadImageInput) (string, error) {
	if len(in.Content) == 0 {
		return "", models.NewValidationError("No file uploaded")
	}
	if int64(len(in.Content)) > s.maxUploadBytes {
		return "", models.NewValidationError(fmt.Sprintf("File too large (max %dMB)", s.maxUploadBytes/(1024*1024)))
	}

	detectedType := http.DetectContentType(in.Content)
	if !isAllowedImageMIME(detectedType) {
		return "", models.NewValidationError("Invalid image type")
	}
	if provided := normalizeContentType(in.ContentType); strings.HasPrefix(provided, "image/") &&
		!isMatchingContentType(provided, detectedType) {
		return "", models.NewValidationError("Image content type mismatch")
	}

	decoded, format, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return "", models.NewValidationError("Invalid image file")
	}
	if !isSupportedDecodedFormat(format) {
		return "", models.NewValidationError("Unsupported image format")
	}

	master := resizeToFit(decoded, ListingImageMaxSize, ListingImageMaxSize)

	jpegBytes, err := encodeJPEG(master, ListingJPEGQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	webpBytes, err := encodeWebP(master, ListingWebPQuality)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	name := imageHash(in.UserID, in.Content)[:16]
	jpegPath := filepath.Join(s.uploadDir, name+".jpg")
	webpPath := filepath.Join(s.uploadDir, name+".webp")

	if err := writeBytesToFile(jpegPath, jpegBytes); err != nil {
		return "", models.NewInternalError(err)
	}
	if err := writeBytesToFile(webpPath, webpBytes); err != nil {
		_ = os.Remove(jpegPath)
		return "", models.NewInternalError(err)
	}

	return "/uploads/" + name + ".jpg", nil
}

// Remove deletes the stored variants for a previously returned image URL.
// URLs outside the upload namespace are ignored.
func (s *ImageService) Remove(imageURL string) {
	name := strings.TrimPrefix(imageURL, "/uploads/")
	if name == imageURL || name == "" {
		return
	}
	name = filepath.Base(name)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	_ = os.Remove(filepath.Join(s.uploadDir, base+".jpg"))
	_ = os.Remove(filepath.Join(s.uploadDir, base+".webp"))
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch normalizeContentType(contentType) {
	case "image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func isMatchingContentType(provided, detected string) bool {
	p := normalizeContentType(provided)
	d := normalizeContentType(detected)
	if p == d {
		return true
	}
	return (p == "image/jpg" && d == "image/jpeg") || (p == "image/jpeg" && d == "image/jpg")
}

func isSupportedDecodedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpeg", "jpg", "png", "gif", "webp":
		return true
	default:
		return false
	}
}

func imageHash(userID uint, content []byte) string {
	h := sha256.New()
	_, _ = fmt.Fprintf(h, "%d:", userID)
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func writeBytesToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
