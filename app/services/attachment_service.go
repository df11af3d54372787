package services

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gosimple/slug"
	"github.com/spf13/afero"
)

// AttachmentPrefix is the URL path under which stored attachments are served.
const AttachmentPrefix = "/attachments/"

// AttachmentService stores task images and serves them back.
type AttachmentService struct {
	fs        afero.Fs
	publicURL string
	maxBytes  int64
	now       func() time.Time
}

// NewAttachmentService creates a new instance of AttachmentService.
// publicURL is the externally visible base URL of the server.
func NewAttachmentService(fs afero.Fs, publicURL string, maxBytes int64) *AttachmentService {
	return &AttachmentService{
		fs:        fs,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
		now:       time.Now,
	}
}

// Save stores an image for ownerID and returns its public URL.
// The file lands at {owner}/{unixMillis}-{name}{ext}; the owner ID is used unchanged.
func (s *AttachmentService) Save(ownerID, filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: larger than %d bytes", ErrInvalidAttachment, s.maxBytes)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: unsupported type %s", ErrInvalidAttachment, mt.String())
	}

	if !isPathSegment(ownerID) {
		return "", fmt.Errorf("%w: owner %q is not a valid directory name", ErrInvalidAttachment, ownerID)
	}
	name := fmt.Sprintf("%d-%s", s.now().UnixMilli(), attachmentName(filename, mt.Extension()))

	if err := s.fs.MkdirAll("/"+ownerID, 0o755); err != nil {
		return "", fmt.Errorf("create attachment dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, path.Join("/", ownerID, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return s.publicURL + AttachmentPrefix + url.PathEscape(ownerID) + "/" + name, nil
}

// isPathSegment reports whether id can be used as one directory name as-is.
func isPathSegment(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\\x00")
}

// Handler serves stored attachments. It expects AttachmentPrefix to be stripped.
func (s *AttachmentService) Handler() http.Handler {
	return http.FileServer(afero.NewHttpFs(s.fs).Dir("/"))
}

// attachmentName slugs the client file name and uses the extension of the detected type.
func attachmentName(filename, ext string) string {
	base := filepath.Base(filename)
	name := slug.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if name == "" {
		name = "attachment"
	}
	return name + ext
}
