// Package storage uploads proof-of-payment files to object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary stores files in a Cloudinary account configured by CLOUDINARY_URL.
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinary(rawURL string) (*Cloudinary, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("CLOUDINARY_URL belum diset")
	}
	cld, err := cloudinary.NewFromURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &Cloudinary{cld: cld}, nil
}

// Upload stores r under folder and returns its public https URL.
func (c *Cloudinary) Upload(ctx context.Context, folder, filename string, r io.Reader) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		Folder:       folder,
		PublicID:     publicID(filename),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("upload cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload cloudinary: %s", res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("upload cloudinary: url kosong")
	}
	return res.SecureURL, nil
}

func publicID(filename string) string {
	name := strings.TrimSpace(filename)
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(name)
}
