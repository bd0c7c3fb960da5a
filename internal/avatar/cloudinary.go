package avatar

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader pushes user avatars to Cloudinary and hands back the hosted
// URL. Input is a data URL straight from the profile form.
type Uploader struct {
	cld *cloudinary.Cloudinary
}

func NewUploader(cloudName, apiKey, apiSecret string) (*Uploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	return &Uploader{cld: cld}, nil
}

func (u *Uploader) Upload(ctx context.Context, dataURL string) (string, error) {
	if !strings.HasPrefix(dataURL, "data:image/") {
		return "", errors.New("not an image data url")
	}
	resp, err := u.cld.Upload.Upload(ctx, dataURL, uploader.UploadParams{
		Folder:         "user_avatars",
		Overwrite:      api.Bool(true),
		ResourceType:   "image",
		Transformation: "w_300,h_300,c_fill",
	})
	if err != nil {
		return "", err
	}
	if resp.SecureURL == "" {
		return "", errors.New("upload returned no url")
	}
	return resp.SecureURL, nil
}
