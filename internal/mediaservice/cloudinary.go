package mediaservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type cloudinaryAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Cloudinary stores images in a Cloudinary folder. Storage ids are public ids.
type Cloudinary struct {
	api    cloudinaryAPI
	folder string
}

func NewCloudinary(cloudName, apiKey, apiSecret, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("could not configure cloudinary: %w", err)
	}

	return &Cloudinary{api: &cld.Upload, folder: folder}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, img Image) (Asset, error) {
	if len(img.Data) == 0 {
		return Asset{}, ErrEmptyImage
	}

	res, err := c.api.Upload(ctx, img.DataURI(), uploader.UploadParams{Folder: c.folder})
	if err != nil {
		return Asset{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return Asset{}, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}

	return Asset{URL: res.SecureURL, ID: res.PublicID}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyAssetID
	}

	res, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: id})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return fmt.Errorf("cloudinary destroy: %s", res.Error.Message)
	}
	// "not found" means someone else already removed it
	if res.Result != "ok" && res.Result != "not found" {
		return errors.New("cloudinary destroy: unexpected result " + res.Result)
	}

	return nil
}
