package mediaservice

import (
	"context"
	"encoding/base64"
	"errors"
)

var (
	ErrEmptyImage   = errors.New("image has no data")
	ErrEmptyAssetID = errors.New("asset id must be provided")
)

// Image is a locally received file waiting to be hosted.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// DataURI renders the image as a base64 data URI.
func (i Image) DataURI() string {
	ct := i.ContentType
	if ct == "" {
		ct = "image/jpeg"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Asset is a hosted image.
type Asset struct {
	URL string `json:"url"`
	ID  string `json:"imageId"`
}

// Store hosts images and removes them by id.
type Store interface {
	Upload(ctx context.Context, img Image) (Asset, error)
	Destroy(ctx context.Context, id string) error
}
