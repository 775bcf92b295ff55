package blogservice

import (
	"context"

	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/mediaservice"
)

// uploadContentImages walks the blocks in order and hands the next file in
// images to every image block that is waiting for one. Uploads run one after
// the other. On failure the images uploaded by this call are destroyed and
// the content must be discarded.
func (s *BlogService) uploadContentImages(ctx context.Context, c *Content, images []mediaservice.Image, message string) ([]string, error) {
	var uploaded []string

	next := 0
	for i := range c.Blocks {
		if next >= len(images) {
			break
		}

		b := &c.Blocks[i]
		if b.Type != "image" || !b.Data.File.Pending() {
			continue
		}

		asset, err := s.media.Upload(ctx, images[next])
		if err != nil {
			s.cleaner.destroy(ctx, cleanupRollback, uploaded)
			return nil, common.NewError(common.ErrUploadFailed, message, err)
		}

		b.Data.File.URL = asset.URL
		b.Data.File.ImageID = asset.ID
		b.Data.File.Image = nil
		uploaded = append(uploaded, asset.ID)
		next++
	}

	return uploaded, nil
}
