package blogservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/mediaservice"
)

type mockMedia struct {
	mock.Mock
}

func (m *mockMedia) Upload(ctx context.Context, img mediaservice.Image) (mediaservice.Asset, error) {
	args := m.Called(img)
	return args.Get(0).(mediaservice.Asset), args.Error(1)
}

func (m *mockMedia) Destroy(ctx context.Context, id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func imageBlock(url, id string, pending bool) Block {
	f := &ImageFile{URL: url, ImageID: id}
	if pending {
		f.Image = []byte("true")
	}
	return Block{Type: "image", Data: BlockData{File: f, Fields: map[string]any{"caption": ""}}}
}

func TestOrphanedImages(t *testing.T) {
	old := &Content{Blocks: []Block{
		imageBlock("https://cdn/a", "a", false),
		{Type: "paragraph", Data: BlockData{Fields: map[string]any{"text": "x"}}},
		imageBlock("https://cdn/b", "b", false),
		imageBlock("https://cdn/c", "c", false),
	}}
	next := &Content{Blocks: []Block{imageBlock("https://cdn/c", "c", false)}}

	got := orphanedImages(old, next, []ExistingImage{{URL: "https://cdn/a"}})
	assert.Equal(t, []string{"b"}, got)

	assert.Nil(t, orphanedImages(nil, next, nil))
}

func TestCleanerDestroyLogsFailures(t *testing.T) {
	media := new(mockMedia)
	media.On("Destroy", "a").Return(nil).Once()
	media.On("Destroy", "b").Return(errors.New("provider down")).Once()

	c := &cleaner{store: media, logger: testLogger()}
	c.destroy(context.Background(), cleanupDelete, []string{"a", "b", "a", ""})

	media.AssertExpectations(t)
	media.AssertNumberOfCalls(t, "Destroy", 2)
}

func TestUploadContentImages(t *testing.T) {
	media := new(mockMedia)
	s := &BlogService{media: media, cleaner: &cleaner{store: media, logger: testLogger()}, logger: testLogger()}

	first := mediaservice.Image{Data: []byte("1")}
	second := mediaservice.Image{Data: []byte("2")}
	media.On("Upload", first).Return(mediaservice.Asset{URL: "https://cdn/1", ID: "1"}, nil).Once()
	media.On("Upload", second).Return(mediaservice.Asset{URL: "https://cdn/2", ID: "2"}, nil).Once()

	c := &Content{Blocks: []Block{
		imageBlock("blob:x", "", true),
		imageBlock("https://cdn/old", "old", false),
		{Type: "paragraph", Data: BlockData{Fields: map[string]any{"text": "x"}}},
		imageBlock("blob:y", "", true),
		imageBlock("blob:z", "", true),
	}}

	ids, err := s.uploadContentImages(context.Background(), c, []mediaservice.Image{first, second}, "Error uploading images")
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, ids)
	assert.Equal(t, "https://cdn/1", c.Blocks[0].Data.File.URL)
	assert.False(t, c.Blocks[0].Data.File.Pending())
	assert.Equal(t, "old", c.Blocks[1].Data.File.ImageID)
	assert.Equal(t, "2", c.Blocks[3].Data.File.ImageID)
	// no file left for the last block
	assert.True(t, c.Blocks[4].Data.File.Pending())
	media.AssertExpectations(t)
}

func TestUploadContentImagesRollsBack(t *testing.T) {
	media := new(mockMedia)
	s := &BlogService{media: media, cleaner: &cleaner{store: media, logger: testLogger()}, logger: testLogger()}

	first := mediaservice.Image{Data: []byte("1")}
	second := mediaservice.Image{Data: []byte("2")}
	media.On("Upload", first).Return(mediaservice.Asset{URL: "https://cdn/1", ID: "1"}, nil).Once()
	media.On("Upload", second).Return(mediaservice.Asset{}, errors.New("quota")).Once()
	media.On("Destroy", "1").Return(nil).Once()

	c := &Content{Blocks: []Block{imageBlock("blob:x", "", true), imageBlock("blob:y", "", true)}}

	_, err := s.uploadContentImages(context.Background(), c, []mediaservice.Image{first, second}, "Error uploading images")
	assert.ErrorIs(t, err, common.ErrUploadFailed)
	assert.Equal(t, "Error uploading images", common.Message(err, ""))
	media.AssertExpectations(t)
}
