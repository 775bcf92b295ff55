package blogservice

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/sushihentaime/blogsphere/internal/mediaservice"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Blog struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	BlogID      string             `json:"blogId" bson:"blogId"`
	Title       string             `json:"title" bson:"title"`
	Description string             `json:"description" bson:"description"`
	CreatorID   primitive.ObjectID `json:"-" bson:"creator"`
	// Creator is only set on reads that join the users collection.
	Creator    *Creator             `json:"creator,omitempty" bson:"author,omitempty"`
	Image      string               `json:"image" bson:"image"`
	ImageID    string               `json:"imageId" bson:"imageId"`
	Content    Content              `json:"content" bson:"content"`
	Tag        []string             `json:"tag" bson:"tag"`
	Draft      bool                 `json:"draft" bson:"draft"`
	LikedBy    []primitive.ObjectID `json:"likedBy" bson:"likedBy"`
	SavedBy    []primitive.ObjectID `json:"savedBy" bson:"savedBy"`
	CommentIDs []primitive.ObjectID `json:"-" bson:"comments"`
	Comments   []*Comment           `json:"comments,omitempty" bson:"-"`
	CreatedAt  time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt" bson:"updatedAt"`
	Version    int                  `json:"-" bson:"version"`
}

type Creator struct {
	ID         primitive.ObjectID `json:"_id" bson:"_id"`
	Name       string             `json:"name" bson:"name"`
	Username   string             `json:"username" bson:"username"`
	Email      string             `json:"email,omitempty" bson:"email,omitempty"`
	ProfilePic string             `json:"profilePic" bson:"profilePic"`
}

// Content is an EditorJS document.
type Content struct {
	Time    int64   `json:"time,omitempty" bson:"time,omitempty"`
	Blocks  []Block `json:"blocks" bson:"blocks"`
	Version string  `json:"version,omitempty" bson:"version,omitempty"`
}

type Block struct {
	ID   string    `json:"id,omitempty" bson:"id,omitempty"`
	Type string    `json:"type" bson:"type"`
	Data BlockData `json:"data" bson:"data"`
}

// BlockData keeps the free-form fields of a block as they came in. Only the
// image reference of image blocks is typed.
type BlockData struct {
	File   *ImageFile     `bson:"file,omitempty"`
	Fields map[string]any `bson:",inline"`
}

func (d BlockData) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(d.Fields)+1)
	for k, v := range d.Fields {
		m[k] = v
	}
	if d.File != nil {
		m["file"] = d.File
	}
	return json.Marshal(m)
}

func (d *BlockData) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	d.File = nil
	d.Fields = make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "file" {
			if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
				continue
			}
			var f ImageFile
			if err := json.Unmarshal(v, &f); err != nil {
				return err
			}
			d.File = &f
			continue
		}

		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		d.Fields[k] = val
	}

	return nil
}

type ImageFile struct {
	URL     string `json:"url,omitempty" bson:"url,omitempty"`
	ImageID string `json:"imageId,omitempty" bson:"imageId,omitempty"`
	// Image marks a block whose picture still has to be uploaded. It is never stored.
	Image json.RawMessage `json:"image,omitempty" bson:"-"`
}

// Pending reports whether the block is waiting for one of the uploaded files.
func (f *ImageFile) Pending() bool {
	if f == nil {
		return false
	}
	switch string(bytes.TrimSpace(f.Image)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}

type ExistingImage struct {
	URL string `json:"url"`
}

// RawPayload is a create or update request as it arrives from the multipart form.
type RawPayload struct {
	Title          string
	Description    string
	Content        string
	Tag            string
	Draft          string
	ExistingImages string
	Cover          *mediaservice.Image
	Images         []mediaservice.Image
}

type Payload struct {
	Title          string
	Description    string
	Content        *Content
	Tags           []string
	Draft          bool
	Cover          *mediaservice.Image
	Images         []mediaservice.Image
	ExistingImages []ExistingImage
}

type BlogPage struct {
	Blogs     []Blog `json:"blogs"`
	BlogCount int64  `json:"blogCount"`
	HasMore   bool   `json:"hasMoreBlogs"`
}

type Engagement struct {
	Added bool
	Blog  *Blog
}

type BlogService struct {
	m       *BlogModel
	media   mediaservice.Store
	cleaner *cleaner
	logger  *slog.Logger
	now     func() time.Time
}
