package blogservice

import (
	"encoding/json"
	"strings"

	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/mediaservice"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 500
	maxBlocks            = 50
	maxTags              = 10
	maxImageSize         = 5 << 20
	maxCommentLength     = 1000
	maxPageLimit         = 100
	maxPage              = 1_000_000
)

var errInvalidJSON = common.NewError(common.ErrBadInput, "Invalid JSON data in request", nil)

// ParsePayload decodes the JSON encoded form fields. It fails before any
// field validation when one of them is malformed.
func ParsePayload(raw *RawPayload) (*Payload, error) {
	p := &Payload{
		Title:       raw.Title,
		Description: raw.Description,
		Draft:       raw.Draft == "true",
		Cover:       raw.Cover,
		Images:      raw.Images,
	}

	if strings.TrimSpace(raw.Content) != "" {
		var c Content
		if err := json.Unmarshal([]byte(raw.Content), &c); err != nil {
			return nil, common.NewError(common.ErrBadInput, errInvalidJSON.Message, err)
		}
		p.Content = &c
	}

	if strings.TrimSpace(raw.Tag) != "" {
		if err := json.Unmarshal([]byte(raw.Tag), &p.Tags); err != nil {
			return nil, common.NewError(common.ErrBadInput, errInvalidJSON.Message, err)
		}
	}

	if strings.TrimSpace(raw.ExistingImages) != "" {
		if err := json.Unmarshal([]byte(raw.ExistingImages), &p.ExistingImages); err != nil {
			return nil, common.NewError(common.ErrBadInput, errInvalidJSON.Message, err)
		}
	}

	return p, nil
}

// validatePayload checks the rules in order. The first failure is the one
// reported to the caller.
func validatePayload(v *common.Validator, p *Payload, requireCover bool) {
	title := strings.TrimSpace(p.Title)
	v.Check(title != "", "title", "Please enter the title")
	v.Check(v.CheckStringLength(title, 0, maxTitleLength), "title", "Title should be less than 200 characters")

	description := strings.TrimSpace(p.Description)
	v.Check(description != "", "description", "Please enter the description")
	v.Check(v.CheckStringLength(description, 0, maxDescriptionLength), "description", "Description should be less than 500 characters")

	v.Check(p.Content != nil && len(p.Content.Blocks) > 0, "content", "Please enter the content")
	v.Check(p.Content == nil || len(p.Content.Blocks) <= maxBlocks, "content", "Blog content is too long (maximum 50 blocks allowed)")

	if requireCover {
		v.Check(p.Cover != nil, "image", "Please select the cover image")
	}
	v.Check(p.Cover == nil || imageSize(*p.Cover) <= maxImageSize, "image", "Cover image size should be less than 5MB")

	for _, img := range p.Images {
		v.Check(imageSize(img) <= maxImageSize, "images", "Content images should be less than 5MB each")
	}

	v.Check(len(p.Tags) > 0, "tag", "Please add at least one tag")
	v.Check(len(p.Tags) <= maxTags, "tag", "Maximum 10 tags allowed")
}

func imageSize(img mediaservice.Image) int64 {
	if img.Size > 0 {
		return img.Size
	}
	return int64(len(img.Data))
}

func validateSearch(v *common.Validator, q string) {
	v.Check(strings.TrimSpace(q) != "", "q", "Please enter a search term")
}

func validatePage(v *common.Validator, page, limit int) {
	v.Check(page >= 1 && page <= maxPage, "pageNo", "must be between 1 and 1000000")
	v.Check(limit >= 1 && limit <= maxPageLimit, "limit", "must be between 1 and 100")
}

func validateComment(v *common.Validator, text string) {
	text = strings.TrimSpace(text)
	v.Check(text != "", "comment", "Please enter the comment")
	v.Check(v.CheckStringLength(text, 0, maxCommentLength), "comment", "Comment should be less than 1000 characters")
}

// normalizeTags trims and lowercases tags, dropping empty and repeated entries.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
