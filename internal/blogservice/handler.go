package blogservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/sushihentaime/blogsphere/internal/common"
	"github.com/sushihentaime/blogsphere/internal/mediaservice"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	dailyBlogLimit = 5
	updateCooldown = time.Hour
	slugAttempts   = 3
)

func NewBlogService(db *mongo.Database, media mediaservice.Store, logger *slog.Logger) *BlogService {
	return &BlogService{
		m:       newBlogModel(db),
		media:   media,
		cleaner: &cleaner{store: media, logger: logger},
		logger:  logger,
		now:     time.Now,
	}
}

// prepare decodes and validates a create or update request. Nothing has been
// read or written when it fails.
func prepare(raw *RawPayload, requireCover bool) (*Payload, error) {
	p, err := ParsePayload(raw)
	if err != nil {
		return nil, err
	}

	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.Tags = normalizeTags(p.Tags)

	v := common.NewValidator()
	validatePayload(v, p, requireCover)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	sanitizeContent(p.Content)
	return p, nil
}

// startOfDay returns local midnight of t.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CreateBlog validates the request, uploads its images and stores the blog.
// Uploaded images are destroyed again if the blog cannot be stored.
func (s *BlogService) CreateBlog(ctx context.Context, creatorID primitive.ObjectID, raw *RawPayload) (*Blog, error) {
	p, err := prepare(raw, true)
	if err != nil {
		return nil, err
	}

	ok, err := s.m.userExists(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.NewError(common.ErrRecordNotFound, "Creator not found", nil)
	}

	now := s.now()
	n, err := s.m.countCreatedSince(ctx, creatorID, startOfDay(now))
	if err != nil {
		return nil, err
	}
	if n >= dailyBlogLimit {
		return nil, common.NewError(common.ErrRateLimited, "Daily blog creation limit reached (5 blogs per day)", nil)
	}

	uploaded, err := s.uploadContentImages(ctx, p.Content, p.Images, "Error uploading content images")
	if err != nil {
		return nil, err
	}

	cover, err := s.media.Upload(ctx, *p.Cover)
	if err != nil {
		s.cleaner.destroy(ctx, cleanupRollback, uploaded)
		return nil, common.NewError(common.ErrUploadFailed, "Error uploading cover image", err)
	}
	uploaded = append(uploaded, cover.ID)

	blog := &Blog{
		Title:       p.Title,
		Description: p.Description,
		CreatorID:   creatorID,
		Image:       cover.URL,
		ImageID:     cover.ID,
		Content:     *p.Content,
		Tag:         p.Tags,
		Draft:       p.Draft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for attempt := 0; attempt < slugAttempts; attempt++ {
		blog.BlogID = newSlug(p.Title)
		err = s.m.insert(ctx, blog)
		if !errors.Is(err, errDuplicateSlug) {
			break
		}
	}
	if err == nil {
		if err = s.m.addToCreator(ctx, creatorID, blog.ID); err != nil {
			if rmErr := s.m.removeBlog(ctx, blog.ID); rmErr != nil {
				s.logger.Error("could not remove blog after failed create", slog.String("blog_id", blog.BlogID), slog.String("error", rmErr.Error()))
			}
		}
	}
	if err != nil {
		s.cleaner.destroy(ctx, cleanupRollback, uploaded)
		return nil, common.NewError(common.ErrPersistenceFailed, "Error saving blog to database", err)
	}

	s.logger.Info("blog created", slog.String("blog_id", blog.BlogID), slog.String("creator", creatorID.Hex()), slog.Bool("draft", blog.Draft))

	return blog, nil
}

// GetBlog returns the blog with the given slug, its creator and its full
// comment tree.
func (s *BlogService) GetBlog(ctx context.Context, slug string) (*Blog, error) {
	blog, err := s.m.first(ctx, newBlogQuery().where("blogId", slug))
	if err != nil {
		if errors.Is(err, common.ErrRecordNotFound) {
			return nil, common.NewError(common.ErrRecordNotFound, "Blog does not exist", err)
		}
		return nil, err
	}

	blog.Comments, err = assembleComments(ctx, s.m, blog.CommentIDs)
	if err != nil {
		return nil, fmt.Errorf("assemble comments: %w", err)
	}

	return blog, nil
}

func (s *BlogService) listPage(ctx context.Context, q *blogQuery) (*BlogPage, error) {
	blogs, total, err := s.m.list(ctx, q)
	if err != nil {
		return nil, err
	}
	return &BlogPage{Blogs: blogs, BlogCount: total, HasMore: q.hasMore(total)}, nil
}

func checkPage(page, limit int) error {
	v := common.NewValidator()
	validatePage(v, page, limit)
	if !v.Valid() {
		return v.ValidationError()
	}
	return nil
}

// ListBlogs returns published blogs, newest first.
func (s *BlogService) ListBlogs(ctx context.Context, page, limit int) (*BlogPage, error) {
	if err := checkPage(page, limit); err != nil {
		return nil, err
	}

	return s.listPage(ctx, newBlogQuery().published().page(page, limit))
}

// ListByTag returns published blogs carrying tag. A non-empty exclude hides
// the blog with that slug from both the page and the count.
func (s *BlogService) ListByTag(ctx context.Context, tag, exclude string, page, limit int) (*BlogPage, error) {
	if err := checkPage(page, limit); err != nil {
		return nil, err
	}

	q := newBlogQuery().published().where("tag", strings.ToLower(strings.TrimSpace(tag)))
	if exclude != "" {
		q.whereNot("blogId", exclude)
	}

	return s.listPage(ctx, q.page(page, limit))
}

// Search matches term case-insensitively against the title, description,
// tags and creator name or username of published blogs.
func (s *BlogService) Search(ctx context.Context, term string, page, limit int) (*BlogPage, error) {
	v := common.NewValidator()
	validateSearch(v, term)
	validatePage(v, page, limit)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	q := newBlogQuery().
		published().
		matchAny(strings.TrimSpace(term), "title", "description", "tag", authorField+".name", authorField+".username").
		page(page, limit)

	return s.listPage(ctx, q)
}

// BlogsByCreator returns the blogs of a user, newest first.
func (s *BlogService) BlogsByCreator(ctx context.Context, userID primitive.ObjectID, includeDrafts bool) ([]Blog, error) {
	q := newBlogQuery().where("creator", userID)
	if !includeDrafts {
		q.published()
	}

	blogs, _, err := s.m.list(ctx, q)
	return blogs, err
}

// cooldownMessage reports how long until an update is allowed again, in whole
// minutes rounded up.
func cooldownMessage(updatedAt, now time.Time) string {
	remaining := updatedAt.Add(updateCooldown).Sub(now)
	minutes := int(math.Ceil(remaining.Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("Please wait %d minutes before updating again", minutes)
}

// UpdateBlog replaces the editable fields of the blog with the given slug.
// Only its creator may update it, at most once per hour. Images no longer
// referenced are destroyed after the blog is stored.
func (s *BlogService) UpdateBlog(ctx context.Context, slug string, requesterID primitive.ObjectID, raw *RawPayload) (*Blog, error) {
	p, err := prepare(raw, false)
	if err != nil {
		return nil, err
	}

	blog, err := s.m.findOne(ctx, bson.M{"blogId": slug})
	if err != nil {
		if errors.Is(err, common.ErrRecordNotFound) {
			return nil, common.NewError(common.ErrRecordNotFound, "Blog does not exist", err)
		}
		return nil, err
	}

	if blog.CreatorID != requesterID {
		return nil, common.NewError(common.ErrForbidden, "You are not authorized to update this blog", nil)
	}

	now := s.now()
	if now.Before(blog.UpdatedAt.Add(updateCooldown)) {
		return nil, common.NewError(common.ErrRateLimited, cooldownMessage(blog.UpdatedAt, now), nil)
	}

	uploaded, err := s.uploadContentImages(ctx, p.Content, p.Images, "Error uploading images")
	if err != nil {
		return nil, err
	}

	old := *blog
	if p.Cover != nil {
		cover, err := s.media.Upload(ctx, *p.Cover)
		if err != nil {
			s.cleaner.destroy(ctx, cleanupRollback, uploaded)
			return nil, common.NewError(common.ErrUploadFailed, "Error updating main image", err)
		}
		uploaded = append(uploaded, cover.ID)
		blog.Image = cover.URL
		blog.ImageID = cover.ID
	}

	blog.Title = p.Title
	blog.Description = p.Description
	blog.Content = *p.Content
	blog.Tag = p.Tags
	blog.Draft = p.Draft
	blog.UpdatedAt = now

	if err := s.m.update(ctx, blog); err != nil {
		s.cleaner.destroy(ctx, cleanupRollback, uploaded)
		if errors.Is(err, common.ErrEditConflict) {
			return nil, common.NewError(common.ErrEditConflict, "The blog was changed by another request, please try again", err)
		}
		return nil, common.NewError(common.ErrPersistenceFailed, "Error saving blog updates", err)
	}

	orphans := orphanedImages(&old.Content, &blog.Content, p.ExistingImages)
	if p.Cover != nil && old.ImageID != "" {
		orphans = append(orphans, old.ImageID)
	}
	s.cleaner.destroy(ctx, cleanupOrphan, orphans)

	s.logger.Info("blog updated", slog.String("blog_id", blog.BlogID), slog.Int("orphans", len(orphans)))

	return s.reload(ctx, blog), nil
}

// reload returns the stored copy of b with its creator joined. b has already
// been written, so when the read fails b itself is returned.
func (s *BlogService) reload(ctx context.Context, b *Blog) *Blog {
	fresh, err := s.m.first(ctx, newBlogQuery().where("_id", b.ID))
	if err != nil {
		s.logger.Error("could not reload blog after update", slog.String("blog_id", b.BlogID), slog.String("error", err.Error()))
		return b
	}
	return fresh
}

// DeleteBlog removes a blog with everything that hangs off it. Only its
// creator may delete it. Image deletion failures do not fail the call.
func (s *BlogService) DeleteBlog(ctx context.Context, id, requesterID primitive.ObjectID) error {
	blog, err := s.m.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		if errors.Is(err, common.ErrRecordNotFound) {
			return common.NewError(common.ErrRecordNotFound, "Blog does not exist", err)
		}
		return err
	}

	if blog.CreatorID != requesterID {
		return common.NewError(common.ErrForbidden, "You are not authorized for this action", nil)
	}

	if err := s.m.deleteCascade(ctx, blog); err != nil {
		if errors.Is(err, common.ErrRecordNotFound) {
			return common.NewError(common.ErrRecordNotFound, "Blog does not exist", err)
		}
		return common.NewError(common.ErrPersistenceFailed, "Error deleting blog", err)
	}

	ids := append([]string{blog.ImageID}, contentImageIDs(&blog.Content)...)
	s.cleaner.destroy(ctx, cleanupDelete, ids)

	s.logger.Info("blog deleted", slog.String("blog_id", blog.BlogID), slog.Int("images", len(ids)))

	return nil
}
