package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/campusconnect/campus/internal/audit"
	"github.com/campusconnect/campus/internal/domain"
	"github.com/campusconnect/campus/internal/repository"
	"github.com/campusconnect/campus/pkg/log"
	"github.com/campusconnect/campus/pkg/pubsub"
)

type feedServiceImpl struct {
	threads   repository.ThreadRepository
	posts     repository.PostRepository
	comments  repository.CommentRepository
	publisher pubsub.Publisher
}

// NewFeedService creates a new feed service.
func NewFeedService(
	threads repository.ThreadRepository,
	posts repository.PostRepository,
	comments repository.CommentRepository,
	publisher pubsub.Publisher,
) FeedService {
	return &feedServiceImpl{
		threads:   threads,
		posts:     posts,
		comments:  comments,
		publisher: publisher,
	}
}

func (s *feedServiceImpl) SeedThreads(ctx context.Context, titles []string) error {
	l := log.Ctx(ctx)

	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		thread, created, err := s.threads.EnsureTitle(ctx, title)
		if err != nil {
			return err
		}
		if created {
			l.Info().Str(log.FieldThreadID, thread.ID).Str("title", title).Msg("seeded thread")
		}
	}
	return nil
}

func (s *feedServiceImpl) ListThreads(ctx context.Context) ([]*domain.Thread, error) {
	return s.threads.List(ctx)
}

func (s *feedServiceImpl) ListPosts(ctx context.Context, threadID *string) ([]*domain.Post, error) {
	return s.posts.List(ctx, threadID)
}

func (s *feedServiceImpl) CreatePost(ctx context.Context, authorID string, req *domain.CreatePostRequest) (*domain.Post, error) {
	l := log.Ctx(ctx)

	if err := checkContent(req.Content); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ThreadID) == "" {
		return nil, ErrThreadRequired
	}
	if _, err := s.threads.GetByID(ctx, req.ThreadID); err != nil {
		return nil, err
	}

	post := &domain.Post{
		AuthorID: authorID,
		ThreadID: req.ThreadID,
		Content:  req.Content,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		l.Error().Err(err).Str(log.FieldThreadID, req.ThreadID).Msg("failed to create post")
		return nil, err
	}

	event, err := pubsub.NewEvent(pubsub.EventInsert, post.ThreadID, pubsub.PostChangePayload{
		ID:       post.ID,
		ThreadID: post.ThreadID,
		AuthorID: post.AuthorID,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, pubsub.ChannelPosts, event)
	}
	if err != nil {
		l.Warn().Err(err).Str(log.FieldPostID, post.ID).Msg("failed to publish post insert")
	}

	audit.LogTarget(ctx, audit.ActionCreatePost, authorID, post.ID, "post created")
	return post, nil
}

func (s *feedServiceImpl) ListComments(ctx context.Context, postID string) ([]*domain.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListByPost(ctx, postID)
}

func (s *feedServiceImpl) CreateComment(ctx context.Context, authorID, postID string, req *domain.CreateCommentRequest) (*domain.Comment, error) {
	l := log.Ctx(ctx)

	if err := checkContent(req.Content); err != nil {
		return nil, err
	}
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		PostID:   postID,
		AuthorID: authorID,
		Content:  req.Content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		l.Error().Err(err).Str(log.FieldPostID, postID).Msg("failed to create comment")
		return nil, err
	}

	audit.LogTarget(ctx, audit.ActionCreateComment, authorID, comment.ID, "comment created")
	return comment, nil
}

func checkContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}
