package service

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/postpilot/internal/models"
	"github.com/maheshrc27/postpilot/internal/queue"
	"github.com/maheshrc27/postpilot/internal/repository"
	"github.com/maheshrc27/postpilot/internal/transfer"
)

// ErrValidation marks submission-time rejections: the request never
// produces a post row or a job.
var ErrValidation = errors.New("validation failed")

const scheduledTimeLayout = "2006-01-02T15:04"

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Post, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.Post, []*transfer.TargetDetail, error)
	Remove(ctx context.Context, userID, postID int64) error
}

type Enqueuer interface {
	EnqueueNow(payload queue.PublishPayload) error
	EnqueueAt(payload queue.PublishPayload, when time.Time) error
}

type postService struct {
	db *sql.DB
	pr repository.PostRepository
	pt repository.PostTargetRepository
	ac repository.SocialAccountRepository
	ma repository.MediaAssetRepository
	pm repository.PostMediaRepository
	r2 *R2Service
	q  Enqueuer
}

func NewPostService(
	db *sql.DB,
	pr repository.PostRepository,
	pt repository.PostTargetRepository,
	ac repository.SocialAccountRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository,
	r2 *R2Service,
	q Enqueuer) PostService {
	return &postService{
		db: db,
		pr: pr,
		pt: pt,
		ac: ac,
		ma: ma,
		pm: pm,
		r2: r2,
		q:  q,
	}
}

// CreatePost validates the submission, atomically creates the post and
// one target per account, uploads inline media, and enqueues one publish
// job per target. No job exists unless the whole creation committed.
func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, error) {
	if pc == nil {
		return 0, fmt.Errorf("%w: missing post data", ErrValidation)
	}
	if pc.Content == "" && len(pc.Media) == 0 {
		return 0, fmt.Errorf("%w: post needs content or media", ErrValidation)
	}
	if len(pc.AccountIDs) == 0 {
		return 0, fmt.Errorf("%w: no social accounts selected", ErrValidation)
	}

	scheduledTime, err := parseScheduledTime(pc.ScheduledTime)
	if err != nil {
		return 0, err
	}

	// Ownership is checked before anything is written.
	for _, accountID := range pc.AccountIDs {
		exists, err := s.ac.CheckByUserID(ctx, accountID, userID)
		if err != nil {
			return 0, fmt.Errorf("checking social account %d: %w", accountID, err)
		}
		if !exists {
			return 0, fmt.Errorf("%w: social account %d does not belong to this user", ErrValidation, accountID)
		}
	}

	mediaRefs, uploads, err := s.resolveMedia(ctx, userID, pc.Media)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:        userID,
		Content:       pc.Content,
		ScheduledTime: scheduledTime,
		Status:        models.PostStatusScheduled,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, fmt.Errorf("error creating post: %w", err)
	}

	targetIDs := make(map[int64]int64, len(pc.AccountIDs))
	for _, accountID := range pc.AccountIDs {
		targetID, terr := s.pt.Create(ctx, tx, &models.PostTarget{PostID: postID, AccountID: accountID})
		if terr != nil {
			err = fmt.Errorf("error creating target for account %d: %w", accountID, terr)
			return 0, err
		}
		targetIDs[accountID] = targetID
	}

	for i, upload := range uploads {
		assetID, merr := s.ma.Create(ctx, tx, upload)
		if merr != nil {
			err = fmt.Errorf("error saving media asset: %w", merr)
			return 0, err
		}
		if merr := s.pm.Create(ctx, tx, &models.PostMedia{PostID: postID, AssetID: assetID, DisplayOrder: i}); merr != nil {
			err = fmt.Errorf("error saving post media: %w", merr)
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	for _, accountID := range pc.AccountIDs {
		payload := queue.PublishPayload{
			PostID:          postID,
			UserID:          userID,
			TargetID:        targetIDs[accountID],
			SocialAccountID: accountID,
			Content:         pc.Content,
			Media:           mediaRefs,
		}

		var qerr error
		if scheduledTime != nil {
			qerr = s.q.EnqueueAt(payload, *scheduledTime)
		} else {
			qerr = s.q.EnqueueNow(payload)
		}
		if qerr != nil {
			slog.Error("failed to enqueue publish job", "post_id", postID, "account_id", accountID, "error", qerr)
			return 0, fmt.Errorf("error scheduling post: %w", qerr)
		}
	}

	return postID, nil
}

func parseScheduledTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(scheduledTimeLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid scheduled time format: %v", ErrValidation, err)
	}
	return &t, nil
}

// resolveMedia turns the submission's media into URL references the
// adapters can consume: URLs pass through, inline bytes are validated
// and uploaded to object storage.
func (s *postService) resolveMedia(ctx context.Context, userID int64, media []transfer.MediaReference) ([]transfer.MediaReference, []*models.MediaAsset, error) {
	refs := make([]transfer.MediaReference, 0, len(media))
	var uploads []*models.MediaAsset

	for _, m := range media {
		if !m.IsInline() {
			if m.URL == "" {
				return nil, nil, fmt.Errorf("%w: media reference has neither url nor data", ErrValidation)
			}
			refs = append(refs, transfer.MediaReference{URL: m.URL})
			continue
		}

		data, err := base64.StdEncoding.DecodeString(m.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid media encoding: %v", ErrValidation, err)
		}

		fileURL, asset, err := s.uploadInline(ctx, userID, data)
		if err != nil {
			return nil, nil, err
		}

		refs = append(refs, transfer.MediaReference{URL: fileURL})
		uploads = append(uploads, asset)
	}

	return refs, uploads, nil
}

var allowedMediaTypes = map[string]struct{}{
	"mp4": {}, "mov": {}, "jpg": {}, "jpeg": {}, "png": {},
}

func (s *postService) uploadInline(ctx context.Context, userID int64, data []byte) (string, *models.MediaAsset, error) {
	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return "", nil, fmt.Errorf("%w: unsupported media type", ErrValidation)
	}
	if _, ok := allowedMediaTypes[kind.Extension]; !ok {
		return "", nil, fmt.Errorf("%w: media type %s is not allowed", ErrValidation, kind.Extension)
	}

	key := fmt.Sprintf("%s.%s", nanoID(), kind.Extension)
	fileURL, err := s.r2.Upload(ctx, key, data, kind.MIME.Value)
	if err != nil {
		return "", nil, fmt.Errorf("error uploading media: %w", err)
	}

	return fileURL, &models.MediaAsset{
		UserID:   userID,
		FileName: key,
		FileType: kind.MIME.Value,
		FileSize: int64(len(data)),
		FileURL:  fileURL,
	}, nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.Post, []*transfer.TargetDetail, error) {
	isOwner, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !isOwner {
		return nil, nil, fmt.Errorf("%w: post doesn't exist", ErrValidation)
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil || post == nil {
		return nil, nil, fmt.Errorf("error getting post info: %w", err)
	}

	targets, err := s.pt.ListByPostID(ctx, postID)
	if err != nil {
		return nil, nil, err
	}

	details := make([]*transfer.TargetDetail, 0, len(targets))
	for _, t := range targets {
		detail := &transfer.TargetDetail{
			TargetID:       t.ID,
			AccountID:      t.AccountID,
			Status:         t.Status,
			PlatformPostID: t.PlatformPostID,
			ErrorMessage:   t.ErrorMessage,
		}
		if account, aerr := s.ac.GetByID(ctx, t.AccountID); aerr == nil && account != nil {
			detail.Platform = account.Platform
		}
		details = append(details, detail)
	}

	return post, details, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.Post, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	return posts, nil
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	isOwner, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !isOwner {
		return fmt.Errorf("%w: post doesn't exist", ErrValidation)
	}

	if err := s.pr.Remove(ctx, postID); err != nil {
		return fmt.Errorf("error removing post: %w", err)
	}
	return nil
}
