package api

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/sendvault/internal/client/models"
	"github.com/dmitrijs2005/sendvault/internal/common"
)

// Seams for testing the AWS wiring without real credentials.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignUploadPart = func(pc *s3.PresignClient, ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignUploadPart(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// s3API is the subset of the S3 control plane the client drives. *s3.Client
// satisfies it; tests substitute a fake.
type s3API interface {
	CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	ListMultipartUploads(ctx context.Context, in *s3.ListMultipartUploadsInput, optFns ...func(*s3.Options)) (*s3.ListMultipartUploadsOutput, error)
	ListParts(ctx context.Context, in *s3.ListPartsInput, optFns ...func(*s3.Options)) (*s3.ListPartsOutput, error)
}

// S3Config configures the self-hosted backend (MinIO, R2, plain S3).
type S3Config struct {
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
	Bucket     string
	ChunkSize  int64
	SessionTTL time.Duration
	URLTTL     time.Duration
}

// s3session is the control-plane state for one multipart upload, keyed by
// the storage backend's upload ID so it can be rebuilt after a process
// restart from ListMultipartUploads + ListParts — S3 is authoritative.
type s3session struct {
	key         string
	uploadID    string
	filename    string
	fileSize    int64
	totalChunks int
	etags       map[int]string
	createdAt   time.Time
	expiresAt   time.Time
}

// S3Client implements Client straight against S3 multipart uploads:
// initiate → CreateMultipartUpload, getUploadUrl → presigned UploadPart,
// complete → CompleteMultipartUpload, cancel → AbortMultipartUpload,
// listActiveSessions → ListMultipartUploads.
type S3Client struct {
	cfg     S3Config
	client  s3API
	presign *s3.PresignClient

	mu       sync.Mutex
	sessions map[string]*s3session
}

func NewS3Client(ctx context.Context, cfg S3Config) (*S3Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100 << 20
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.URLTTL == 0 {
		cfg.URLTTL = time.Hour
	}

	return &S3Client{
		cfg:      cfg,
		client:   client,
		presign:  newS3PresignClient(client),
		sessions: make(map[string]*s3session),
	}, nil
}

// storageKey spreads objects by date, keeping the original extension so
// content type survives for previews.
func storageKey(filename string) string {
	d := time.Now()
	key := fmt.Sprintf("files/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
	if ext := filepath.Ext(filename); ext != "" {
		key += ext
	}
	return key
}

func (c *S3Client) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResponse, error) {
	key := storageKey(req.Filename)

	out, err := c.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(c.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(req.ContentType),
	})
	if err != nil {
		return nil, fmt.Errorf("create multipart upload: %w", err)
	}

	now := time.Now()
	totalChunks := int((req.FileSize + c.cfg.ChunkSize - 1) / c.cfg.ChunkSize)
	sess := &s3session{
		key:         key,
		uploadID:    aws.ToString(out.UploadId),
		filename:    req.Filename,
		fileSize:    req.FileSize,
		totalChunks: totalChunks,
		etags:       make(map[int]string),
		createdAt:   now,
		expiresAt:   now.Add(c.cfg.SessionTTL),
	}

	// The upload ID doubles as the session ID: it is the one identifier a
	// restarted client can still find on the backend.
	sessionID := sess.uploadID
	c.mu.Lock()
	c.sessions[sessionID] = sess
	c.mu.Unlock()

	return &InitiateResponse{
		SessionID:   sessionID,
		UploadID:    sess.uploadID,
		ChunkSize:   c.cfg.ChunkSize,
		TotalChunks: totalChunks,
		ExpiresAt:   sess.expiresAt,
	}, nil
}

// session returns the control-plane state for sessionID, rebuilding it from
// the backend when this process has no record of it (restart case).
func (c *S3Client) session(ctx context.Context, sessionID string) (*s3session, error) {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	if ok && time.Now().After(sess.expiresAt) {
		delete(c.sessions, sessionID)
		c.mu.Unlock()
		return nil, common.ErrSessionExpired
	}
	c.mu.Unlock()
	if ok {
		return sess, nil
	}
	return c.rebuildSession(ctx, sessionID)
}

// rebuildSession recovers an in-progress multipart upload that was started
// by a previous process: the backend's upload listing supplies the key and
// start time, ListParts the already-uploaded chunks.
func (c *S3Client) rebuildSession(ctx context.Context, uploadID string) (*s3session, error) {
	out, err := c.client.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{
		Bucket: aws.String(c.cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("list multipart uploads: %w", err)
	}

	for _, u := range out.Uploads {
		if aws.ToString(u.UploadId) != uploadID {
			continue
		}
		created := aws.ToTime(u.Initiated)
		sess := &s3session{
			key:       aws.ToString(u.Key),
			uploadID:  uploadID,
			filename:  filepath.Base(aws.ToString(u.Key)),
			etags:     make(map[int]string),
			createdAt: created,
			expiresAt: created.Add(c.cfg.SessionTTL),
		}
		if time.Now().After(sess.expiresAt) {
			return nil, common.ErrSessionExpired
		}
		if err := c.reconcileParts(ctx, sess); err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.sessions[uploadID] = sess
		c.mu.Unlock()
		return sess, nil
	}

	return nil, common.ErrSessionNotFound
}

func (c *S3Client) GetUploadURL(ctx context.Context, sessionID string, chunkIndex int) (*UploadURLResponse, error) {
	sess, err := c.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	_, done := sess.etags[chunkIndex]
	c.mu.Unlock()
	if done {
		return &UploadURLResponse{AlreadyUploaded: true}, nil
	}

	req, err := presignUploadPart(c.presign, ctx, &s3.UploadPartInput{
		Bucket:     aws.String(c.cfg.Bucket),
		Key:        aws.String(sess.key),
		UploadId:   aws.String(sess.uploadID),
		PartNumber: aws.Int32(int32(chunkIndex + 1)), // S3 parts are 1-based
	}, s3.WithPresignExpires(c.cfg.URLTTL))
	if err != nil {
		return nil, fmt.Errorf("presign part %d: %w", chunkIndex, err)
	}

	return &UploadURLResponse{UploadURL: req.URL}, nil
}

func (c *S3Client) CompleteChunk(ctx context.Context, sessionID string, chunkIndex int, integrityToken string) error {
	sess, err := c.session(ctx, sessionID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	sess.etags[chunkIndex] = integrityToken
	c.mu.Unlock()
	return nil
}

// reconcileParts fills gaps in the local ETag record from ListParts.
// Needed when the client restarted between uploading a chunk and reporting
// it; the storage backend's view wins.
func (c *S3Client) reconcileParts(ctx context.Context, sess *s3session) error {
	var marker *string
	for {
		out, err := c.client.ListParts(ctx, &s3.ListPartsInput{
			Bucket:           aws.String(c.cfg.Bucket),
			Key:              aws.String(sess.key),
			UploadId:         aws.String(sess.uploadID),
			PartNumberMarker: marker,
		})
		if err != nil {
			return fmt.Errorf("list parts: %w", err)
		}

		c.mu.Lock()
		for _, p := range out.Parts {
			idx := int(aws.ToInt32(p.PartNumber)) - 1
			if _, ok := sess.etags[idx]; !ok {
				sess.etags[idx] = aws.ToString(p.ETag)
			}
		}
		c.mu.Unlock()

		if !aws.ToBool(out.IsTruncated) {
			return nil
		}
		marker = out.NextPartNumberMarker
	}
}

func (c *S3Client) Complete(ctx context.Context, sessionID string, opts models.UploadOptions) (*models.CompletionResult, error) {
	sess, err := c.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	recorded := len(sess.etags)
	c.mu.Unlock()
	if recorded < sess.totalChunks {
		if err := c.reconcileParts(ctx, sess); err != nil {
			return nil, err
		}
	}

	// A rebuilt session has no chunk count of its own; by the time the
	// caller asks to finalize, the recorded parts are the full set.
	c.mu.Lock()
	if sess.totalChunks == 0 {
		sess.totalChunks = len(sess.etags)
	}
	c.mu.Unlock()

	c.mu.Lock()
	parts := make([]types.CompletedPart, 0, sess.totalChunks)
	for i := 0; i < sess.totalChunks; i++ {
		etag, ok := sess.etags[i]
		if !ok {
			c.mu.Unlock()
			return nil, fmt.Errorf("upload incomplete: %d/%d chunks", len(sess.etags), sess.totalChunks)
		}
		parts = append(parts, types.CompletedPart{
			PartNumber: aws.Int32(int32(i + 1)),
			ETag:       aws.String(etag),
		})
	}
	c.mu.Unlock()

	sort.Slice(parts, func(i, j int) bool {
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})

	_, err = c.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(c.cfg.Bucket),
		Key:             aws.String(sess.key),
		UploadId:        aws.String(sess.uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return nil, fmt.Errorf("complete multipart upload: %w", err)
	}

	retention := time.Duration(opts.ExpirationHours) * time.Hour
	getReq, err := presignGetObject(c.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.Bucket),
		Key:    aws.String(sess.key),
	}, s3.WithPresignExpires(retention))
	if err != nil {
		return nil, fmt.Errorf("presign download: %w", err)
	}

	code, err := common.MakeRandHexString(6)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()

	return &models.CompletionResult{
		FileID:        sess.key,
		RetrievalCode: code,
		RetrievalURL:  getReq.URL,
		ExpiresAt:     time.Now().Add(retention),
	}, nil
}

func (c *S3Client) Cancel(ctx context.Context, sessionID string) error {
	sess, err := c.session(ctx, sessionID)
	if err != nil {
		return err
	}

	_, err = c.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(c.cfg.Bucket),
		Key:      aws.String(sess.key),
		UploadId: aws.String(sess.uploadID),
	})
	if err != nil {
		return fmt.Errorf("abort multipart upload: %w", err)
	}

	c.mu.Lock()
	delete(c.sessions, sessionID)
	c.mu.Unlock()
	return nil
}

// ListSessions enumerates the backend's in-progress multipart uploads so a
// restarted client still sees its sessions. Local state, when this process
// has it, fills in the size and chunk counts the listing cannot carry.
func (c *S3Client) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	out, err := c.client.ListMultipartUploads(ctx, &s3.ListMultipartUploadsInput{
		Bucket: aws.String(c.cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("list multipart uploads: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	summaries := make([]SessionSummary, 0, len(out.Uploads))
	for _, u := range out.Uploads {
		id := aws.ToString(u.UploadId)
		created := aws.ToTime(u.Initiated)
		sum := SessionSummary{
			SessionID: id,
			Filename:  filepath.Base(aws.ToString(u.Key)),
			CreatedAt: created,
			ExpiresAt: created.Add(c.cfg.SessionTTL),
		}
		if sess, ok := c.sessions[id]; ok {
			sum.Filename = sess.filename
			sum.FileSize = sess.fileSize
			sum.TotalChunks = sess.totalChunks
			sum.CompletedChunks = len(sess.etags)
			sum.CreatedAt = sess.createdAt
			sum.ExpiresAt = sess.expiresAt
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

func (c *S3Client) Close() error { return nil }
