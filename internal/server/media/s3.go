package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the part of *s3.Client the gateway uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// Options configures an S3Gateway.
type Options struct {
	Region     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	Bucket     string
	PublicURL  string
	RootFolder string
}

type S3Gateway struct {
	client     s3API
	bucket     string
	publicURL  string
	rootFolder string
	logger     logging.Logger

	now func() time.Time
}

// NewS3Gateway builds the S3 client once. Path-style addressing is used so
// that MinIO and other self-hosted stores work without DNS buckets.
func NewS3Gateway(ctx context.Context, o Options, logger logging.Logger) (*S3Gateway, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(o.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3Client(cfg, func(so *s3.Options) {
		if o.Endpoint != "" {
			so.BaseEndpoint = aws.String(o.Endpoint)
		}
		so.UsePathStyle = true
	})

	return &S3Gateway{
		client:     client,
		bucket:     o.Bucket,
		publicURL:  strings.TrimRight(o.PublicURL, "/"),
		rootFolder: strings.Trim(o.RootFolder, "/"),
		logger:     logger.With("module", "media"),
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (g *S3Gateway) Upload(ctx context.Context, body []byte, filename, folder, publicID string) Result {
	return g.put(ctx, body, filename, joinPath(g.rootFolder, folder), publicID)
}

// put stores body under an absolute folder.
func (g *S3Gateway) put(ctx context.Context, body []byte, filename, folder, publicID string) Result {
	if len(body) == 0 {
		return failed(errors.New("empty file"))
	}
	if publicID == "" {
		publicID = stem(filename)
	}
	if publicID == "" {
		return failed(errors.New("public id is required"))
	}

	resourceType, format, contentType := detect(body, filename)
	fullID := joinPath(folder, publicID)
	key := objectKey(resourceType, fullID, format)

	out, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		g.logger.Error(ctx, "upload failed", "key", key, "error", err)
		return failed(err)
	}

	g.logger.Info(ctx, "uploaded", "key", key, "bytes", len(body))
	return Result{
		Success:      true,
		URL:          g.url(key),
		PublicID:     fullID,
		ResourceType: resourceType,
		Format:       format,
		CreatedAt:    g.now(),
		Raw:          out,
	}
}

// Delete removes the asset with publicID. Its format is not known to the
// caller, so every object under the id prefix is removed.
func (g *S3Gateway) Delete(ctx context.Context, publicID, resourceType string) Result {
	keys, err := g.keysFor(ctx, resourceType, publicID)
	if err != nil {
		return failed(err)
	}
	if len(keys) == 0 {
		return failed(fmt.Errorf("not found: %s", publicID))
	}

	var out *s3.DeleteObjectOutput
	for _, key := range keys {
		out, err = g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(g.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			g.logger.Error(ctx, "delete failed", "key", key, "error", err)
			return failed(err)
		}
	}

	g.logger.Info(ctx, "deleted", "public_id", publicID)
	return Result{Success: true, PublicID: publicID, ResourceType: resourceType, Raw: out}
}

// Rename moves the asset by copy and delete.
func (g *S3Gateway) Rename(ctx context.Context, publicID, newPublicID, resourceType string) Result {
	keys, err := g.keysFor(ctx, resourceType, publicID)
	if err != nil {
		return failed(err)
	}
	if len(keys) == 0 {
		return failed(fmt.Errorf("not found: %s", publicID))
	}

	key := keys[0]
	format := strings.TrimPrefix(key, objectKey(resourceType, publicID, ""))
	newKey := objectKey(resourceType, newPublicID, format)

	out, err := g.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(g.bucket),
		CopySource: aws.String(g.bucket + "/" + key),
		Key:        aws.String(newKey),
	})
	if err != nil {
		g.logger.Error(ctx, "copy failed", "from", key, "to", newKey, "error", err)
		return failed(err)
	}
	if _, err := g.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(key),
	}); err != nil {
		g.logger.Warn(ctx, "old object left behind", "key", key, "error", err)
	}

	return Result{
		Success:      true,
		URL:          g.url(newKey),
		PublicID:     newPublicID,
		ResourceType: resourceType,
		Format:       format,
		CreatedAt:    g.now(),
		Raw:          out,
	}
}

// Update replaces the asset when a new file is given, deleting the old one
// first, or moves it when only the folder or id change.
func (g *S3Gateway) Update(ctx context.Context, publicID string, p UpdateParams, resourceType string) Result {
	folder, name := splitPublicID(publicID)

	if len(p.NewFile) > 0 {
		if del := g.Delete(ctx, publicID, resourceType); !del.Success {
			return failed(fmt.Errorf("failed to delete original file: %s", del.Error))
		}
		if p.NewFolder != "" {
			folder = p.NewFolder
		}
		if p.NewPublicID != "" {
			name = p.NewPublicID
		}
		return g.put(ctx, p.NewFile, p.NewFilename, folder, name)
	}

	if p.NewFolder == "" && p.NewPublicID == "" {
		return failed(errors.New("no update parameters provided"))
	}
	if p.NewFolder != "" {
		folder = p.NewFolder
	}
	if p.NewPublicID != "" {
		name = p.NewPublicID
	}
	return g.Rename(ctx, publicID, joinPath(folder, name), resourceType)
}

func (g *S3Gateway) List(ctx context.Context, prefix, resourceType string, maxResults int) ListResult {
	if maxResults <= 0 {
		maxResults = 100
	}
	base := objectKey(resourceType, "", "")

	out, err := g.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(g.bucket),
		Prefix:  aws.String(base + strings.TrimLeft(prefix, "/")),
		MaxKeys: aws.Int32(int32(maxResults)),
	})
	if err != nil {
		g.logger.Error(ctx, "list failed", "prefix", prefix, "error", err)
		return ListResult{Error: err.Error()}
	}

	res := make([]Result, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		id := strings.TrimPrefix(key, base)
		format := ""
		if i := strings.LastIndex(id, "."); i > strings.LastIndex(id, "/") {
			id, format = id[:i], id[i+1:]
		}
		r := Result{
			Success:      true,
			URL:          g.url(key),
			PublicID:     id,
			ResourceType: resourceType,
			Format:       format,
		}
		if obj.LastModified != nil {
			r.CreatedAt = obj.LastModified.UTC()
		}
		res = append(res, r)
	}
	return ListResult{Success: true, Resources: res}
}

// keysFor lists the objects stored for publicID, one per format.
func (g *S3Gateway) keysFor(ctx context.Context, resourceType, publicID string) ([]string, error) {
	prefix := objectKey(resourceType, publicID, "")
	out, err := g.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(g.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		g.logger.Error(ctx, "lookup failed", "public_id", publicID, "error", err)
		return nil, err
	}

	var keys []string
	for _, obj := range out.Contents {
		key := aws.ToString(obj.Key)
		if rest := strings.TrimPrefix(key, prefix); !strings.Contains(rest, "/") {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (g *S3Gateway) url(key string) string {
	return g.publicURL + "/" + key
}

// objectKey builds {resourceType}/upload/{publicID}.{format}. With an empty
// format it returns the prefix ending in the dot; with an empty publicID
// the folder prefix of resourceType.
func objectKey(resourceType, publicID, format string) string {
	if resourceType == "" {
		resourceType = ResourceImage
	}
	base := resourceType + "/upload/"
	if publicID == "" {
		return base
	}
	return base + publicID + "." + format
}

func splitPublicID(publicID string) (folder, name string) {
	i := strings.LastIndex(publicID, "/")
	if i < 0 {
		return "", publicID
	}
	return publicID[:i], publicID[i+1:]
}
