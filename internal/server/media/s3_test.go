package media

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/PromptVision-AI/promptvision-app/internal/logging"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string

	putErr    error
	deleteErr error
	copyErr   error
	listErr   error

	deleted []string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Key)] = b
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) CopyObject(_ context.Context, in *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	if f.copyErr != nil {
		return nil, f.copyErr
	}
	_, src, _ := strings.Cut(aws.ToString(in.CopySource), "/")
	b, ok := f.objects[src]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	f.objects[aws.ToString(in.Key)] = b
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if in.MaxKeys != nil && int(*in.MaxKeys) < len(keys) {
		keys = keys[:*in.MaxKeys]
	}
	out := &s3.ListObjectsV2Output{}
	mod := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k), LastModified: &mod})
	}
	return out, nil
}

func newTestGateway(t *testing.T) (*S3Gateway, *fakeS3) {
	t.Helper()
	fake := newFakeS3()
	return &S3Gateway{
		client:     fake,
		bucket:     "promptvision",
		publicURL:  "http://media.local/promptvision",
		rootFolder: "default_folder",
		logger:     logging.Nop{},
		now:        func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
	}, fake
}

func TestNewS3Gateway_AppliesOptions(t *testing.T) {
	origLoad, origNew := loadDefaultAWSConfig, newS3Client
	t.Cleanup(func() { loadDefaultAWSConfig, newS3Client = origLoad, origNew })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-west-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "key", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	fake := newFakeS3()
	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(&opts)
		}
		return fake
	}

	g, err := NewS3Gateway(context.Background(), Options{
		Region: "eu-west-1", AccessKey: "key", SecretKey: "secret",
		Endpoint: "http://minio:9000", Bucket: "b", PublicURL: "http://cdn/b/", RootFolder: "/root/",
	}, logging.Nop{})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://cdn/b", g.publicURL)
	assert.Equal(t, "root", g.rootFolder)
}

func TestNewS3Gateway_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}
	_, err := NewS3Gateway(context.Background(), Options{}, logging.Nop{})
	assert.ErrorContains(t, err, "load aws config")
}

func TestUpload(t *testing.T) {
	g, fake := newTestGateway(t)

	res := g.Upload(context.Background(), pngBytes, "cat.png", "a1/inputs", "p1_input")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "default_folder/a1/inputs/p1_input", res.PublicID)
	assert.Equal(t, "image", res.ResourceType)
	assert.Equal(t, "png", res.Format)
	assert.Equal(t, "http://media.local/promptvision/image/upload/default_folder/a1/inputs/p1_input.png", res.URL)
	assert.Contains(t, res.URL, "/upload/")

	key := "image/upload/default_folder/a1/inputs/p1_input.png"
	assert.Equal(t, pngBytes, fake.objects[key])
	assert.Equal(t, "image/png", fake.types[key])
}

func TestUpload_DefaultsAndFailures(t *testing.T) {
	g, fake := newTestGateway(t)
	ctx := context.Background()

	res := g.Upload(ctx, []byte("plain notes"), "notes.txt", "", "")
	require.True(t, res.Success)
	assert.Equal(t, "default_folder/notes", res.PublicID)
	assert.Equal(t, "raw", res.ResourceType)
	assert.Equal(t, "txt", res.Format)

	res = g.Upload(ctx, nil, "x.png", "", "")
	assert.False(t, res.Success)
	assert.Equal(t, "empty file", res.Error)

	fake.putErr = errors.New("access denied")
	res = g.Upload(ctx, pngBytes, "cat.png", "", "")
	assert.False(t, res.Success)
	assert.Equal(t, "access denied", res.Error)
}

func TestDelete(t *testing.T) {
	g, fake := newTestGateway(t)
	ctx := context.Background()

	up := g.Upload(ctx, pngBytes, "cat.png", "a1", "cat")
	g.Upload(ctx, pngBytes, "cat.png", "a1", "cat_2")

	res := g.Delete(ctx, up.PublicID, "image")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"image/upload/default_folder/a1/cat.png"}, fake.deleted)
	assert.Contains(t, fake.objects, "image/upload/default_folder/a1/cat_2.png")

	res = g.Delete(ctx, up.PublicID, "image")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not found")
}

func TestRename(t *testing.T) {
	g, fake := newTestGateway(t)
	ctx := context.Background()

	up := g.Upload(ctx, pngBytes, "cat.png", "a1", "cat")
	res := g.Rename(ctx, up.PublicID, "default_folder/a1/kitty", "image")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "png", res.Format)
	assert.Equal(t, "http://media.local/promptvision/image/upload/default_folder/a1/kitty.png", res.URL)
	assert.NotContains(t, fake.objects, "image/upload/default_folder/a1/cat.png")
	assert.Contains(t, fake.objects, "image/upload/default_folder/a1/kitty.png")
}

func TestUpdate(t *testing.T) {
	g, fake := newTestGateway(t)
	ctx := context.Background()

	up := g.Upload(ctx, pngBytes, "cat.png", "a1", "cat")

	res := g.Update(ctx, up.PublicID, UpdateParams{}, "image")
	assert.False(t, res.Success)
	assert.Equal(t, "no update parameters provided", res.Error)

	res = g.Update(ctx, up.PublicID, UpdateParams{NewFolder: "archive"}, "image")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "archive/cat", res.PublicID)

	res = g.Update(ctx, "archive/cat", UpdateParams{NewFile: pngBytes, NewFilename: "dog.png", NewPublicID: "dog"}, "image")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "archive/dog", res.PublicID)
	assert.NotContains(t, fake.objects, "image/upload/archive/cat.png")
	assert.Contains(t, fake.objects, "image/upload/archive/dog.png")
}

func TestUpdate_AbortsWhenDeleteFails(t *testing.T) {
	g, fake := newTestGateway(t)
	ctx := context.Background()

	up := g.Upload(ctx, pngBytes, "cat.png", "a1", "cat")
	fake.deleteErr = errors.New("locked")

	res := g.Update(ctx, up.PublicID, UpdateParams{NewFile: pngBytes, NewFilename: "dog.png"}, "image")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "failed to delete original file")
	assert.Len(t, fake.objects, 1)
}

func TestList(t *testing.T) {
	g, fake := newTestGateway(t)
	ctx := context.Background()

	g.Upload(ctx, pngBytes, "a.png", "a1/outputs", "")
	g.Upload(ctx, pngBytes, "b.png", "a1/outputs", "")
	g.Upload(ctx, pngBytes, "c.png", "a2", "")

	res := g.List(ctx, "default_folder/a1", "image", 0)
	require.True(t, res.Success)
	require.Len(t, res.Resources, 2)
	assert.Equal(t, "default_folder/a1/outputs/a", res.Resources[0].PublicID)
	assert.Equal(t, "png", res.Resources[0].Format)
	assert.False(t, res.Resources[0].CreatedAt.IsZero())

	res = g.List(ctx, "default_folder", "image", 1)
	assert.Len(t, res.Resources, 1)

	fake.listErr = errors.New("boom")
	res = g.List(ctx, "", "image", 10)
	assert.False(t, res.Success)
	assert.Equal(t, "boom", res.Error)
}

func TestDetect(t *testing.T) {
	rt, format, ct := detect(pngBytes, "")
	assert.Equal(t, "image", rt)
	assert.Equal(t, "png", format)
	assert.Equal(t, "image/png", ct)

	rt, format, _ = detect([]byte("%PDF-1.4"), "doc.pdf")
	assert.Equal(t, "raw", rt)
	assert.Equal(t, "pdf", format)

	rt, _, _ = detect([]byte("just text"), "")
	assert.Equal(t, "raw", rt)

	assert.Equal(t, "cat", stem("C:\\Users\\me\\cat.png"))
	assert.Equal(t, "a/b", joinPath("/a/", "", "b/"))
}
