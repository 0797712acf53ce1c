package s3

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittodrive/pkg/content"
	contenttesting "github.com/marmos91/dittodrive/pkg/content/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 is an in-memory stand-in for a single bucket.
type fakeS3 struct {
	mu        sync.Mutex
	objects   map[string][]byte
	bucketErr error
	pageSize  int
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte), pageSize: 2}
}

func (f *fakeS3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.bucketErr != nil {
		return nil, f.bucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(params.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(params.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(params.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	start := 0
	if token := aws.ToString(params.ContinuationToken); token != "" {
		start = sort.SearchStrings(keys, token)
	}
	end := min(start+f.pageSize, len(keys))

	out := &s3.ListObjectsV2Output{}
	now := time.Now()
	for _, k := range keys[start:end] {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(f.objects[k]))),
			LastModified: aws.Time(now),
		})
	}
	if end < len(keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(keys[end])
	}
	return out, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{
		URL:    "https://" + aws.ToString(params.Bucket) + ".example/" + aws.ToString(params.Key) + "?sig=x",
		Method: "GET",
	}, nil
}

func newTestStore(t *testing.T, fake *fakeS3, prefix string) *S3BlobStore {
	t.Helper()
	store, err := NewS3BlobStore(context.Background(), S3BlobStoreConfig{
		Client:    fake,
		Presigner: fakePresigner{},
		Bucket:    "drive",
		KeyPrefix: prefix,
	})
	require.NoError(t, err)
	return store
}

func TestS3BlobStore(t *testing.T) {
	suite := &contenttesting.StoreTestSuite{
		NewStore: func(t *testing.T) content.BlobStore {
			return newTestStore(t, newFakeS3(), "blobs/")
		},
	}
	suite.Run(t)
}

func TestS3BlobStore_ConfigValidation(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3BlobStore(ctx, S3BlobStoreConfig{Bucket: "b", Presigner: fakePresigner{}})
	require.Error(t, err)

	_, err = NewS3BlobStore(ctx, S3BlobStoreConfig{Client: newFakeS3(), Presigner: fakePresigner{}})
	require.Error(t, err)

	_, err = NewS3BlobStore(ctx, S3BlobStoreConfig{Client: newFakeS3(), Bucket: "b"})
	require.Error(t, err)
}

func TestS3BlobStore_BucketUnreachable(t *testing.T) {
	fake := newFakeS3()
	fake.bucketErr = errors.New("forbidden")

	_, err := NewS3BlobStore(context.Background(), S3BlobStoreConfig{
		Client:    fake,
		Presigner: fakePresigner{},
		Bucket:    "drive",
	})
	require.ErrorContains(t, err, `failed to access bucket "drive"`)
}

func TestS3BlobStore_KeyPrefix(t *testing.T) {
	fake := newFakeS3()
	store := newTestStore(t, fake, "tenant-a/")

	obj, err := store.Put(context.Background(), "files/u1/x.txt", strings.NewReader("xyz"), 3, nil)
	require.NoError(t, err)

	assert.Equal(t, "files/u1/x.txt", obj.Ref)
	assert.Contains(t, fake.objects, "tenant-a/files/u1/x.txt")
	assert.Equal(t, "https://drive.example/tenant-a/files/u1/x.txt?sig=x", obj.URL)
}

func TestS3BlobStore_PublicBaseURL(t *testing.T) {
	store, err := NewS3BlobStore(context.Background(), S3BlobStoreConfig{
		Client:        newFakeS3(),
		Bucket:        "drive",
		PublicBaseURL: "https://cdn.example.com/",
	})
	require.NoError(t, err)

	obj, err := store.Put(context.Background(), "files/u1/a.png", strings.NewReader("png"), 3, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/files/u1/a.png", obj.URL)
}

func TestS3BlobStore_ListPaginates(t *testing.T) {
	fake := newFakeS3()
	store := newTestStore(t, fake, "")
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d", "e"} {
		_, err := store.Put(ctx, "files/u1/"+name, strings.NewReader(name), 1, nil)
		require.NoError(t, err)
	}

	infos, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, 5)
}
