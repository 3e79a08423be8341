package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/papers-hub-api/pkg/config"
)

type fakeS3 struct {
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	f.types[aws.ToString(in.Key)] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3StorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	store := &S3Storage{client: fake, bucket: "papers"}

	n, err := store.SaveStream(ctx, "question_papers/a.pdf", strings.NewReader("hello"), "application/pdf")
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, "application/pdf", fake.types["question_papers/a.pdf"])

	size, err := store.Size(ctx, "question_papers/a.pdf")
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)

	rc, err := store.Open(ctx, "question_papers/a.pdf")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "hello", string(body))

	require.NoError(t, store.Delete(ctx, "question_papers/a.pdf"))
	_, err = store.Open(ctx, "question_papers/a.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Size(ctx, "question_papers/a.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestS3StorageBuffersNonSeekableReader(t *testing.T) {
	fake := newFakeS3()
	store := &S3Storage{client: fake, bucket: "papers"}

	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("streamed"))
		_ = pw.Close()
	}()

	n, err := store.SaveStream(context.Background(), "k", pr, "")
	require.NoError(t, err)
	assert.EqualValues(t, 8, n)
	assert.Equal(t, "streamed", string(fake.objects["k"]))
}

func TestS3StoragePutFailure(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("denied")
	store := &S3Storage{client: fake, bucket: "papers"}

	_, err := store.SaveStream(context.Background(), "k", strings.NewReader("x"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestNewS3StorageRequiresBucket(t *testing.T) {
	_, err := NewS3Storage(context.Background(), config.S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}
