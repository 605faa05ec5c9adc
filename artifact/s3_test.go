package artifact

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockS3Client struct {
	mock.Mock
}

func (m *mockS3Client) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	if out := args.Get(0); out != nil {
		return out.(*s3.PutObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockS3Client) UploadPart(ctx context.Context, in *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	return nil, errors.New("unexpected multipart upload")
}

func (m *mockS3Client) CreateMultipartUpload(ctx context.Context, in *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	return nil, errors.New("unexpected multipart upload")
}

func (m *mockS3Client) CompleteMultipartUpload(ctx context.Context, in *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	return nil, errors.New("unexpected multipart upload")
}

func (m *mockS3Client) AbortMultipartUpload(ctx context.Context, in *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	return nil, errors.New("unexpected multipart upload")
}

func TestS3StorePut(t *testing.T) {
	client := new(mockS3Client)
	store := NewS3Store(client, "maps", "sweeps/cifar")

	client.On("PutObject", mock.Anything, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return *in.Bucket == "maps" &&
			*in.Key == "sweeps/cifar/LR_0.01_Radius_1_Epochs_1.png" &&
			*in.ContentType == "image/png"
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	err := store.Put(context.Background(), "LR_0.01_Radius_1_Epochs_1.png", []byte("png"))
	assert.NoError(t, err)
	client.AssertExpectations(t)
	assert.Equal(t, "s3://maps/sweeps/cifar/x.som", store.Location("x.som"))
}

func TestS3StorePutError(t *testing.T) {
	client := new(mockS3Client)
	store := NewS3Store(client, "maps", "")

	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("denied")).Once()

	err := store.Put(context.Background(), "a.som", []byte{1})
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", contentType("a/b.png"))
	assert.Equal(t, "text/csv", contentType("f.csv"))
	assert.Equal(t, "application/octet-stream", contentType("m.som"))
}
