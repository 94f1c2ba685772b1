package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestPut(t *testing.T) {
	fake := &fakeS3{}
	s := newS3Storage(fake, "evidencias", "https://cdn.example.com/evidencias/", nil)

	url, err := s.Put(context.Background(), "compras/c-1/foto 1.jpg", "image/jpeg", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/evidencias/compras/c-1/foto%201.jpg", url)
	assert.Equal(t, "evidencias", *fake.in.Bucket)
	assert.Equal(t, "compras/c-1/foto 1.jpg", *fake.in.Key)
	assert.Equal(t, "image/jpeg", *fake.in.ContentType)
	assert.Equal(t, []byte{1, 2, 3}, fake.body)
}

func TestPut_Errores(t *testing.T) {
	s := newS3Storage(&fakeS3{err: errors.New("AccessDenied")}, "b", "https://x", nil)
	_, err := s.Put(context.Background(), "k", "", []byte("x"))
	assert.ErrorContains(t, err, "AccessDenied")

	_, err = s.Put(context.Background(), "", "", nil)
	assert.Error(t, err)
}
