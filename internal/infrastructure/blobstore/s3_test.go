package blobstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/arisan/internal/domain/proof"
	"github.com/riskibarqy/arisan/internal/platform/logging"
	"github.com/riskibarqy/arisan/internal/platform/resilience"
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string]string
	putErr  error
	puts    int
	deletes []string
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string]string{}}
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putErr != nil {
		return nil, f.putErr
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = string(body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	f.deletes = append(f.deletes, key)
	delete(f.objects, key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeObjects) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

type fakePresigner struct {
	expires time.Duration
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	opts := s3.PresignOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{
		URL:    "https://bucket.example.com/" + aws.ToString(in.Key) + "?X-Amz-Signature=sig",
		Method: "GET",
	}, nil
}

func TestS3Store_PutAndPresign(t *testing.T) {
	objects := newFakeObjects()
	presigner := &fakePresigner{}
	store := newS3Store(objects, presigner, S3Config{Bucket: "proofs", PresignTTL: 5 * time.Minute}, logging.NewNop())

	ref, err := store.Put(t.Context(), "payment-proofs/g1/p1/pay.jpg", "image/jpeg", strings.NewReader("jpeg"), 4)
	require.NoError(t, err)
	require.Equal(t, "payment-proofs/g1/p1/pay.jpg", ref)
	require.Equal(t, "jpeg", objects.objects[ref])

	url, err := store.URL(t.Context(), ref)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://bucket.example.com/payment-proofs/g1/p1/pay.jpg"))
	require.Equal(t, 5*time.Minute, presigner.expires)

	if _, err := store.URL(t.Context(), "payment-proofs/g1/p1/other.jpg"); !errors.Is(err, proof.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing object, got %v", err)
	}
}

func TestS3Store_CircuitOpensOnPutFailures(t *testing.T) {
	objects := newFakeObjects()
	objects.putErr = errors.New("connection reset")
	store := newS3Store(objects, &fakePresigner{}, S3Config{
		Bucket: "proofs",
		Circuit: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 2,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	}, logging.NewNop())

	for range 3 {
		if _, err := store.Put(t.Context(), "g/p/x.png", "image/png", strings.NewReader("x"), 1); err == nil {
			t.Fatalf("expected put to fail")
		}
	}
	require.Equal(t, 2, objects.puts)

	_, err := store.Put(t.Context(), "g/p/x.png", "image/png", strings.NewReader("x"), 1)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected open circuit, got %v", err)
	}
}

func TestS3Store_MissingObjectsDoNotTripCircuit(t *testing.T) {
	store := newS3Store(newFakeObjects(), &fakePresigner{}, S3Config{
		Bucket:  "proofs",
		Circuit: resilience.CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute},
	}, logging.NewNop())

	for range 3 {
		if _, err := store.URL(t.Context(), "g/p/missing.png"); !errors.Is(err, proof.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
}

func TestS3Store_DeleteMany(t *testing.T) {
	objects := newFakeObjects()
	store := newS3Store(objects, &fakePresigner{}, S3Config{Bucket: "proofs", DeleteWorkers: 2}, logging.NewNop())

	refs := []string{"g/p/1.png", "g/p/2.png", "g/p/3.png"}
	for _, ref := range refs {
		_, err := store.Put(t.Context(), ref, "image/png", strings.NewReader("x"), 1)
		require.NoError(t, err)
	}

	require.NoError(t, store.DeleteMany(t.Context(), refs))
	require.ElementsMatch(t, refs, objects.deletes)
	require.Empty(t, objects.objects)
}
