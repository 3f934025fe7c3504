package artifacts

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBucket struct {
	exists  bool
	made    []string
	objects map[string][]byte
	types   map[string]string
	putErr  error
}

func (f *fakeBucket) BucketExists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeBucket) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	f.exists = true
	return nil
}

func (f *fakeBucket) PutObject(_ context.Context, _, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
		f.types = map[string]string{}
	}
	f.objects[object] = data
	f.types[object] = opts.ContentType
	return minio.UploadInfo{Key: object, Size: size}, nil
}

func validConfig() Config {
	return Config{
		Endpoint:  "localhost:9000",
		AccessKey: "a",
		SecretKey: "b",
		Region:    "us-east-1",
		Bucket:    "ci-reports",
		Prefix:    "/jobgrid/",
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no endpoint", func(c *Config) { c.Endpoint = " " }},
		{"scheme in endpoint", func(c *Config) { c.Endpoint = "http://localhost:9000" }},
		{"no access key", func(c *Config) { c.AccessKey = "" }},
		{"no secret key", func(c *Config) { c.SecretKey = "" }},
		{"no bucket", func(c *Config) { c.Bucket = "" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, Config{}.Enabled())
	assert.True(t, validConfig().Enabled())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)
}

func TestStore_Upload(t *testing.T) {
	// --- Arrange ---
	fake := &fakeBucket{}
	s := &Store{client: fake, cfg: validConfig()}

	// --- Act ---
	key, err := s.Upload(context.Background(), "run-1", "out/report.json", []byte(`{"ok":true}`))

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "jobgrid/run-1/report.json", key)
	assert.Equal(t, []string{"ci-reports"}, fake.made, "missing bucket is created")
	assert.Equal(t, `{"ok":true}`, string(fake.objects[key]))
	assert.Contains(t, fake.types[key], "application/json")

	_, err = s.Upload(context.Background(), "run-1", "summary", nil)
	require.NoError(t, err)
	assert.Len(t, fake.made, 1, "existing bucket is reused")
	assert.Equal(t, "application/octet-stream", fake.types["jobgrid/run-1/summary"])
}

func TestStore_UploadError(t *testing.T) {
	boom := errors.New("denied")
	s := &Store{client: &fakeBucket{exists: true, putErr: boom}, cfg: validConfig()}

	_, err := s.Upload(context.Background(), "r", "report.md", []byte("x"))

	assert.ErrorIs(t, err, boom)
}
