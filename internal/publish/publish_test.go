package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBlobs struct {
	createErr error
	uploadErr error

	mu       sync.Mutex
	uploaded map[string]string
	types    map[string]string
}

func (f *fakeBlobs) CreateContainer(context.Context, string, *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error) {
	return azblob.CreateContainerResponse{}, f.createErr
}

func (f *fakeBlobs) UploadFile(_ context.Context, _ string, name string, file *os.File, o *azblob.UploadFileOptions) (azblob.UploadFileResponse, error) {
	if f.uploadErr != nil {
		return azblob.UploadFileResponse{}, f.uploadErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return azblob.UploadFileResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
		f.types = map[string]string{}
	}
	f.uploaded[name] = string(data)
	if o != nil && o.HTTPHeaders != nil && o.HTTPHeaders.BlobContentType != nil {
		f.types[name] = *o.HTTPHeaders.BlobContentType
	}
	return azblob.UploadFileResponse{}, nil
}

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"solvable/0.md":    "# q0",
		"unsolvable/1.md":  "# q1",
		"csv/solvable.csv": "question_id\n",
		"results.json":     "{}",
	}
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

func TestUploader_UploadDir(t *testing.T) {
	dir := writeTree(t)
	fake := &fakeBlobs{}
	u := newUploader(fake, Config{Container: "runs", Prefix: "run-42", Concurrency: 2}, nil)

	n, err := u.UploadDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	names := make([]string, 0, len(fake.uploaded))
	for name := range fake.uploaded {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{
		"run-42/csv/solvable.csv",
		"run-42/results.json",
		"run-42/solvable/0.md",
		"run-42/unsolvable/1.md",
	}, names)
	assert.Equal(t, "# q0", fake.uploaded["run-42/solvable/0.md"])
	assert.Equal(t, "text/markdown; charset=utf-8", fake.types["run-42/solvable/0.md"])
}

func TestUploader_ExistingContainer(t *testing.T) {
	fake := &fakeBlobs{createErr: &azcore.ResponseError{ErrorCode: string(bloberror.ContainerAlreadyExists), StatusCode: 409}}
	u := newUploader(fake, Config{Container: "runs"}, nil)

	n, err := u.UploadDir(context.Background(), writeTree(t))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestUploader_ContainerError(t *testing.T) {
	fake := &fakeBlobs{createErr: errors.New("forbidden")}
	u := newUploader(fake, Config{Container: "runs"}, nil)

	_, err := u.UploadDir(context.Background(), writeTree(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating container runs")
}

func TestUploader_UploadError(t *testing.T) {
	fake := &fakeBlobs{uploadErr: errors.New("network down")}
	u := newUploader(fake, Config{Container: "runs"}, nil)

	n, err := u.UploadDir(context.Background(), writeTree(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")
	assert.Zero(t, n)
}

func TestBlobName(t *testing.T) {
	u := newUploader(&fakeBlobs{}, Config{Container: "c"}, nil)
	assert.Equal(t, "solvable/a.md", u.BlobName(filepath.Join("solvable", "a.md")))

	u = newUploader(&fakeBlobs{}, Config{Container: "c", Prefix: "p"}, nil)
	assert.Equal(t, "p/x.csv", u.BlobName("x.csv"))
}

func TestNewUploader_Validation(t *testing.T) {
	_, err := NewUploader(Config{}, nil)
	assert.ErrorContains(t, err, "container is required")

	_, err = NewUploader(Config{Container: "c"}, nil)
	assert.ErrorContains(t, err, "account URL or a connection string")
}
