// Package publish uploads a run's output directory to Azure Blob Storage.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"golang.org/x/sync/errgroup"

	"github.com/physbench/physbench/internal/utils"
)

const defaultConcurrency = 8

// Config selects the storage account and destination.
type Config struct {
	// AccountURL is the blob service endpoint, for example
	// https://<account>.blob.core.windows.net/. Ignored when
	// ConnectionString is set.
	AccountURL       string
	ConnectionString string
	Container        string
	// Prefix is prepended to every blob name, usually the run id.
	Prefix      string
	Concurrency int
}

// blobAPI is the part of *azblob.Client the uploader needs.
type blobAPI interface {
	CreateContainer(ctx context.Context, containerName string, o *azblob.CreateContainerOptions) (azblob.CreateContainerResponse, error)
	UploadFile(ctx context.Context, containerName, blobName string, file *os.File, o *azblob.UploadFileOptions) (azblob.UploadFileResponse, error)
}

// Uploader copies local files into one container.
type Uploader struct {
	client      blobAPI
	container   string
	prefix      string
	concurrency int
	logger      *slog.Logger
}

// NewUploader connects with the connection string when one is given and
// otherwise with the default Azure credential chain (environment, managed
// identity, Azure CLI).
func NewUploader(cfg Config, logger *slog.Logger) (*Uploader, error) {
	if cfg.Container == "" {
		return nil, errors.New("container is required")
	}

	var (
		client *azblob.Client
		err    error
	)
	switch {
	case cfg.ConnectionString != "":
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	case cfg.AccountURL != "":
		cred, credErr := azidentity.NewDefaultAzureCredential(nil)
		if credErr != nil {
			return nil, fmt.Errorf("creating Azure credential: %w", credErr)
		}
		client, err = azblob.NewClient(cfg.AccountURL, cred, nil)
	default:
		return nil, errors.New("an account URL or a connection string is required")
	}
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}
	return newUploader(client, cfg, logger), nil
}

func newUploader(client blobAPI, cfg Config, logger *slog.Logger) *Uploader {
	n := cfg.Concurrency
	if n <= 0 {
		n = defaultConcurrency
	}
	return &Uploader{
		client:      client,
		container:   cfg.Container,
		prefix:      cfg.Prefix,
		concurrency: n,
		logger:      utils.Component(logger, "publish").With("container", cfg.Container),
	}
}

// UploadDir uploads every regular file under dir, keeping relative paths
// as blob names, and returns the number of files uploaded. The container
// is created when missing.
func (u *Uploader) UploadDir(ctx context.Context, dir string) (int, error) {
	if _, err := u.client.CreateContainer(ctx, u.container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return 0, fmt.Errorf("creating container %s: %w", u.container, err)
	}

	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("listing %s: %w", dir, err)
	}

	var uploaded atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)
	for _, p := range files {
		g.Go(func() error {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			name := u.BlobName(rel)
			if err := u.uploadFile(gctx, p, name); err != nil {
				return fmt.Errorf("uploading %s: %w", rel, err)
			}
			uploaded.Add(1)
			u.logger.Debug("blob_uploaded", slog.String("blob", name))
			return nil
		})
	}
	err = g.Wait()
	return int(uploaded.Load()), err
}

// BlobName maps a path relative to the uploaded directory to its blob name.
func (u *Uploader) BlobName(rel string) string {
	return path.Join(u.prefix, filepath.ToSlash(rel))
}

func (u *Uploader) uploadFile(ctx context.Context, p, name string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	var opts azblob.UploadFileOptions
	if ct := contentType(p); ct != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &ct}
	}
	_, err = u.client.UploadFile(ctx, u.container, name, f, &opts)
	return err
}

func contentType(p string) string {
	switch filepath.Ext(p) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".prom":
		return "text/plain; version=0.0.4"
	}
	return mime.TypeByExtension(filepath.Ext(p))
}
