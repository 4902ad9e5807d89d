// Package blobstore provides the shared blob storage resource that the cache
// and artifact actions depend on. It fronts either a local filesystem store
// or an S3-compatible object store.
package blobstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/vk/stagehandgo/internal/ctxlog"
	"github.com/vk/stagehandgo/internal/registry"
	"github.com/vk/stagehandgo/internal/store"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments for the blobstore resource.
type Input struct {
	Backend string `hcl:"backend,optional"`

	// Local backend settings.
	Root string `hcl:"root,optional"`

	// S3 backend settings.
	Endpoint  string `hcl:"endpoint,optional"`
	AccessKey string `hcl:"access_key,optional"`
	SecretKey string `hcl:"secret_key,optional"`
	Bucket    string `hcl:"bucket,optional"`
	UseSSL    bool   `hcl:"use_ssl,optional"`
}

// CreateBlobstore is the handler for the blobstore asset's create lifecycle
// event. The returned instance satisfies store.Store.
func CreateBlobstore(ctx context.Context, input *Input) (store.Store, error) {
	logger := ctxlog.FromContext(ctx).With("asset", "blobstore")

	switch input.Backend {
	case "", "local":
		root := input.Root
		if root == "" {
			root = filepath.Join(os.TempDir(), "stagehand-store")
		}
		logger.Info("Opening local blob store.", "root", root)
		return store.NewLocal(root)

	case "s3":
		if input.Endpoint == "" || input.Bucket == "" {
			return nil, fmt.Errorf("s3 backend requires endpoint and bucket")
		}
		logger.Info("Connecting to S3 blob store.", "endpoint", input.Endpoint, "bucket", input.Bucket)
		return store.NewMinio(ctx, store.MinioConfig{
			Endpoint:  input.Endpoint,
			AccessKey: input.AccessKey,
			SecretKey: input.SecretKey,
			Bucket:    input.Bucket,
			UseSSL:    input.UseSSL,
		})

	default:
		return nil, fmt.Errorf("unknown blobstore backend %q, want 'local' or 's3'", input.Backend)
	}
}

// DestroyBlobstore is the handler for the blobstore asset's destroy lifecycle
// event. Both backends are connectionless, so there is nothing to tear down.
func DestroyBlobstore(s store.Store) error {
	return nil
}

// Register registers the handlers with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAssetHandler("CreateBlobstore", &registry.RegisteredAsset{
		NewInput:  func() any { return new(Input) },
		InputType: reflect.TypeOf(Input{}),
		CreateFn:  CreateBlobstore,
	})
	r.RegisterAssetHandler("DestroyBlobstore", &registry.RegisteredAsset{
		DestroyFn: DestroyBlobstore,
	})
	r.RegisterAssetInterface("blobstore", reflect.TypeOf((*store.Store)(nil)).Elem())
}
