// Package store provides the blob storage backends behind the dependency
// cache and the cross-stage artifact transfer: a local filesystem store
// for single-machine runs and an S3-compatible store for shared runners.
package store
