package storage

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
)

// Object-name prefixes mirroring the local data layout.
const (
	cachePrefix = "cache"
	rawPrefix   = "raw"
)

// artifact pairs a bucket object with its local path.
type artifact struct {
	object string
	local  string
}

// artifactSet enumerates the files bootstrap restores: per-source status
// caches and failed-ID ledgers, then the raw tables.
func artifactSet(paths *Paths, sources []string) []artifact {
	var set []artifact
	for _, src := range sources {
		set = append(set,
			artifact{object: path.Join(cachePrefix, filepath.Base(paths.StatusCache(src))), local: paths.StatusCache(src)},
			artifact{object: path.Join(cachePrefix, filepath.Base(paths.FailedLedger(src))), local: paths.FailedLedger(src)},
		)
	}
	for _, name := range RawFiles() {
		set = append(set, artifact{object: path.Join(rawPrefix, name), local: paths.Raw(name)})
	}
	return set
}

// Bootstrap pulls cache state and raw tables a previous host left in the
// bucket, skipping files already present locally. A missing object is a
// cold start for that file; any other failure is logged and the rest of
// the set still transfers. Bootstrap never fails a run. It returns how
// many files were restored.
func (o *ObjectStore) Bootstrap(ctx context.Context, paths *Paths, sources []string) int {
	restored := 0
	for _, a := range artifactSet(paths, sources) {
		if _, err := os.Stat(a.local); err == nil {
			continue
		}

		err := o.Download(ctx, a.object, a.local)
		switch {
		case errors.Is(err, ErrObjectNotFound):
			o.log.Debug("No remote copy to restore", "object", a.object)
		case err != nil:
			o.log.Warn("Failed to restore object", "object", a.object, "error", err)
		default:
			restored++
		}
	}

	if restored > 0 {
		o.log.Info("Restored pipeline state from object store", "objects", restored)
	}
	return restored
}

// BackupArtifacts pushes the cache directory and raw tables so the next
// bootstrap, possibly on another host, resumes from them. It returns how
// many objects were stored.
func (o *ObjectStore) BackupArtifacts(ctx context.Context, paths *Paths) (int, error) {
	uploaded, err := o.uploadDirIfPresent(ctx, paths.CacheDir(), cachePrefix)
	if err != nil {
		return uploaded, err
	}

	n, err := o.uploadDirIfPresent(ctx, paths.RawDir(), rawPrefix)
	uploaded += n
	return uploaded, err
}

func (o *ObjectStore) uploadDirIfPresent(ctx context.Context, dir, prefix string) (int, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, nil
	}
	return o.UploadDir(ctx, dir, prefix)
}
