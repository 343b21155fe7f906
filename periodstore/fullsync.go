package periodstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// FullSync mirrors a master instance's period store. A slave runs one
// pass per finalized checkpoint, guarded by an in-progress latch so
// overlapping checkpoints never interleave downloads.
type FullSync struct {
	store      *Store
	masterURL  string
	http       *http.Client
	inProgress atomic.Bool

	lastFullPeriod uint64
}

// NewFullSync wires the slave loop against the configured master.
func NewFullSync(store *Store, masterURL string) *FullSync {
	return &FullSync{
		store:     store,
		masterURL: masterURL,
		http:      &http.Client{Timeout: 5 * time.Minute},
	}
}

// OnFinalized runs one mirror pass; checkpoints arriving while a pass is
// active are skipped.
func (f *FullSync) OnFinalized(ctx context.Context) {
	if f.store.ShuttingDown() {
		return
	}
	if !f.inProgress.CompareAndSwap(false, true) {
		return
	}
	defer f.inProgress.Store(false)
	if err := f.run(ctx); err != nil {
		log.WithError(err).Warn("Full sync pass failed")
	}
}

// run executes one mirror pass: locate the local high-water mark, fetch
// the master's manifest past it and mirror every entry sequentially.
func (f *FullSync) run(ctx context.Context) error {
	f.lastFullPeriod = f.scanLastFullPeriod()

	manifest, err := f.fetchManifest(ctx, f.lastFullPeriod+1)
	if err != nil {
		return err
	}
	for _, entry := range manifest {
		if f.store.ShuttingDown() {
			return nil
		}
		if err := f.mirrorEntry(ctx, entry); err != nil {
			log.WithError(err).WithFields(map[string]interface{}{
				"period": entry.Period,
				"file":   entry.Filename,
			}).Warn("Mirror failed")
			// Force re-verification of the damaged period on the next pass.
			_ = os.Remove(f.store.FilePath(entry.Period, FileBlocksRoot))
		}
	}
	// Advance while the next period is fully mirrored and verified.
	for f.store.HasFile(f.lastFullPeriod+1, FileBlocksRoot) &&
		f.store.HasFile(f.lastFullPeriod+1, FileProofG16) {
		f.lastFullPeriod++
	}
	return nil
}

// scanLastFullPeriod walks local periods backwards to the highest one
// carrying both marker files.
func (f *FullSync) scanLastFullPeriod() uint64 {
	periods := f.store.Index().Periods()
	for i := len(periods) - 1; i >= 0; i-- {
		p := periods[i]
		if f.store.HasFile(p, FileBlocksRoot) && f.store.HasFile(p, FileProofG16) {
			return p
		}
	}
	return 0
}

func (f *FullSync) fetchManifest(ctx context.Context, start uint64) ([]*ManifestEntry, error) {
	url := fmt.Sprintf("%s/period_store?manifest=1&start=%d", f.masterURL, start)
	body, _, err := f.get(ctx, url, 0)
	if err != nil {
		return nil, errors.Wrap(err, "fetch manifest")
	}
	manifest, err := DecodeManifest(body)
	if err != nil {
		return nil, errors.Wrap(err, "parse manifest")
	}
	return manifest, nil
}

// mirrorEntry brings one local artifact up to the manifest's length,
// resuming partial files with a ranged request. blocks.ssz and headers.ssz
// of an already verified period are re-downloaded whole, since a strided
// file appended at the wrong boundary would poison the verified root.
func (f *FullSync) mirrorEntry(ctx context.Context, entry *ManifestEntry) error {
	path := f.store.FilePath(entry.Period, entry.Filename)
	var localSize int64
	if info, err := os.Stat(path); err == nil {
		localSize = info.Size()
	}
	if localSize == int64(entry.Length) {
		return nil
	}
	verified := f.store.HasFile(entry.Period, FileBlocksRoot)
	if verified && (entry.Filename == FileBlocks || entry.Filename == FileHeaders) {
		localSize = 0
	}
	if localSize > int64(entry.Length) {
		localSize = 0
	}

	url := fmt.Sprintf("%s/period_store/%d/%s", f.masterURL, entry.Period, entry.Filename)
	if localSize > 0 {
		url += fmt.Sprintf("?offset=%d", localSize)
	}
	body, status, err := f.get(ctx, url, localSize)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusPartialContent {
		return errors.Errorf("status %d for %s", status, url)
	}

	if err := f.store.ensureDir(entry.Period); err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE
	if localSize == 0 {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	out, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer out.Close()
	if _, err := out.Write(body); err != nil {
		return errors.Wrapf(err, "append %s", path)
	}
	return nil
}

func (f *FullSync) get(ctx context.Context, url string, _ int64) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, errors.Wrap(err, "build request")
	}
	res, err := f.http.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "master request")
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, errors.Wrap(err, "read master response")
	}
	if res.StatusCode >= 400 {
		return nil, res.StatusCode, errors.Errorf("master returned %d for %s", res.StatusCode, url)
	}
	return body, res.StatusCode, nil
}
