// Package detector finds declared inputs whose content differs from the
// recorded fingerprint.
package detector

import (
	"context"
	"errors"
	iofs "io/fs"
	"iter"
	"runtime"

	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Change describes one read path whose content no longer matches the record.
type Change struct {
	// Path is the declared read path.
	Path string
	// Digest is the fingerprint computed during the scan. It is empty when
	// the path is a declared output that does not exist yet.
	Digest string
	// Previous is the recorded fingerprint, empty on a cold start.
	Previous string
}

// Detector compares current file content against recorded fingerprints.
type Detector struct {
	fingerprinter ports.Fingerprinter
	workers       int
}

// New creates a Detector that fingerprints up to workers files at once.
// A non-positive workers count uses one worker per CPU.
func New(fp ports.Fingerprinter, workers int) *Detector {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Detector{fingerprinter: fp, workers: workers}
}

// Changes fingerprints every distinct read path of st and returns those that
// differ from the recorded digest, sorted by path. A path without a recorded
// digest always counts as changed, and so does a missing path that some
// command declares as an output.
func (d *Detector) Changes(ctx context.Context, st *domain.State) ([]Change, error) {
	paths := st.ReadPaths()
	digests := make([]string, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			digest, err := d.fingerprinter.Fingerprint(path)
			if err != nil {
				if errors.Is(err, iofs.ErrNotExist) && len(st.Writers(path)) > 0 {
					// Not produced yet. Its writer will create it.
					digests[i] = ""
					return nil
				}
				if errors.Is(err, domain.ErrFileAccess) {
					return err
				}
				return zerr.With(zerr.Wrap(domain.Classify(domain.ErrFileAccess, err), "failed to fingerprint input"), "path", path)
			}
			digests[i] = digest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var changes []Change
	for i, path := range paths {
		previous, recorded := st.Fingerprint(path)
		if recorded && digests[i] != "" && previous == digests[i] {
			continue
		}
		changes = append(changes, Change{Path: path, Digest: digests[i], Previous: previous})
	}
	return changes, nil
}

// Scan yields the changed read paths of st in lexicographic order. Each range
// over the sequence performs a fresh scan. On failure a single error is
// yielded and the sequence ends.
func (d *Detector) Scan(ctx context.Context, st *domain.State) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		changes, err := d.Changes(ctx, st)
		if err != nil {
			yield("", err)
			return
		}
		for _, c := range changes {
			if !yield(c.Path, nil) {
				return
			}
		}
	}
}
