package detector_test

import (
	"context"
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/depex/internal/adapters/fs"
	"go.trai.ch/depex/internal/core/domain"
	"go.trai.ch/depex/internal/core/ports/mocks"
	"go.trai.ch/depex/internal/engine/detector"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

func corpusState(t *testing.T) *domain.State {
	t.Helper()
	st := domain.NewState()
	require.NoError(t, st.AddCommand("readcorpus", []string{"python3", "read-corpus", "file.txt"}))
	require.NoError(t, st.AddReads("readcorpus", "file.txt"))
	require.NoError(t, st.AddWrites("readcorpus", "out.txt"))
	require.NoError(t, st.AddCommand("visualize", []string{"python3", "visualize", "out.txt"}))
	require.NoError(t, st.AddReads("visualize", "out.txt", "style.css"))
	return st
}

func TestDetector_ColdStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	fp := mocks.NewMockFingerprinter(ctrl)
	fp.EXPECT().Fingerprint("file.txt").Return("f1", nil)
	fp.EXPECT().Fingerprint("out.txt").Return("o1", nil)
	fp.EXPECT().Fingerprint("style.css").Return("s1", nil)

	changes, err := detector.New(fp, 2).Changes(context.Background(), corpusState(t))
	require.NoError(t, err)
	assert.Equal(t, []detector.Change{
		{Path: "file.txt", Digest: "f1"},
		{Path: "out.txt", Digest: "o1"},
		{Path: "style.css", Digest: "s1"},
	}, changes)
}

func TestDetector_OnlyDifferingDigests(t *testing.T) {
	ctrl := gomock.NewController(t)
	fp := mocks.NewMockFingerprinter(ctrl)
	fp.EXPECT().Fingerprint("file.txt").Return("f2", nil)
	fp.EXPECT().Fingerprint("out.txt").Return("o1", nil)
	fp.EXPECT().Fingerprint("style.css").Return("s1", nil)

	st := corpusState(t)
	st.SetFingerprint("file.txt", "f1")
	st.SetFingerprint("out.txt", "o1")
	st.SetFingerprint("style.css", "s1")

	changes, err := detector.New(fp, 0).Changes(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []detector.Change{{Path: "file.txt", Digest: "f2", Previous: "f1"}}, changes)
}

func TestDetector_ResultOrderIgnoresCompletionOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	fp := mocks.NewMockFingerprinter(ctrl)
	fp.EXPECT().Fingerprint(gomock.Any()).DoAndReturn(func(path string) (string, error) {
		// Earlier paths finish last.
		if path == "file.txt" {
			time.Sleep(20 * time.Millisecond)
		}
		return "digest-" + path, nil
	}).Times(3)

	changes, err := detector.New(fp, 3).Changes(context.Background(), corpusState(t))
	require.NoError(t, err)

	paths := make([]string, len(changes))
	for i, c := range changes {
		paths[i] = c.Path
	}
	assert.True(t, slices.IsSorted(paths))
	assert.Equal(t, []string{"file.txt", "out.txt", "style.css"}, paths)
}

func TestDetector_EmptyState(t *testing.T) {
	ctrl := gomock.NewController(t)
	fp := mocks.NewMockFingerprinter(ctrl)

	changes, err := detector.New(fp, 1).Changes(context.Background(), domain.NewState())
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDetector_FingerprintFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	fp := mocks.NewMockFingerprinter(ctrl)
	fp.EXPECT().Fingerprint("file.txt").Return("", iofs.ErrPermission)
	fp.EXPECT().Fingerprint(gomock.Any()).Return("x", nil).AnyTimes()

	_, err := detector.New(fp, 1).Changes(context.Background(), corpusState(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFileAccess))
	assert.True(t, errors.Is(err, iofs.ErrPermission))

	var zErr *zerr.Error
	require.ErrorAs(t, err, &zErr)
	assert.Equal(t, "file.txt", zErr.Metadata()["path"])
}

func TestDetector_RealFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile("file.txt", []byte("corpus"), domain.FilePerm))
	require.NoError(t, os.WriteFile("out.txt", []byte("counts"), domain.FilePerm))
	require.NoError(t, os.WriteFile("style.css", []byte("body{}"), domain.FilePerm))

	st := corpusState(t)
	det := detector.New(fs.NewHasher(), 0)

	changes, err := det.Changes(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, changes, 3)
	for _, c := range changes {
		st.SetFingerprint(c.Path, c.Digest)
	}

	changes, err = det.Changes(context.Background(), st)
	require.NoError(t, err)
	assert.Empty(t, changes, "recorded content must not be reported again")

	require.NoError(t, os.WriteFile("style.css", []byte("body{color:red}"), domain.FilePerm))
	changes, err = det.Changes(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "style.css", changes[0].Path)

	st.SetFingerprint(changes[0].Path, changes[0].Digest)

	// A deleted output is reported for its writer to rebuild.
	require.NoError(t, os.Remove(filepath.Join(dir, "out.txt")))
	changes, err = det.Changes(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "out.txt", changes[0].Path)
	assert.Empty(t, changes[0].Digest)
	assert.NotEmpty(t, changes[0].Previous)

	// A deleted input that nothing writes is an error.
	require.NoError(t, os.Remove(filepath.Join(dir, "style.css")))
	_, err = det.Changes(context.Background(), st)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFileAccess))
	assert.True(t, errors.Is(err, iofs.ErrNotExist))
}

func TestDetector_Scan(t *testing.T) {
	ctrl := gomock.NewController(t)
	fp := mocks.NewMockFingerprinter(ctrl)
	fp.EXPECT().Fingerprint(gomock.Any()).DoAndReturn(func(path string) (string, error) {
		return "new-" + path, nil
	}).AnyTimes()

	st := corpusState(t)
	st.SetFingerprint("out.txt", "new-out.txt")
	det := detector.New(fp, 0)

	collect := func() []string {
		var paths []string
		for path, err := range det.Scan(context.Background(), st) {
			require.NoError(t, err)
			paths = append(paths, path)
		}
		return paths
	}

	first := collect()
	assert.Equal(t, []string{"file.txt", "style.css"}, first)
	assert.Equal(t, first, collect(), "scan is restartable")

	for path := range det.Scan(context.Background(), st) {
		assert.Equal(t, "file.txt", path)
		break
	}
}

func TestDetector_ScanError(t *testing.T) {
	ctrl := gomock.NewController(t)
	fp := mocks.NewMockFingerprinter(ctrl)
	fp.EXPECT().Fingerprint(gomock.Any()).Return("", iofs.ErrNotExist).AnyTimes()

	var errs []error
	for path, err := range detector.New(fp, 1).Scan(context.Background(), corpusState(t)) {
		assert.Empty(t, path)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], domain.ErrFileAccess))
}

func TestDetector_Cancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	fp := mocks.NewMockFingerprinter(ctrl)
	fp.EXPECT().Fingerprint(gomock.Any()).Return("x", nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := detector.New(fp, 1).Changes(ctx, corpusState(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetector_MissingDeclaredOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	fp := mocks.NewMockFingerprinter(ctrl)
	fp.EXPECT().Fingerprint("file.txt").Return("f1", nil)
	fp.EXPECT().Fingerprint("out.txt").Return("", domain.Classify(domain.ErrFileAccess, iofs.ErrNotExist))
	fp.EXPECT().Fingerprint("style.css").Return("s1", nil)

	st := corpusState(t)
	st.SetFingerprint("file.txt", "f1")
	st.SetFingerprint("style.css", "s1")

	changes, err := detector.New(fp, 1).Changes(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []detector.Change{{Path: "out.txt"}}, changes, "an output not produced yet counts as changed")
}

func TestDetector_MissingUndeclaredInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	fp := mocks.NewMockFingerprinter(ctrl)
	fp.EXPECT().Fingerprint("style.css").Return("", domain.Classify(domain.ErrFileAccess, iofs.ErrNotExist))
	fp.EXPECT().Fingerprint(gomock.Any()).Return("x", nil).AnyTimes()

	_, err := detector.New(fp, 1).Changes(context.Background(), corpusState(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFileAccess))
}
