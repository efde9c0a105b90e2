// Package layer builds and publishes AWS Lambda layer archives. A layer
// bundles a dependency tree under the managed runtime's library search
// path so many functions can share one copy. Building strips build
// artifacts and metadata and produces a deterministic zip; publishing
// pushes the archive through the Lambda control plane as a new layer
// version.
package layer

import (
	"archive/zip"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"
)

// MaxArchiveBytes is the Lambda direct upload limit for a zipped layer.
// Larger archives must go through S3, which this package does not do.
const MaxArchiveBytes = 50 << 20

// DefaultExcludes are the build artifacts and metadata stripped from every
// archive unless the spec replaces them.
var DefaultExcludes = []string{
	"__pycache__",
	"*.pyc",
	"*.dist-info",
	"*.egg-info",
	"tests",
	".git",
	".DS_Store",
}

// Spec describes one layer: what to call it, which runtimes and CPU
// architectures may consume it, and how its content tree is laid out.
type Spec struct {
	// Name is the layer name registered with the platform.
	Name string
	// Description and LicenseInfo are published as layer metadata.
	Description string
	LicenseInfo string
	// CompatibleRuntimes lists runtime identifiers, such as python3.12.
	CompatibleRuntimes []string
	// CompatibleArchitectures lists CPU architectures, such as arm64.
	CompatibleArchitectures []string
	// ContentPrefix is the directory every entry is placed under so the
	// runtime's library search path finds it, such as "python" or
	// "nodejs/node_modules". Empty means the archive root.
	ContentPrefix string
	// Exclude holds glob patterns matched against each path element.
	// A matched directory is pruned with everything beneath it. Nil means
	// DefaultExcludes; an empty non-nil slice excludes nothing.
	Exclude []string
}

func (s Spec) excludes() []string {
	if s.Exclude == nil {
		return DefaultExcludes
	}
	return s.Exclude
}

func (s Spec) excluded(base string) bool {
	for _, pattern := range s.excludes() {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// BuildInfo summarizes a completed build.
type BuildInfo struct {
	// Files is the number of entries written to the archive.
	Files int
	// SourceBytes is the total uncompressed size of those entries.
	SourceBytes int64
	// ArchiveBytes is the size of the finished zip.
	ArchiveBytes int64
	// SHA256 is the hex digest of the finished zip.
	SHA256 string
}

// archiveEpoch is the timestamp stamped on every entry so that building
// twice from the same tree yields byte-identical archives. The zip format
// cannot represent times before 1980.
var archiveEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Build walks srcDir, prunes excluded entries, and writes the layer zip to
// w. Entries are written in lexical path order under the spec's content
// prefix with a fixed timestamp, so the output is deterministic.
func Build(spec Spec, srcDir string, w io.Writer) (*BuildInfo, error) {
	root, err := filepath.Abs(srcDir)
	if err != nil {
		return nil, fmt.Errorf("layer: resolve source dir: %w", err)
	}
	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("layer: source dir: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("layer: source %s is not a directory", srcDir)
	}

	counter := &countingWriter{w: w}
	hasher := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(counter, hasher))

	out := &BuildInfo{}
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		if spec.excluded(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		name := path.Join(spec.ContentPrefix, filepath.ToSlash(rel))
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()

		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: archiveEpoch,
		})
		if err != nil {
			return err
		}
		n, err := io.Copy(entry, f)
		if err != nil {
			return err
		}
		out.Files++
		out.SourceBytes += n
		return nil
	})
	if walkErr != nil {
		_ = zw.Close()
		return nil, fmt.Errorf("layer: build archive: %w", walkErr)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("layer: finalize archive: %w", err)
	}
	out.ArchiveBytes = counter.n
	out.SHA256 = hex.EncodeToString(hasher.Sum(nil))
	return out, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
