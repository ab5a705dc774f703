// Package download saves generated images to disk with a tiered fallback:
// fetch the bytes and write a PNG; failing that, put the reference on the
// clipboard; failing that, hand the reference back for manual copy. The
// user is never left with a silent failure.
package download

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"golang.org/x/sync/errgroup"

	"clicklit/internal/logging"
)

// Method records which fallback tier produced the outcome.
type Method int

const (
	// MethodFile means the image bytes were written to disk.
	MethodFile Method = iota
	// MethodClipboard means the reference was copied to the clipboard.
	MethodClipboard
	// MethodManual means both tiers failed; the reference is returned for
	// the user to copy by hand.
	MethodManual
)

// Result describes a completed download attempt.
type Result struct {
	Method Method
	// Path of the written file (MethodFile only).
	Path string
	// Ref is the original image reference (clipboard/manual tiers).
	Ref string
}

// clipboardWriteAll is a package-level variable to allow mocking in tests.
var clipboardWriteAll = clipboard.WriteAll

// Saver writes generated images into an output directory.
type Saver struct {
	outDir string
	http   *http.Client
}

// NewSaver returns a saver writing into outDir.
func NewSaver(outDir string) *Saver {
	return &Saver{
		outDir: outDir,
		http:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Save stores the image for slot index (zero-based) as
// generated-image-<index+1>.png, falling through the tiers on failure.
// An error is returned only when even the manual tier cannot apply
// (empty reference).
func (s *Saver) Save(ctx context.Context, ref string, index int) (Result, error) {
	if ref == "" {
		return Result{}, fmt.Errorf("no image to download for slot %d", index+1)
	}

	name := fmt.Sprintf("generated-image-%d.png", index+1)
	path, err := s.fetchToFile(ctx, ref, name)
	if err == nil {
		logging.Download("saved %s", path)
		return Result{Method: MethodFile, Path: path}, nil
	}
	logging.DownloadError("fetch for %s failed: %v", name, err)

	if cerr := clipboardWriteAll(ref); cerr == nil {
		logging.Download("copied reference for %s to clipboard", name)
		return Result{Method: MethodClipboard, Ref: ref}, nil
	}

	return Result{Method: MethodManual, Ref: ref}, nil
}

// SaveAll downloads every non-empty slot concurrently. The first hard
// error cancels the remaining fetches; per-slot fallbacks still apply.
func (s *Saver) SaveAll(ctx context.Context, refs []string) ([]Result, error) {
	results := make([]Result, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range refs {
		if ref == "" {
			continue
		}
		i, ref := i, ref
		g.Go(func() error {
			res, err := s.Save(gctx, ref, i)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fetchToFile resolves the reference to bytes and writes them under the
// output directory. References are either HTTP(S) URLs or data: URIs,
// which is what the generation backend actually returns.
func (s *Saver) fetchToFile(ctx context.Context, ref, name string) (string, error) {
	var data []byte
	var err error
	if strings.HasPrefix(ref, "data:") {
		data, err = decodeDataURI(ref)
	} else {
		data, err = s.fetchURL(ctx, ref)
	}
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.outDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.outDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (s *Saver) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// decodeDataURI extracts the payload of a base64 data: URI.
func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URI")
	}
	meta, payload := uri[:comma], uri[comma+1:]
	if !strings.Contains(meta, "base64") {
		return nil, fmt.Errorf("unsupported data URI encoding")
	}
	return base64.StdEncoding.DecodeString(payload)
}
