// Package source resolves a grammar argument to a local file.
//
// Uses hashicorp/go-getter for flexible source handling including:
//   - Local paths
//   - HTTP(S) URLs, fetched through an SSRF-guarded client
//   - Forced getters (s3::, gcs::, git::) and archives with auto-extraction
package source

import (
	"context"
	"crypto/sha256"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-getter"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/logger"
)

// DefaultTimeout bounds a single HTTP fetch
const DefaultTimeout = 60 * time.Second

// Options configures resolution
type Options struct {
	// CacheDir keeps fetched grammars between runs; empty fetches into a temp dir
	CacheDir string
	// AllowPrivate disables the private-address guard on HTTP fetches
	AllowPrivate bool
	Timeout      time.Duration
	Logger       *zap.SugaredLogger
}

// Source is a grammar resolved to a local path
type Source struct {
	// Path is the local grammar file (either original or fetched)
	Path string
	// Input is the original argument
	Input string
	// Fetched reports whether Path was downloaded
	Fetched bool

	cleanup func()
}

// Cleanup removes any temporary files created for this source.
// Safe to call multiple times.
func (s *Source) Cleanup() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// Resolve turns input into a local grammar file, fetching it when it is remote.
// The returned Source must be cleaned up when done.
func Resolve(ctx context.Context, input string, opts Options) (*Source, error) {
	log := logger.OrNop(opts.Logger)
	if input == "" {
		return nil, errors.New("grammar source is empty")
	}

	if !IsRemote(input) {
		localPath, err := expandLocal(input)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(localPath)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "no grammar file at %s", localPath), errors.ErrLoad)
		}
		if info.IsDir() {
			return nil, errors.Mark(errors.Newf("%s is a directory, not a grammar file", localPath), errors.ErrLoad)
		}
		return &Source{Path: localPath, Input: input, cleanup: func() {}}, nil
	}

	return fetch(ctx, input, opts, log)
}

// IsRemote reports whether input names something go-getter must fetch
func IsRemote(input string) bool {
	if _, err := os.Stat(input); err == nil {
		return false
	}

	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}
	detected, err := getter.Detect(input, pwd, getter.Detectors)
	if err != nil {
		return false
	}
	parsed, err := url.Parse(detected)
	if err != nil {
		// Forced getters like "s3::https://..." do not parse as URLs
		return strings.Contains(detected, "::")
	}
	return parsed.Scheme != "" && parsed.Scheme != "file"
}

func expandLocal(input string) (string, error) {
	localPath := input
	if strings.HasPrefix(localPath, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to expand home directory")
		}
		localPath = filepath.Join(home, localPath[2:])
	}
	abs, err := filepath.Abs(localPath)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve %s", input)
	}
	return abs, nil
}

func fetch(ctx context.Context, input string, opts Options, log *zap.SugaredLogger) (*Source, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var dir string
	cleanup := func() {}
	if opts.CacheDir != "" {
		sum := sha256.Sum256([]byte(input))
		dir = filepath.Join(opts.CacheDir, base58.Encode(sum[:8]))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, "failed to create cache directory %s", dir)
		}
	} else {
		tmp, err := os.MkdirTemp("", "reductionist-source-*")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create temp directory")
		}
		dir = tmp
		cleanup = func() {
			log.Debugw("Cleaning up fetched grammar", logger.FieldDir, tmp)
			os.RemoveAll(tmp)
		}
	}

	dst := filepath.Join(dir, fileName(input))
	log.Infow("Fetching grammar", "input", input, logger.FieldFile, dst)

	client := &getter.Client{
		Ctx:     ctx,
		Src:     input,
		Dst:     dst,
		Mode:    getter.ClientModeFile,
		Getters: getters(timeout, opts.AllowPrivate),
	}
	if err := client.Get(); err != nil {
		cleanup()
		return nil, errors.Mark(errors.Wrapf(err, "failed to fetch grammar %s", input), errors.ErrLoad)
	}

	log.Debugw("Fetch completed", logger.FieldFile, dst)
	return &Source{Path: dst, Input: input, Fetched: true, cleanup: cleanup}, nil
}

// getters returns go-getter's defaults with HTTP(S) routed through the guarded client
func getters(timeout time.Duration, allowPrivate bool) map[string]getter.Getter {
	out := make(map[string]getter.Getter, len(getter.Getters))
	for scheme, g := range getter.Getters {
		out[scheme] = g
	}
	httpGetter := &getter.HttpGetter{
		Client: NewGuardedClient(timeout, !allowPrivate),
		Netrc:  true,
	}
	out["http"] = httpGetter
	out["https"] = httpGetter
	return out
}

// fileName picks a local name for a fetched grammar that keeps its extension,
// so the decoder can tell JSON from YAML
func fileName(input string) string {
	src := input
	if i := strings.Index(src, "::"); i >= 0 {
		src = src[i+2:]
	}
	name := ""
	if u, err := url.Parse(src); err == nil && u.Scheme != "" {
		name = path.Base(u.Path)
	} else {
		name = path.Base(src)
	}
	name = strings.NewReplacer(":", "-", "@", "-", " ", "-").Replace(name)
	if name == "" || name == "." || name == "/" {
		return "grammar.json"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}
