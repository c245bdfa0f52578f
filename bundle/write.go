package bundle

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/teranos/reductionist/errors"
)

// Write renders all four artifacts, stages them as temporary files in dir and
// renames them into place only once every one was written.
func Write(dir, name string, a *Artifacts) error {
	if name == "" || name != filepath.Base(name) {
		return errors.Newf("invalid bundle name %q", name)
	}

	rendered, err := render(a)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "failed to create output directory %s", dir)
	}

	targets := Paths(dir, name)
	for _, target := range targets {
		if info, err := os.Stat(target); err == nil && info.IsDir() {
			return errors.Newf("cannot replace directory %s with an artifact", target)
		}
	}

	staged := make([]string, 0, len(targets))
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}

	for i, target := range targets {
		tmp, err := stage(dir, filepath.Base(target), rendered[i])
		if err != nil {
			cleanup()
			return err
		}
		staged = append(staged, tmp)
	}

	for i, tmp := range staged {
		if err := os.Rename(tmp, targets[i]); err != nil {
			cleanup()
			return errors.Wrapf(err, "failed to move %s into place", targets[i])
		}
	}
	return nil
}

// render produces the artifact bytes in Extensions order
func render(a *Artifacts) ([][]byte, error) {
	if a == nil || a.Grammar == nil || a.Meaningfulness == nil || a.Variants == nil || a.Dictionary == nil || a.Meanings == nil {
		return nil, errors.AssertionFailedf("incomplete artifacts")
	}

	grammarJSON, err := json.Marshal(newGrammarFile(a))
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode grammar file")
	}

	var trie bytes.Buffer
	if _, err := a.Dictionary.WriteTo(&trie); err != nil {
		return nil, errors.Wrap(err, "failed to encode path dictionary")
	}

	var meanings bytes.Buffer
	if err := writeMeanings(&meanings, a.Grammar, a.Meanings); err != nil {
		return nil, errors.Wrap(err, "failed to encode meanings")
	}

	var stats bytes.Buffer
	if err := writeStats(&stats, newStats(a)); err != nil {
		return nil, errors.Wrap(err, "failed to encode stats")
	}

	return [][]byte{grammarJSON, trie.Bytes(), meanings.Bytes(), stats.Bytes()}, nil
}

func stage(dir, base string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return "", errors.Wrapf(err, "failed to stage %s", base)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrapf(err, "failed to write %s", base)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrapf(err, "failed to sync %s", base)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrapf(err, "failed to close %s", base)
	}
	if err := os.Chmod(f.Name(), 0644); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrapf(err, "failed to set permissions on %s", base)
	}
	return f.Name(), nil
}
