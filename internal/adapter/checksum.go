package adapter

import (
	"bufio"
	"crypto/md5"  //nolint:gosec // user-selectable legacy algorithm
	"crypto/sha1" //nolint:gosec // user-selectable legacy algorithm
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ChecksumEntry is one file in a checksum manifest: path relative to the
// manifest's directory plus its digest.
type ChecksumEntry struct {
	RelPath string
	Digest  string
}

// ChecksumFile is the manifest the hasher writes beside a source and the
// verifier reads beside a target. The on-disk format is the classic
// coreutils one: `<digest> *<relpath>` per line, algorithm implied by the
// file extension.
type ChecksumFile struct {
	Algorithm string
	Entries   []ChecksumEntry
}

// NewDigest returns a fresh hash for the named algorithm.
func NewDigest(algorithm string) (hash.Hash, error) {
	switch strings.ToLower(algorithm) {
	case "md5":
		return md5.New(), nil //nolint:gosec
	case "sha1":
		return sha1.New(), nil //nolint:gosec
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
}

// HashFile computes the digest of one file.
func HashFile(algorithm, path string) (string, error) {
	h, err := NewDigest(algorithm)
	if err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksumFile writes the manifest to path.
func WriteChecksumFile(path string, cf *ChecksumFile) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, entry := range cf.Entries {
		if _, err := fmt.Fprintf(w, "%s *%s\n", entry.Digest, filepath.ToSlash(entry.RelPath)); err != nil {
			_ = f.Close()
			return err
		}
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// ReadChecksumFile parses the manifest at path. The algorithm comes from
// the file extension.
func ReadChecksumFile(path string) (*ChecksumFile, error) {
	algorithm := strings.TrimPrefix(filepath.Ext(path), ".")
	if _, err := NewDigest(algorithm); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = f.Close()
	}()

	cf := &ChecksumFile{Algorithm: algorithm}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		digest, rest, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("malformed checksum line %q in %s", line, path)
		}

		rel := strings.TrimPrefix(rest, "*")
		cf.Entries = append(cf.Entries, ChecksumEntry{
			RelPath: filepath.FromSlash(rel),
			Digest:  digest,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cf, nil
}
