package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind tags a worker category with its eviction policy.
type Kind struct {
	Name          string
	SessionScoped bool
}

// Predefined daemon kinds. Callers may define their own; only the name
// participates in fingerprint identity.
var (
	KindGeneral = Kind{Name: "general"}
	KindCompile = Kind{Name: "compile", SessionScoped: true}
)

// KindByName resolves a predefined kind by name. Unknown names map to the
// general policy under the given name so external callers can introduce
// kinds without code changes here.
func KindByName(name string) Kind {
	switch name {
	case KindCompile.Name:
		return KindCompile
	case KindGeneral.Name, "":
		return KindGeneral
	default:
		return Kind{Name: name}
	}
}

// Requirements captures everything that determines whether an existing
// worker can serve a work item.
type Requirements struct {
	// Classpath entries, files or directories. Treated as an unordered,
	// content-identified set.
	Classpath []string
	// VMArgs in launch order. Order is part of identity.
	VMArgs []string
	// LogLevel requested for the worker process.
	LogLevel string
	// Kind of worker daemon the item needs.
	Kind Kind
}

// NormalizeLevel returns the canonical form of a log level as it
// participates in fingerprint identity. Session boundaries must compare
// levels in this form.
func NormalizeLevel(level string) string {
	return strings.ToLower(strings.TrimSpace(level))
}

// Fingerprint is the derived identity of a requirement set. The zero value
// matches nothing.
type Fingerprint struct {
	digest   string
	logLevel string
	kind     Kind
}

// Compute derives a fingerprint from the requirements. It is deterministic:
// the same requirement contents always produce the same digest. Classpath
// entries are hashed by content; an unreadable entry is an error.
func Compute(req Requirements) (Fingerprint, error) {
	entryHashes := make([]string, 0, len(req.Classpath))
	for _, entry := range req.Classpath {
		sum, err := hashEntry(entry)
		if err != nil {
			return Fingerprint{}, fmt.Errorf("classpath entry %s: %w", entry, err)
		}
		entryHashes = append(entryHashes, sum)
	}
	sort.Strings(entryHashes)

	level := NormalizeLevel(req.LogLevel)

	digest := sha256.New()
	writeCount(digest, len(entryHashes))
	for _, sum := range entryHashes {
		writeString(digest, sum)
	}
	writeCount(digest, len(req.VMArgs))
	for _, arg := range req.VMArgs {
		writeString(digest, arg)
	}
	writeString(digest, level)
	writeString(digest, req.Kind.Name)

	return Fingerprint{
		digest:   hex.EncodeToString(digest.Sum(nil)),
		logLevel: level,
		kind:     req.Kind,
	}, nil
}

// Digest returns the full hex digest.
func (f Fingerprint) Digest() string { return f.digest }

// Short returns an abbreviated digest for log lines and tables.
func (f Fingerprint) Short() string {
	if len(f.digest) < 12 {
		return f.digest
	}
	return f.digest[:12]
}

// LogLevel returns the log level the fingerprint was computed with.
func (f Fingerprint) LogLevel() string { return f.logLevel }

// Kind returns the daemon kind the fingerprint was computed with.
func (f Fingerprint) Kind() Kind { return f.kind }

// Equal reports whether two fingerprints identify interchangeable workers.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.digest != "" && f.digest == other.digest
}

// IsZero reports whether the fingerprint was never computed.
func (f Fingerprint) IsZero() bool { return f.digest == "" }

func (f Fingerprint) String() string { return f.Short() }

func hashEntry(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	hash := sha256.New()
	if info.IsDir() {
		err = filepath.WalkDir(path, func(sub string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(path, sub)
			if relErr != nil {
				return relErr
			}
			writeString(hash, filepath.ToSlash(rel))
			return hashFileInto(hash, sub)
		})
		if err != nil {
			return "", err
		}
	} else {
		if err := hashFileInto(hash, path); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

func hashFileInto(dst io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return err
	}
	return nil
}

func writeString(dst io.Writer, value string) {
	writeCount(dst, len(value))
	io.WriteString(dst, value) //nolint:errcheck
}

func writeCount(dst io.Writer, n int) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(n))
	dst.Write(buf[:]) //nolint:errcheck
}
