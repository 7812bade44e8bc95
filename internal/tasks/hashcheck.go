package tasks

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

//go:embed hashcheck.json
var hashCheckSchema json.RawMessage

// HashCheck verifies a release artifact against its detached checksum file.
// The algorithm is taken from the checksum file's extension (.sha256 or
// .sha512), and the artifact path is the checksum path with that extension
// removed.
type HashCheck struct {
	schema *gojsonschema.Schema
}

func NewHashCheck() (*HashCheck, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(hashCheckSchema))
	if err != nil {
		return nil, fmt.Errorf("error compiling hashcheck schema: %w", err)
	}

	return &HashCheck{schema: schema}, nil
}

func (*HashCheck) Kind() string {
	return "hashcheck"
}

func (h *HashCheck) Schema() *gojsonschema.Schema {
	return h.schema
}

type hashCheckArgs struct {
	Path string `json:"path"`
}

func (h *HashCheck) Run(ctx context.Context, args json.RawMessage, log *zap.Logger) error {
	var a hashCheckArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("error parsing hashcheck args: %w", err)
	}

	hashPath := filepath.Clean(a.Path)

	algorithm := strings.TrimPrefix(filepath.Ext(hashPath), ".")

	var digest hash.Hash
	switch algorithm {
	case "sha256":
		digest = sha256.New()
	case "sha512":
		digest = sha512.New()
	default:
		return fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}

	// The checksum file is named after the artifact it covers, so
	// stripping the final extension yields the artifact path.
	artifactPath := strings.TrimSuffix(hashPath, filepath.Ext(hashPath))

	log.Info("checking artifact hash",
		zap.String("algorithm", algorithm),
		zap.String("artifact", artifactPath),
		zap.String("hash_file", hashPath))

	computed, err := hashFile(ctx, digest, artifactPath)
	if err != nil {
		return fmt.Errorf("error hashing artifact: %w", err)
	}

	expected, err := expectedDigest(hashPath, filepath.Base(artifactPath))
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(computed), []byte(expected)) != 1 {
		return fmt.Errorf("hash (%s) mismatch: computed %s, expected %s",
			algorithm, computed, expected)
	}

	log.Info("artifact hash matches expected value",
		zap.String("algorithm", algorithm),
		zap.String("hash", computed))

	return nil
}

// hashFile streams the file through the digest in small chunks, checking
// for cancellation between reads so that hashing a very large artifact
// does not outlive the task's context.
func hashFile(ctx context.Context, digest hash.Hash, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, 4096)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := f.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// expectedDigest extracts the expected hex digest from a checksum file.
// Three layouts are accepted: a bare digest, the coreutils
// "DIGEST  FILENAME" form, and the "FILENAME: DIGEST ..." form that wraps
// the digest in space-separated groups across continuation lines.
func expectedDigest(path, artifactName string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("error reading hash file: %w", err)
	}

	text := string(data)

	if strings.HasPrefix(text, artifactName) {
		text = strings.TrimPrefix(text, artifactName+":")
		text = strings.ReplaceAll(text, " ", "")
		text = strings.ReplaceAll(text, "\n", "")
		return strings.ToLower(text), nil
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", fmt.Errorf("hash file %s is empty", filepath.Base(path))
	}

	return strings.ToLower(fields[0]), nil
}
