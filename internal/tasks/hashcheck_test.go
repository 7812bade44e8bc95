package tasks_test

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lambda-feedback/wrangler/internal/tasks"
)

const artifactName = "release-1.2.0.tar.gz"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// writeArtifact writes the artifact and its checksum file and returns the
// checksum file path.
func writeArtifact(t *testing.T, algorithm, content, hashContent string) string {
	t.Helper()

	dir := t.TempDir()

	artifactPath := filepath.Join(dir, artifactName)
	writeFile(t, artifactPath, content)

	hashPath := artifactPath + "." + algorithm
	writeFile(t, hashPath, hashContent)

	return hashPath
}

func sha256Hex(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func sha512Hex(content string) string {
	sum := sha512.Sum512([]byte(content))
	return hex.EncodeToString(sum[:])
}

func runHashCheck(t *testing.T, hashPath string) error {
	t.Helper()

	handler, err := tasks.NewHashCheck()
	require.NoError(t, err)

	args, err := json.Marshal(map[string]string{"path": hashPath})
	require.NoError(t, err)

	return handler.Run(context.Background(), args, zap.NewNop())
}

func TestHashCheck_BareDigest(t *testing.T) {
	content := "some artifact bytes\n"
	hashPath := writeArtifact(t, "sha256", content, sha256Hex(content)+"\n")

	assert.NoError(t, runHashCheck(t, hashPath))
}

func TestHashCheck_CoreutilsFormat(t *testing.T) {
	content := "some artifact bytes\n"
	hashContent := sha256Hex(content) + "  " + artifactName + "\n"
	hashPath := writeArtifact(t, "sha256", content, hashContent)

	assert.NoError(t, runHashCheck(t, hashPath))
}

func TestHashCheck_FilenamePrefixFormat(t *testing.T) {
	content := "some artifact bytes\n"
	digest := sha256Hex(content)

	// digest wrapped in space-separated groups across continuation lines
	hashContent := artifactName + ": " +
		digest[:16] + " " + digest[16:32] + "\n" +
		"          " + digest[32:48] + " " + digest[48:] + "\n"
	hashPath := writeArtifact(t, "sha256", content, hashContent)

	assert.NoError(t, runHashCheck(t, hashPath))
}

func TestHashCheck_Sha512(t *testing.T) {
	content := "some artifact bytes\n"
	hashPath := writeArtifact(t, "sha512", content, sha512Hex(content)+"\n")

	assert.NoError(t, runHashCheck(t, hashPath))
}

func TestHashCheck_UppercaseDigest(t *testing.T) {
	content := "some artifact bytes\n"
	hashContent := strings.ToUpper(sha256Hex(content)) + "\n"
	hashPath := writeArtifact(t, "sha256", content, hashContent)

	assert.NoError(t, runHashCheck(t, hashPath))
}

func TestHashCheck_Mismatch(t *testing.T) {
	hashPath := writeArtifact(t, "sha256", "some artifact bytes\n", sha256Hex("other bytes")+"\n")

	err := runHashCheck(t, hashPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatch")
}

func TestHashCheck_UnsupportedAlgorithm(t *testing.T) {
	hashPath := writeArtifact(t, "md5", "some artifact bytes\n", "d41d8cd98f00b204e9800998ecf8427e\n")

	err := runHashCheck(t, hashPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported hash algorithm")
}

func TestHashCheck_MissingArtifact(t *testing.T) {
	dir := t.TempDir()

	hashPath := filepath.Join(dir, artifactName+".sha256")
	writeFile(t, hashPath, sha256Hex("anything")+"\n")

	err := runHashCheck(t, hashPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error hashing artifact")
}

func TestHashCheck_EmptyHashFile(t *testing.T) {
	hashPath := writeArtifact(t, "sha256", "some artifact bytes\n", "  \n")

	err := runHashCheck(t, hashPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
