package main

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/northvolt/go-fpgasign/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd, _ := newCommands(strings.NewReader(stdin), &out, &errOut)
	err := cmd.ParseAndRun(context.Background(), args)
	return out.String(), errOut.String(), err
}

func testKey() []byte {
	key, _ := parseKey(defaultKey)
	return key
}

func expectedSignature(t *testing.T, payload []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(testKey())
	require.NoError(t, err)
	digest := sha256.Sum256(payload)
	sig := make([]byte, len(digest))
	cipher.NewCBCEncrypter(block, []byte(defaultIV)).CryptBlocks(sig, digest[:])
	return sig
}

func TestBenchAndVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.out")

	_, stderr, err := run(t, "",
		"bench", "-i", "emu", "-iters", "4", "-seed", "1", "-verify", "-out", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Total time:")
	assert.Contains(t, stderr, "Time per iteration:")
	assert.Contains(t, stderr, "Verified 4 signatures")

	f, err := os.Open(path)
	require.NoError(t, err)
	records, err := record.ReadAll(record.NewTextReader(f))
	f.Close()
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, r := range records {
		assert.Equal(t, expectedSignature(t, r.Payload), r.Signature)
	}

	stdout, _, err := run(t, "", "verify", "-in", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "4 of 4 records verified")
}

func TestVerifyMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.out")
	payload := []byte("0001002003004000abcd0ef003ff0007")

	var buf bytes.Buffer
	w := record.NewTextWriter(&buf)
	require.NoError(t, w.Write(record.Record{Payload: payload, Signature: expectedSignature(t, payload)}))
	require.NoError(t, w.Write(record.Record{Payload: payload, Signature: make([]byte, 32)}))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	stdout, _, err := run(t, "", "verify", "-in", path)
	assert.ErrorContains(t, err, "1 invalid signatures")
	assert.Contains(t, stdout, "record 1:")
	assert.Contains(t, stdout, "1 of 2 records verified")
}

func TestBenchJSONStdout(t *testing.T) {
	stdout, _, err := run(t, "",
		"bench", "-i", "emu", "-iters", "2", "-source", "random", "-format", "json", "-out", "-")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		var rec struct {
			Payload   string `json:"payload"`
			Signature string `json:"signature"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Len(t, rec.Payload, 32)
		assert.Equal(t, hex.EncodeToString(expectedSignature(t, []byte(rec.Payload))), rec.Signature)
	}
}

func TestBenchErrors(t *testing.T) {
	_, _, err := run(t, "", "bench", "-i", "emu", "-iters", "0", "-out", "-")
	assert.ErrorContains(t, err, "iterations must be positive")

	_, _, err = run(t, "", "bench", "-i", "emu", "-source", "dice", "-out", "-")
	assert.ErrorContains(t, err, "unknown source")

	_, _, err = run(t, "", "bench", "-i", "carrier-pigeon", "-source", "random", "-out", "-")
	assert.ErrorContains(t, err, "unknown interface")

	_, _, err = run(t, "", "bench", "-i", "emu", "-format", "xml", "-out", "-")
	assert.ErrorContains(t, err, "unknown format")
}

func TestSign(t *testing.T) {
	payload := "0123456789abcdef0123456789abcdef"

	stdout, _, err := run(t, payload+"\n", "sign", "-i", "emu", "-verify", "-json")
	require.NoError(t, err)

	var got signOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, payload, got.Payload)
	assert.Equal(t, hex.EncodeToString(expectedSignature(t, []byte(payload))), got.Signature)
	require.NotNil(t, got.Verified)
	assert.True(t, *got.Verified)

	stdout, _, err = run(t, payload, "sign", "-i", "emu", "-verify")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Signature is valid")

	_, _, err = run(t, "too short", "sign", "-i", "emu")
	assert.ErrorContains(t, err, "payload is 9 bytes")
}

func TestDecrypt(t *testing.T) {
	plaintext := bytes.Repeat([]byte("fpga"), 8)
	block, err := aes.NewCipher(testKey())
	require.NoError(t, err)
	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, []byte(defaultIV)).CryptBlocks(ciphertext, plaintext)

	// split over lines like prettyHex output
	in := prettyHex(ciphertext)
	stdout, _, err := run(t, in, "decrypt", "-raw")
	require.NoError(t, err)
	assert.Equal(t, string(plaintext), stdout)

	_, _, err = run(t, "00112233", "decrypt")
	assert.ErrorContains(t, err, "cipher setup failed")
}
