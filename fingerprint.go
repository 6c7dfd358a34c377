package scqc

import (
	"fmt"
	"io"

	"github.com/carbocation/pfx"
	"github.com/minio/blake2b-simd"
)

// Fingerprint hashes the raw bytes at path (before any decompression) so a
// report can state exactly which files produced it.
func Fingerprint(path string) (string, error) {
	raw, err := OpenRaw(path)
	if err != nil {
		return "", err
	}
	defer raw.Close()

	h, err := blake2b.New(&blake2b.Config{Size: 32})
	if err != nil {
		return "", pfx.Err(err)
	}

	if _, err := io.Copy(h, raw); err != nil {
		return "", pfx.Err(err)
	}

	return fmt.Sprintf("%X", h.Sum(nil)), nil
}
