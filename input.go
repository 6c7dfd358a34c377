package scqc

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

// Compression identifies the compression wrapper around an input stream.
type Compression byte

const (
	CompressionInvalid Compression = iota
	CompressionNone
	CompressionGzip
	CompressionZip
	CompressionXZ
	CompressionZ
	CompressionBzip2
)

// Magic bytes from https://stackoverflow.com/a/19127748/199475
var compressionSigs = map[Compression][]byte{
	CompressionGzip:  {0x1f, 0x8b, 0x08},
	CompressionZip:   {0x50, 0x4b, 0x03, 0x04},
	CompressionXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	CompressionZ:     {0x1f, 0x9d},
	CompressionBzip2: {0x42, 0x5a, 0x68},
}

// Matrices and annotation tables tend to arrive however the quantification
// pipeline left them: plain, gzipped, zipped, or worse. The storage client is
// created once, on the first gs:// path we see; all pipeline IO is sequential
// so this needs no locking.
var storageClient *storage.Client

// ExpandHome expands a leading ~ to the current user's home directory.
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	usr, err := user.Current()
	if err != nil {
		return path, pfx.Err(err)
	}

	return filepath.Join(usr.HomeDir, path[2:]), nil
}

// OpenRaw opens path without interpreting its contents. The path may be a
// local file (with optional leading ~) or a gs:// Google Storage object.
func OpenRaw(path string) (io.ReadCloser, error) {
	if strings.HasPrefix(path, "gs://") {
		pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
		if len(pathParts) != 2 {
			return nil, fmt.Errorf("expected gs://bucket/object, but %q split into %d parts", path, len(pathParts))
		}

		ctx := context.Background()
		if storageClient == nil {
			var err error
			storageClient, err = storage.NewClient(ctx)
			if err != nil {
				return nil, pfx.Err(err)
			}
		}

		rdr, err := storageClient.Bucket(pathParts[0]).Object(pathParts[1]).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %v", path, err))
		}

		return rdr, nil
	}

	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return f, nil
}

// OpenInput opens path and transparently removes one layer of compression,
// detected from the stream's leading magic bytes. Zip archives yield their
// first member. Closing the returned reader closes the underlying file or
// object reader.
func OpenInput(path string) (io.ReadCloser, error) {
	raw, err := OpenRaw(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(raw)
	head, err := br.Peek(6)
	if err != nil && err != io.EOF {
		raw.Close()
		return nil, pfx.Err(err)
	}

	switch detectCompression(head) {
	case CompressionGzip:
		gz, err := gzip.NewReader(br)
		if err != nil {
			raw.Close()
			return nil, pfx.Err(err)
		}
		return &layeredReadCloser{Reader: gz, closer: raw}, nil
	case CompressionZip:
		zr := zipstream.NewReader(br)
		if _, err := zr.Next(); err != nil {
			raw.Close()
			return nil, pfx.Err(err)
		}
		return &layeredReadCloser{Reader: zr, closer: raw}, nil
	case CompressionXZ:
		xzr, err := xz.NewReader(br, 0)
		if err != nil {
			raw.Close()
			return nil, pfx.Err(err)
		}
		return &layeredReadCloser{Reader: xzr, closer: raw}, nil
	case CompressionZ:
		zr, err := zlib.NewReader(br)
		if err != nil {
			raw.Close()
			return nil, pfx.Err(err)
		}
		return &layeredReadCloser{Reader: zr, closer: raw}, nil
	case CompressionBzip2:
		return &layeredReadCloser{Reader: bzip2.NewReader(br), closer: raw}, nil
	}

	// No known signature; assume the stream is uncompressed.
	return &layeredReadCloser{Reader: br, closer: raw}, nil
}

func detectCompression(head []byte) Compression {
Outer:
	for compression, sig := range compressionSigs {
		if len(head) < len(sig) {
			continue
		}
		for i := range sig {
			if head[i] != sig[i] {
				continue Outer
			}
		}
		return compression
	}

	return CompressionNone
}

// layeredReadCloser reads from the decompression layer but closes the raw
// source beneath it.
type layeredReadCloser struct {
	io.Reader
	closer io.Closer
}

func (l *layeredReadCloser) Close() error {
	return l.closer.Close()
}
