package utils

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
)

// Checksum contains the digests of a built package file
type Checksum struct {
	MD5    string
	SHA1   string
	SHA256 string
	Size   int64
}

// CalculateChecksums calculates all checksums for a file in a single pass
func CalculateChecksums(path string) (*Checksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	md5Hash := md5.New()
	sha1Hash := sha1.New()
	sha256Hash := sha256.New()

	if _, err := io.Copy(io.MultiWriter(md5Hash, sha1Hash, sha256Hash), f); err != nil {
		return nil, err
	}

	return &Checksum{
		MD5:    hex.EncodeToString(md5Hash.Sum(nil)),
		SHA1:   hex.EncodeToString(sha1Hash.Sum(nil)),
		SHA256: hex.EncodeToString(sha256Hash.Sum(nil)),
		Size:   info.Size(),
	}, nil
}

// SumParts returns the raw digest of the concatenation of parts
func SumParts(hashType string, parts ...[]byte) []byte {
	h := newHash(hashType)
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// CalculateChecksum returns the hex digest of data
func CalculateChecksum(data []byte, hashType string) string {
	return hex.EncodeToString(SumParts(hashType, data))
}

func newHash(hashType string) hash.Hash {
	switch hashType {
	case "md5":
		return md5.New()
	case "sha1":
		return sha1.New()
	default:
		return sha256.New()
	}
}
