package hashing

import (
	"bytes"
	"crypto/md5"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMD5HasherHashMatchesManualEigenSeed(t *testing.T) {
	payload := bytes.Repeat([]byte("abcdefgh"), 17) // > one chunk boundary isn't required, just realistic
	src := bytes.NewReader(payload)

	want := md5.New()
	want.Write(FileMD5Eigen)
	want.Write(payload)
	var wantSum [16]byte
	copy(wantSum[:], want.Sum(nil))

	h := MD5Hasher{Eigen: FileMD5Eigen, Kind: FileMD5}
	size := int64(len(payload))
	got, err := h.Hash(src, 0, &size)
	require.NoError(t, err)
	require.Equal(t, wantSum, got)
}

func TestMD5HasherHashToEOFWhenSizeNil(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")
	src := bytes.NewReader(payload)

	want := md5.New()
	want.Write(TOCMD5Eigen)
	want.Write(payload[5:])
	var wantSum [16]byte
	copy(wantSum[:], want.Sum(nil))

	h := MD5Hasher{Eigen: TOCMD5Eigen, Kind: TOCMD5}
	got, err := h.Hash(src, 5, nil)
	require.NoError(t, err)
	require.Equal(t, wantSum, got)
}

func TestMD5HasherValidateReturnsChecksumMismatch(t *testing.T) {
	src := bytes.NewReader([]byte("payload"))
	h := MD5Hasher{Eigen: FileMD5Eigen, Kind: FileMD5}
	size := int64(7)
	err := h.Validate(src, 0, &size, [16]byte{})
	require.Error(t, err)

	var mismatch *ChecksumMismatch
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, FileMD5, mismatch.Kind)
}

func TestMD5HasherChunksAcrossBoundaries(t *testing.T) {
	payload := bytes.Repeat([]byte{0x5a}, ChunkSize*3+17)
	src := bytes.NewReader(payload)

	want := md5.New()
	want.Write(FileMD5Eigen)
	want.Write(payload)
	var wantSum [16]byte
	copy(wantSum[:], want.Sum(nil))

	h := MD5Hasher{Eigen: FileMD5Eigen, Kind: FileMD5}
	size := int64(len(payload))
	got, err := h.Hash(src, 0, &size)
	require.NoError(t, err)
	require.Equal(t, wantSum, got)
}

func TestCRC32MatchesStandardIEEE(t *testing.T) {
	payload := []byte("crc32 me")
	got, err := CRC32(bytes.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, crc32.ChecksumIEEE(payload), got)
}

func TestValidateCRC32ReturnsMismatchOnFailure(t *testing.T) {
	err := ValidateCRC32(bytes.NewReader([]byte("data")), 0)
	require.Error(t, err)
	var mismatch *ChecksumMismatch
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, FileCRC32, mismatch.Kind)
}

func TestValidateCRC32PassesOnMatch(t *testing.T) {
	payload := []byte("data")
	require.NoError(t, ValidateCRC32(bytes.NewReader(payload), crc32.ChecksumIEEE(payload)))
}
