package model

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

// protocol 4 pickle of the integer 1
var minimalPickle = []byte{0x80, 0x04, 'K', 0x01, '.'}

func compress(t *testing.T, kind string, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	var w io.WriteCloser
	switch kind {
	case "zlib":
		w = zlib.NewWriter(&buf)
	case "gzip":
		w = gzip.NewWriter(&buf)
	case "xz":
		xw, err := xz.NewWriter(&buf)
		require.NoError(t, err)
		w = xw
	case "lzma":
		lw, err := lzma.NewWriter(&buf)
		require.NoError(t, err)
		w = lw
	case "lz4":
		w = lz4.NewWriter(&buf)
	default:
		t.Fatalf("unknown compression %q", kind)
	}

	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestValidate_Pickle(t *testing.T) {
	require.NoError(t, Validate(FormatPickle, bytes.NewReader(minimalPickle)))

	// protocol 0 streams have no header
	require.NoError(t, Validate(FormatPickle, strings.NewReader("I1\n.")))

	tests := map[string][]byte{
		"invalid file": []byte("invalid file"),
		"empty":        {},
		"truncated":    minimalPickle[:4],
		"bad protocol": {0x80, 0x09, 'K', 0x01, '.'},
		"header only":  {0x80},
	}
	for name, data := range tests {
		err := Validate(FormatPickle, bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrDeserialization, name)
	}
}

func TestValidate_Joblib(t *testing.T) {
	require.NoError(t, Validate(FormatJoblib, bytes.NewReader(minimalPickle)))
	require.NoError(t, Validate(FormatJoblib, bytes.NewReader(compress(t, "zlib", minimalPickle))))
	require.NoError(t, Validate(FormatJoblib, bytes.NewReader(compress(t, "gzip", minimalPickle))))
	for _, kind := range []string{"xz", "lzma", "lz4"} {
		packed := compress(t, kind, minimalPickle)
		require.NoError(t, Validate(FormatJoblib, bytes.NewReader(packed)), kind)

		bad := compress(t, kind, []byte("not a pickle"))
		assert.ErrorIs(t, Validate(FormatJoblib, bytes.NewReader(bad)), ErrDeserialization, kind)
	}

	err := Validate(FormatJoblib, strings.NewReader("invalid file"))
	assert.ErrorIs(t, err, ErrDeserialization)
	assert.Contains(t, err.Error(), "joblib")

	corrupt := compress(t, "zlib", []byte("not a pickle"))
	assert.ErrorIs(t, Validate(FormatJoblib, bytes.NewReader(corrupt)), ErrDeserialization)

	truncated := compress(t, "gzip", minimalPickle)
	truncated = truncated[:len(truncated)-6]
	assert.ErrorIs(t, Validate(FormatJoblib, bytes.NewReader(truncated)), ErrDeserialization)
}

func TestValidate_UnknownFormat(t *testing.T) {
	assert.ErrorIs(t, Validate(Format("onnx"), bytes.NewReader(minimalPickle)), ErrUnsupportedFormat)
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "model.pkl")
	require.NoError(t, os.WriteFile(good, minimalPickle, 0o644))
	assert.NoError(t, ValidateFile(FormatPickle, good))

	bad := filepath.Join(dir, "model.joblib")
	require.NoError(t, os.WriteFile(bad, []byte("invalid file"), 0o644))
	assert.ErrorIs(t, ValidateFile(FormatJoblib, bad), ErrDeserialization)

	assert.ErrorIs(t, ValidateFile(FormatPickle, filepath.Join(dir, "missing.pkl")), os.ErrNotExist)
}

func TestValidate_ProtocolZeroPickleWithZlibLikeHeader(t *testing.T) {
	data := "(S'a'\np0\ntp1\n."
	require.True(t, isZlib([]byte(data)))

	require.NoError(t, Validate(FormatPickle, strings.NewReader(data)))
	require.NoError(t, Validate(FormatJoblib, strings.NewReader(data)))

	err := Validate(FormatJoblib, strings.NewReader("(S'a'\np0\ntp1\n"))
	assert.ErrorIs(t, err, ErrDeserialization)
	assert.Contains(t, err.Error(), "zlib")
}
