package model

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

const (
	pickleProto    = 0x80
	pickleStop     = '.'
	pickleMaxProto = 5
)

// Compressed containers joblib may write.
var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicXZ    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicLZMA  = []byte{0x5d, 0x00, 0x00}
	magicLZ4   = []byte{0x04, 0x22, 0x4d, 0x18}
)

// ValidateFile checks that the artifact at path looks like a well-formed
// stream of the given format.
func ValidateFile(format Format, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	return Validate(format, file)
}

// Validate checks r against format. It streams the input and does not
// interpret the objects inside. r is rewound when a compressed header turns
// out to be the start of a plain pickle.
func Validate(format Format, r io.ReadSeeker) error {
	var err error
	switch format {
	case FormatPickle:
		err = validatePickle(r)
	case FormatJoblib:
		err = validateJoblib(r)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("%w (%s): %w", ErrDeserialization, format, err)
	}

	return nil
}

func validateJoblib(r io.ReadSeeker) error {
	br := bufio.NewReader(r)
	head, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return err
	}

	switch {
	case isZlib(head):
		zerr := validateZlib(br)
		if zerr == nil {
			return nil
		}
		// protocol 0 pickles can carry a valid zlib header
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("zlib: %w", zerr)
		}
		if err := validatePickle(r); err != nil {
			return fmt.Errorf("zlib: %w", zerr)
		}
		return nil
	case bytes.HasPrefix(head, magicGzip):
		gr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer gr.Close()
		return validatePickle(gr)
	case bytes.HasPrefix(head, magicBzip2):
		return validatePickle(bzip2.NewReader(br))
	case bytes.HasPrefix(head, magicXZ):
		xr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("xz: %w", err)
		}
		return validatePickle(xr)
	case bytes.HasPrefix(head, magicLZMA):
		lr, err := lzma.NewReader(br)
		if err != nil {
			return fmt.Errorf("lzma: %w", err)
		}
		return validatePickle(lr)
	case bytes.HasPrefix(head, magicLZ4):
		return validatePickle(lz4.NewReader(br))
	default:
		return validatePickle(br)
	}
}

func validateZlib(r io.Reader) error {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()

	return validatePickle(zr)
}

func isZlib(head []byte) bool {
	if len(head) < 2 || head[0]&0x0f != 8 {
		return false
	}
	return (uint16(head[0])<<8|uint16(head[1]))%31 == 0
}

// validatePickle checks the protocol header and the trailing STOP opcode.
func validatePickle(r io.Reader) error {
	edges := &edgeWriter{}
	if _, err := io.Copy(edges, r); err != nil {
		return err
	}

	switch {
	case edges.n == 0:
		return fmt.Errorf("empty stream")
	case edges.head[0] == pickleProto:
		if edges.n < 2 {
			return fmt.Errorf("truncated protocol header")
		}
		if v := edges.head[1]; v < 2 || v > pickleMaxProto {
			return fmt.Errorf("unsupported pickle protocol %d", v)
		}
	}

	if edges.last != pickleStop {
		return fmt.Errorf("missing STOP opcode")
	}

	return nil
}

// edgeWriter remembers the first two and the last byte written to it.
type edgeWriter struct {
	head [2]byte
	last byte
	n    int64
}

func (w *edgeWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for i := 0; w.n+int64(i) < 2 && i < len(p); i++ {
		w.head[w.n+int64(i)] = p[i]
	}
	w.last = p[len(p)-1]
	w.n += int64(len(p))
	return len(p), nil
}
