package s3

import (
	"io"
	"os"
)

// lenSeeker is satisfied by *bytes.Reader and *strings.Reader.
type lenSeeker interface {
	io.ReadSeeker
	Len() int
}

// sized returns a seekable body with a known length for r. Readers that
// already know their length are used as-is; anything else is copied to a
// temporary file that cleanup removes.
func sized(r io.Reader) (io.ReadSeeker, int64, func(), error) {
	if ls, ok := r.(lenSeeker); ok {
		return ls, int64(ls.Len()), func() {}, nil
	}

	tmp, err := os.CreateTemp("", "attachment-upload-*")
	if err != nil {
		return nil, 0, nil, err
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return nil, 0, nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, nil, err
	}
	return tmp, n, cleanup, nil
}
