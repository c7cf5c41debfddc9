package export

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
)

// Gzip compresses a payload for attachment or archival.
func Gzip(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)

	if _, err := w.Write(payload); err != nil {
		w.Close()
		return nil, fmt.Errorf("%w: gzip: %v", ErrSerialize, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: gzip close: %v", ErrSerialize, err)
	}
	return buf.Bytes(), nil
}
