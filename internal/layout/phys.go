package layout

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// withPhysChunk inserts a pHYs chunk right after IHDR so viewers and print
// drivers pick up the intended resolution.
func withPhysChunk(data []byte, dpi int) ([]byte, error) {
	if dpi <= 0 {
		return data, nil
	}
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, errors.New("layout: not a png stream")
	}
	// IHDR is always first: 4 length + 4 type + 13 data + 4 crc.
	ihdrEnd := len(pngSignature) + 25
	if len(data) < ihdrEnd || string(data[len(pngSignature)+4:len(pngSignature)+8]) != "IHDR" {
		return nil, errors.New("layout: png header missing")
	}

	ppm := uint32(math.Round(float64(dpi) / 0.0254))
	payload := make([]byte, 9)
	binary.BigEndian.PutUint32(payload[0:4], ppm)
	binary.BigEndian.PutUint32(payload[4:8], ppm)
	payload[8] = 1 // unit: metre

	chunk := make([]byte, 0, 21)
	chunk = binary.BigEndian.AppendUint32(chunk, uint32(len(payload)))
	chunk = append(chunk, "pHYs"...)
	chunk = append(chunk, payload...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:ihdrEnd]...)
	out = append(out, chunk...)
	out = append(out, data[ihdrEnd:]...)
	return out, nil
}
