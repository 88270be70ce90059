package export

import (
	"encoding/binary"
	"os"

	"github.com/spaghettifunk/reverie/engine/core"
)

const bmpHeaderSize = 54

// WriteBMP writes a 32-bpp uncompressed BMP. The stored height is
// negative so rows run top-down, matching the swapchain readback
// order. Pixels are BGRA, tightly packed, 4 bytes each.
func WriteBMP(path string, width, height uint32, bgra []byte) error {
	rowBytes := int(width) * 4
	imageBytes := rowBytes * int(height)
	if len(bgra) < imageBytes {
		core.LogError("bmp write %s: have %d pixel bytes, need %d", path, len(bgra), imageBytes)
		return core.ErrRecordFailure
	}

	header := make([]byte, bmpHeaderSize)
	header[0] = 'B'
	header[1] = 'M'
	binary.LittleEndian.PutUint32(header[2:], uint32(bmpHeaderSize+imageBytes))
	binary.LittleEndian.PutUint32(header[10:], bmpHeaderSize)

	binary.LittleEndian.PutUint32(header[14:], 40)
	binary.LittleEndian.PutUint32(header[18:], width)
	binary.LittleEndian.PutUint32(header[22:], uint32(int32(-int64(height))))
	binary.LittleEndian.PutUint16(header[26:], 1)
	binary.LittleEndian.PutUint16(header[28:], 32)
	binary.LittleEndian.PutUint32(header[34:], uint32(imageBytes))

	file, err := os.Create(path)
	if err != nil {
		core.LogError("bmp write %s: %s", path, err)
		return err
	}
	defer file.Close()

	if _, err := file.Write(header); err != nil {
		return err
	}
	if _, err := file.Write(bgra[:imageBytes]); err != nil {
		return err
	}
	return nil
}
