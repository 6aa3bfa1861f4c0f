package metadata

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// flacDuration reads the STREAMINFO block of a FLAC container and returns the
// play duration in whole seconds. The tag library exposes no duration, and
// for the one container format this service accepts the STREAMINFO header is
// authoritative and cheap to read.
func flacDuration(path string) (int, error) {
	if !strings.EqualFold(filepath.Ext(path), ".flac") {
		return 0, fmt.Errorf("no duration source for %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return 0, err
	}
	if string(magic) != "fLaC" {
		return 0, fmt.Errorf("not a FLAC stream")
	}

	// STREAMINFO is mandated to be the first metadata block.
	header := make([]byte, 4)
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, err
	}
	if header[0]&0x7f != 0 {
		return 0, fmt.Errorf("first metadata block is not STREAMINFO")
	}
	length := uint32(header[1])<<16 | uint32(header[2])<<8 | uint32(header[3])
	if length < 34 {
		return 0, fmt.Errorf("short STREAMINFO block")
	}

	info := make([]byte, 34)
	if _, err := io.ReadFull(f, info); err != nil {
		return 0, err
	}

	sampleRate := uint32(info[10])<<12 | uint32(info[11])<<4 | uint32(info[12])>>4
	totalSamples := uint64(info[13]&0x0f)<<32 | uint64(binary.BigEndian.Uint32(info[14:18]))
	if sampleRate == 0 {
		return 0, fmt.Errorf("STREAMINFO carries no sample rate")
	}

	return int(totalSamples / uint64(sampleRate)), nil
}
