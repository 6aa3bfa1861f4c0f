// Package flactest synthesizes minimal FLAC containers for tests: a
// STREAMINFO block, a vorbis comment block, and optionally an embedded
// front-cover picture. The result carries valid metadata but no audio frames.
package flactest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// File describes the container to synthesize.
type File struct {
	SampleRate   uint32
	TotalSamples uint64
	Comments     [][2]string
	Picture      []byte
	PictureMIME  string
}

// Build assembles the container bytes.
func (f File) Build() []byte {
	var buf bytes.Buffer
	buf.WriteString("fLaC")

	writeBlock(&buf, 0, f.buildStreamInfo(), false)
	writeBlock(&buf, 4, f.buildVorbisComment(), f.Picture == nil)
	if f.Picture != nil {
		writeBlock(&buf, 6, f.buildPicture(), true)
	}
	return buf.Bytes()
}

// Write builds the container and writes it into dir under name, returning
// the full path.
func (f File) Write(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, f.Build(), 0o644); err != nil {
		t.Fatalf("writing FLAC fixture: %v", err)
	}
	return path
}

func (f File) buildStreamInfo() []byte {
	info := make([]byte, 34)
	binary.BigEndian.PutUint16(info[0:2], 4096) // min block size
	binary.BigEndian.PutUint16(info[2:4], 4096) // max block size
	// 20-bit sample rate, 3-bit channels (stereo), 5-bit bps (16),
	// 36-bit total sample count.
	info[10] = byte(f.SampleRate >> 12)
	info[11] = byte(f.SampleRate >> 4)
	info[12] = byte(f.SampleRate&0x0f)<<4 | (2-1)<<1 | byte((16-1)>>4)
	info[13] = byte((16-1)&0x0f)<<4 | byte(f.TotalSamples>>32)&0x0f
	binary.BigEndian.PutUint32(info[14:18], uint32(f.TotalSamples))
	return info
}

func (f File) buildVorbisComment() []byte {
	var buf bytes.Buffer
	vendor := "muza-test"
	le32(&buf, uint32(len(vendor)))
	buf.WriteString(vendor)
	le32(&buf, uint32(len(f.Comments)))
	for _, kv := range f.Comments {
		entry := kv[0] + "=" + kv[1]
		le32(&buf, uint32(len(entry)))
		buf.WriteString(entry)
	}
	return buf.Bytes()
}

func (f File) buildPicture() []byte {
	var buf bytes.Buffer
	be32(&buf, 3) // front cover
	be32(&buf, uint32(len(f.PictureMIME)))
	buf.WriteString(f.PictureMIME)
	be32(&buf, 0) // description
	be32(&buf, 0) // width
	be32(&buf, 0) // height
	be32(&buf, 0) // depth
	be32(&buf, 0) // colors
	be32(&buf, uint32(len(f.Picture)))
	buf.Write(f.Picture)
	return buf.Bytes()
}

func writeBlock(buf *bytes.Buffer, blockType byte, body []byte, last bool) {
	header := blockType
	if last {
		header |= 0x80
	}
	buf.WriteByte(header)
	buf.WriteByte(byte(len(body) >> 16))
	buf.WriteByte(byte(len(body) >> 8))
	buf.WriteByte(byte(len(body)))
	buf.Write(body)
}

func le32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func be32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
