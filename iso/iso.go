// iso.go - bootable GameCube disc header parsing
//
// License: GPLv3 or later

/*
Package iso parses the fixed header at the front of a GameCube disc
image: console/game/country identifiers, the boot .dol's offset, and
the filesystem table's offset and size. Filesystem traversal, the
apploader's own body, and anything DWARF/ELF-shaped are out of scope —
this package answers only "where is the boot file" and "whose disc is
this".

Grounded on original_source/formats/iso/src/lib.rs's Header (the same
field order and fixed offsets, including the 0xC233_9F3D magic word at
offset 0x1C) and its game_code/console/country classification helpers.
*/
package iso

import (
	"encoding/binary"
	"fmt"
)

const (
	headerSize  = 0x440
	magicOffset = 0x1C
	magicWord   = 0xC233_9F3D

	// ApploaderOffset is the fixed disc offset of the apploader header,
	// same on every GameCube disc regardless of filesystem layout.
	ApploaderOffset = 0x2440
)

// Console identifies which console family a disc's console_id names.
type Console int

const (
	ConsoleUnknown Console = iota
	ConsoleGameCube
	ConsoleWii
)

// Country identifies the region a disc's country_code names.
type Country int

const (
	CountryUnknown Country = iota
	CountryJapan
	CountryPal
	CountryUSA
)

// Header is the fixed 0x440-byte disc header every GameCube ISO
// starts with.
type Header struct {
	ConsoleID        byte
	GameID           uint16
	CountryCode      byte
	MakerCode        uint16
	DiskID           byte
	Version          byte
	AudioStreamRaw   byte
	StreamBufferSize byte

	GameName string

	DebugMonitorOffset uint32
	DebugMonitorTarget uint32

	BootfileOffset    uint32
	FilesystemOffset  uint32
	FilesystemSize    uint32
	MaxFilesystemSize uint32
	UserPosition      uint32
	UserLength        uint32
}

// ParseHeader reads the fixed disc header from the front of a GameCube
// ISO image. An error means the magic word at 0x1C didn't match, or
// the image is too short.
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("iso: file too short for header: %d bytes, want at least %d", len(data), headerSize)
	}

	if got := binary.BigEndian.Uint32(data[magicOffset:]); got != magicWord {
		return nil, fmt.Errorf("iso: bad magic word %#08x at offset %#x, want %#08x", got, magicOffset, magicWord)
	}

	h := &Header{
		ConsoleID:        data[0x00],
		GameID:           binary.BigEndian.Uint16(data[0x01:]),
		CountryCode:      data[0x03],
		MakerCode:        binary.BigEndian.Uint16(data[0x04:]),
		DiskID:           data[0x06],
		Version:          data[0x07],
		AudioStreamRaw:   data[0x08],
		StreamBufferSize: data[0x09],
	}

	const gameNameOffset = 0x20
	const gameNameLen = 0x3E0
	h.GameName = cString(data[gameNameOffset : gameNameOffset+gameNameLen])

	nameEnd := gameNameOffset + gameNameLen
	h.DebugMonitorOffset = binary.BigEndian.Uint32(data[nameEnd:])
	h.DebugMonitorTarget = binary.BigEndian.Uint32(data[nameEnd+4:])
	h.BootfileOffset = binary.BigEndian.Uint32(data[nameEnd+8+0x18:])
	h.FilesystemOffset = binary.BigEndian.Uint32(data[nameEnd+8+0x18+4:])
	h.FilesystemSize = binary.BigEndian.Uint32(data[nameEnd+8+0x18+8:])
	h.MaxFilesystemSize = binary.BigEndian.Uint32(data[nameEnd+8+0x18+12:])
	h.UserPosition = binary.BigEndian.Uint32(data[nameEnd+8+0x18+16:])
	h.UserLength = binary.BigEndian.Uint32(data[nameEnd+8+0x18+20:])

	return h, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// GameCode returns the four-character game/console/country code
// (e.g. "GALE" for an NTSC-U Zelda disc), matching Header::game_code.
func (h *Header) GameCode() [4]byte {
	game := make([]byte, 2)
	binary.BigEndian.PutUint16(game, h.GameID)
	return [4]byte{h.ConsoleID, game[0], game[1], h.CountryCode}
}

// Console classifies console_id, or ConsoleUnknown for an
// unrecognized byte.
func (h *Header) Console() Console {
	switch h.ConsoleID {
	case 'G':
		return ConsoleGameCube
	case 'R':
		return ConsoleWii
	default:
		return ConsoleUnknown
	}
}

// Country classifies country_code, or CountryUnknown for an
// unrecognized byte.
func (h *Header) Country() Country {
	switch h.CountryCode {
	case 'J':
		return CountryJapan
	case 'P':
		return CountryPal
	case 'E':
		return CountryUSA
	default:
		return CountryUnknown
	}
}

// AudioStreaming reports whether the disc's audio_streaming byte is
// set, or ok=false if it holds neither 0 nor 1 (a malformed disc).
func (h *Header) AudioStreaming() (streaming, ok bool) {
	switch h.AudioStreamRaw {
	case 0:
		return false, true
	case 1:
		return true, true
	default:
		return false, false
	}
}

// ApploaderHeader is the fixed-size prefix of the apploader program
// found at ApploaderOffset on every disc: a version string, its entry
// point, and the size of the trailing executable payload (which this
// package doesn't read — loading and running the apploader is a
// cmd-level concern, same as loading a bare .dol via the dol package).
type ApploaderHeader struct {
	Version     string
	Entrypoint  uint32
	Size        uint32
	TrailerSize uint32
}

// ParseApploaderHeader reads the apploader header from data, which
// must start at ApploaderOffset within the disc image (the caller
// slices data[ApploaderOffset:] before calling this).
func ParseApploaderHeader(data []byte) (*ApploaderHeader, error) {
	const versionLen = 0x10
	const fixedLen = versionLen + 4 + 4 + 4 + 4 // version, entry, size, trailer_size, padding
	if len(data) < fixedLen {
		return nil, fmt.Errorf("iso: apploader header too short: %d bytes, want at least %d", len(data), fixedLen)
	}

	return &ApploaderHeader{
		Version:     cString(data[:versionLen]),
		Entrypoint:  binary.BigEndian.Uint32(data[versionLen:]),
		Size:        binary.BigEndian.Uint32(data[versionLen+4:]),
		TrailerSize: binary.BigEndian.Uint32(data[versionLen+8:]),
	}, nil
}
