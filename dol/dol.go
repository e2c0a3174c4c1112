// dol.go - .dol executable parsing
//
// License: GPLv3 or later

/*
Package dol parses the GameCube `.dol` executable format and exposes
its sections, BSS and entry point for a loader (system.LoadDol writes
them into memory): a fixed 0x100-byte big-endian
header naming up to 7 text and 11 data sections (each an offset/
target/size triple), a BSS target/size pair, and an entry point,
followed by the concatenated section bodies.

Grounded on original_source/crates/disks/src/dol.rs's Header/Dol types
(text_sections/data_sections iterators, the size() "highest section
end" computation). The original also converts an ELF into a Dol
(elf_to_dol); that conversion has no reader anywhere in the stack this
core draws from, and every boot path here only ever loads a
ready-made .dol, so it is left out rather than forced onto a borrowed
ELF library with no other home in this module.
*/
package dol

import (
	"encoding/binary"
	"fmt"
)

const (
	headerSize   = 0x100
	textSections = 7
	dataSections = 11
)

// Section describes one loadable region of a .dol file: its target
// effective address and its raw content, already sliced out of the
// file body.
type Section struct {
	Target  uint32
	Content []byte
}

// Dol is a parsed .dol executable: its section table plus the body
// bytes every section's Content slices into.
type Dol struct {
	TextOffsets [textSections]uint32
	DataOffsets [dataSections]uint32
	TextTargets [textSections]uint32
	DataTargets [dataSections]uint32
	TextSizes   [textSections]uint32
	DataSizes   [dataSections]uint32

	BSSTarget uint32
	BSSSize   uint32
	Entry     uint32

	body []byte
}

// Parse reads a .dol file's header and body from raw bytes. Errors are
// format errors: the file is too short for a header, or a section's
// offset/size runs past the end of the supplied data.
func Parse(data []byte) (*Dol, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("dol: file too short for header: %d bytes, want at least %d", len(data), headerSize)
	}

	d := &Dol{}
	r := headerReader{data: data}
	r.read32Array(d.TextOffsets[:])
	r.read32Array(d.DataOffsets[:])
	r.read32Array(d.TextTargets[:])
	r.read32Array(d.DataTargets[:])
	r.read32Array(d.TextSizes[:])
	r.read32Array(d.DataSizes[:])
	d.BSSTarget = r.read32()
	d.BSSSize = r.read32()
	d.Entry = r.read32()

	size := d.fileSize()
	if size < headerSize {
		size = headerSize
	}
	if int(size) > len(data) {
		return nil, fmt.Errorf("dol: section table claims %d bytes, file only has %d", size, len(data))
	}
	d.body = data[headerSize:size]

	if err := d.validateSections(); err != nil {
		return nil, err
	}
	return d, nil
}

// headerReader walks the fixed-layout header field by field; it
// exists only to keep Parse's field list readable, not as a general
// binary reader.
type headerReader struct {
	data []byte
	off  int
}

func (r *headerReader) read32() uint32 {
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *headerReader) read32Array(out []uint32) {
	for i := range out {
		out[i] = r.read32()
	}
}

// fileSize mirrors original_source's Header::size: the highest
// (offset+size) across every populated text and data section,
// defining where the file's meaningful content ends.
func (d *Dol) fileSize() uint32 {
	var max uint32
	for i := 0; i < textSections; i++ {
		if d.TextOffsets[i] == 0 {
			continue
		}
		if end := d.TextOffsets[i] + d.TextSizes[i]; end > max {
			max = end
		}
	}
	for i := 0; i < dataSections; i++ {
		if d.DataOffsets[i] == 0 {
			continue
		}
		if end := d.DataOffsets[i] + d.DataSizes[i]; end > max {
			max = end
		}
	}
	return max
}

func (d *Dol) validateSections() error {
	for _, s := range d.TextSections() {
		if _, err := d.slice(s.offset, s.size); err != nil {
			return fmt.Errorf("dol: text section: %w", err)
		}
	}
	for _, s := range d.DataSections() {
		if _, err := d.slice(s.offset, s.size); err != nil {
			return fmt.Errorf("dol: data section: %w", err)
		}
	}
	return nil
}

type sectionInfo struct {
	offset, target, size uint32
}

func (d *Dol) slice(offset, size uint32) ([]byte, error) {
	start := int(offset) - headerSize
	end := start + int(size)
	if start < 0 || end > len(d.body) {
		return nil, fmt.Errorf("offset %#x size %#x runs past the loaded body (%d bytes)", offset, size, len(d.body))
	}
	return d.body[start:end], nil
}

// TextSections yields one sectionInfo per populated .text table
// entry, skipping zero offsets the way original_source's
// text_sections filter_map does.
func (d *Dol) TextSections() []sectionInfo {
	var out []sectionInfo
	for i := 0; i < textSections; i++ {
		if d.TextOffsets[i] == 0 {
			continue
		}
		out = append(out, sectionInfo{d.TextOffsets[i], d.TextTargets[i], d.TextSizes[i]})
	}
	return out
}

// DataSections yields one sectionInfo per populated .data table
// entry.
func (d *Dol) DataSections() []sectionInfo {
	var out []sectionInfo
	for i := 0; i < dataSections; i++ {
		if d.DataOffsets[i] == 0 {
			continue
		}
		out = append(out, sectionInfo{d.DataOffsets[i], d.DataTargets[i], d.DataSizes[i]})
	}
	return out
}

// Sections returns every text and data section as a loadable Section,
// content already sliced from the parsed body. Validity was already
// checked in Parse, so this never errors.
func (d *Dol) Sections() []Section {
	var out []Section
	for _, s := range append(d.TextSections(), d.DataSections()...) {
		content, _ := d.slice(s.offset, s.size)
		out = append(out, Section{Target: s.target, Content: content})
	}
	return out
}

// Entrypoint returns the guest address execution should begin at.
func (d *Dol) Entrypoint() uint32 { return d.Entry }

// BSS returns the target address and size of the (possibly empty)
// uninitialized-data region a loader must zero after copying every
// section in, matching original_source's separate bss_target/
// bss_size header fields (no offset: BSS has no file content).
func (d *Dol) BSS() (target, size uint32) { return d.BSSTarget, d.BSSSize }
