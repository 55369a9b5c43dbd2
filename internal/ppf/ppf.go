// Package ppf applies PlayStation Patch Format files (PPF 1.0, 2.0 and 3.0)
// to raw track images and undoes PPF 3.0 patches that carry undo data.
package ppf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"disckit/internal/services"
)

const (
	headerSize      = 56
	blockCheckSize  = 1024
	blockCheckStart = 60
	dataStartBlock  = blockCheckStart + blockCheckSize

	// BINBlockOffset is where the block check data sits in a raw BIN image.
	BINBlockOffset = 0x9320
	// GIBlockOffset is where it sits in a PPF3 image of type 1.
	GIBlockOffset = 0x80A0

	fileIDBegin = "@BEGIN_FILE_ID.DIZ"
	fileIDEnd   = "@END_FILE_ID.DIZ"
	maxFileID   = 3072

	stageName = "ppf"
)

// Record is one patched span.
type Record struct {
	Offset int64
	Data   []byte
	Undo   []byte
}

// Patch is a parsed PPF file.
type Patch struct {
	Version      int
	Description  string
	FileID       string
	ImageType    byte
	ExpectedSize int64
	BlockCheck   []byte
	HasUndo      bool
	Records      []Record
}

// Load reads and parses the patch file at path.
func Load(path string) (*Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "load", path, err)
		}
		return nil, services.Wrap(services.ErrIO, stageName, "load", path, err)
	}
	return Parse(data)
}

// Parse decodes a PPF 1.0, 2.0 or 3.0 patch.
func Parse(data []byte) (*Patch, error) {
	if len(data) < headerSize {
		return nil, parseErr("file shorter than the PPF header")
	}
	var version int
	switch string(data[:4]) {
	case "PPF1":
		version = 1
	case "PPF2":
		version = 2
	case "PPF3":
		version = 3
	default:
		return nil, parseErr("not a PPF patch")
	}
	p := &Patch{Version: version, Description: text(data[6:headerSize])}

	start, end := headerSize, len(data)
	switch version {
	case 2:
		if len(data) < dataStartBlock {
			return nil, parseErr("PPF2 header truncated")
		}
		p.ExpectedSize = int64(binary.LittleEndian.Uint32(data[56:60]))
		p.BlockCheck = data[blockCheckStart:dataStartBlock]
		start = dataStartBlock
		if id, n := fileID(data, 4); n > 0 {
			p.FileID = id
			end -= n + len(fileIDBegin) + len(fileIDEnd) + 4
		}
	case 3:
		if len(data) < blockCheckStart {
			return nil, parseErr("PPF3 header truncated")
		}
		p.ImageType = data[56]
		p.HasUndo = data[58] != 0
		start = blockCheckStart
		if data[57] != 0 {
			if len(data) < dataStartBlock {
				return nil, parseErr("PPF3 block check truncated")
			}
			p.BlockCheck = data[blockCheckStart:dataStartBlock]
			start = dataStartBlock
		}
		if id, n := fileID(data, 2); n > 0 {
			p.FileID = id
			end -= n + len(fileIDBegin) + len(fileIDEnd) + 2
		}
	}
	if end < start {
		return nil, parseErr("file_id.diz length exceeds patch size")
	}

	records, err := parseRecords(data[start:end], version, p.HasUndo)
	if err != nil {
		return nil, err
	}
	p.Records = records
	return p, nil
}

func parseRecords(body []byte, version int, hasUndo bool) ([]Record, error) {
	offsetSize := 4
	if version == 3 {
		offsetSize = 8
	}
	var records []Record
	for pos := 0; pos < len(body); {
		if pos+offsetSize+1 > len(body) {
			return nil, parseErr(fmt.Sprintf("record header truncated at %d", pos))
		}
		var offset int64
		if offsetSize == 8 {
			offset = int64(binary.LittleEndian.Uint64(body[pos:]))
		} else {
			offset = int64(binary.LittleEndian.Uint32(body[pos:]))
		}
		pos += offsetSize
		n := int(body[pos])
		pos++
		need := n
		if hasUndo {
			need += n
		}
		if pos+need > len(body) {
			return nil, parseErr(fmt.Sprintf("record data truncated at %d", pos))
		}
		r := Record{Offset: offset, Data: body[pos : pos+n]}
		pos += n
		if hasUndo {
			r.Undo = body[pos : pos+n]
			pos += n
		}
		records = append(records, r)
	}
	return records, nil
}

// fileID extracts the file_id.diz text. lenSize is the width of the trailing
// length field. It returns the text and the stored length, or 0 when absent.
func fileID(data []byte, lenSize int) (string, int) {
	if len(data) < lenSize+4 {
		return "", 0
	}
	if string(data[len(data)-lenSize-4:len(data)-lenSize]) != ".DIZ" {
		return "", 0
	}
	var n int
	if lenSize == 4 {
		n = int(binary.LittleEndian.Uint32(data[len(data)-4:]))
	} else {
		n = int(binary.LittleEndian.Uint16(data[len(data)-2:]))
	}
	shown := min(n, maxFileID)
	endText := len(data) - lenSize - len(fileIDEnd)
	if shown > endText || endText < 0 {
		return "", n
	}
	return text(data[endText-shown : endText]), n
}

// BlockOffset returns where the block check data lives in the target image.
func (p *Patch) BlockOffset() int64 {
	if p.Version == 3 && p.ImageType != 0 {
		return GIBlockOffset
	}
	return BINBlockOffset
}

func text(b []byte) string {
	b = bytes.TrimRight(b, "\x00")
	var sb strings.Builder
	for _, c := range b {
		if c < 0x80 {
			sb.WriteByte(c)
		}
	}
	return strings.TrimSpace(sb.String())
}

func parseErr(msg string) error {
	return services.Wrap(services.ErrParse, stageName, "parse", msg, nil)
}
