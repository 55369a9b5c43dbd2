package identify

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/diskfs/go-diskfs"
)

const (
	rawSectorSize    = 2352
	cookedSectorSize = 2048
	// cookedSectors covers the volume descriptors, root directory, and
	// SYSTEM.CNF of every layout seen in practice.
	cookedSectors = 512
)

var syncPattern = []byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// BootID reads SYSTEM.CNF from the ISO9660 filesystem in the track file at
// path and derives the product code from its BOOT line.
func BootID(path string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "disckit-iso")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	isoPath := filepath.Join(tmpDir, "head.iso")
	if err := cookImage(path, isoPath); err != nil {
		return "", err
	}

	dsk, err := diskfs.Open(isoPath)
	if err != nil {
		return "", fmt.Errorf("open iso: %w", err)
	}
	defer dsk.Close()

	fsys, err := dsk.GetFilesystem(0)
	if err != nil {
		return "", fmt.Errorf("read iso9660: %w", err)
	}
	cnf, err := fsys.OpenFile("/SYSTEM.CNF", os.O_RDONLY)
	if err != nil {
		return "", fmt.Errorf("open SYSTEM.CNF: %w", err)
	}
	data, err := io.ReadAll(cnf)
	_ = cnf.Close()
	if err != nil {
		return "", fmt.Errorf("read SYSTEM.CNF: %w", err)
	}
	return parseBootLine(data), nil
}

// cookImage writes the 2048-byte user data of the leading sectors of src to
// dst. Raw images are detected by the sector sync pattern; anything else is
// assumed to be cooked already.
func cookImage(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	head := make([]byte, len(syncPattern))
	if _, err := io.ReadFull(in, head); err != nil {
		return fmt.Errorf("read sector header: %w", err)
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if !bytes.Equal(head, syncPattern) {
		_, err := io.CopyN(out, in, cookedSectorSize*cookedSectors)
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return out.Close()
	}

	sector := make([]byte, rawSectorSize)
	for i := 0; i < cookedSectors; i++ {
		if _, err := io.ReadFull(in, sector); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return err
		}
		if _, err := out.Write(userData(sector)); err != nil {
			return err
		}
	}
	return out.Close()
}

// userData returns the 2048 data bytes of a raw sector: offset 16 for mode 1,
// offset 24 (after the XA subheader) for mode 2.
func userData(sector []byte) []byte {
	offset := 16
	if sector[15] == 2 {
		offset = 24
	}
	return sector[offset : offset+cookedSectorSize]
}

// parseBootLine extracts the product code from a line such as
// "BOOT = cdrom:\SLUS_012.34;1".
func parseBootLine(data []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, ok := strings.Cut(line, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "BOOT") {
			continue
		}
		value = strings.TrimSpace(value)
		if i := strings.LastIndexAny(value, `\/:`); i >= 0 {
			value = value[i+1:]
		}
		if i := strings.IndexByte(value, ';'); i >= 0 {
			value = value[:i]
		}
		return FromBytes([]byte(strings.ToUpper(value)))
	}
	return ""
}
