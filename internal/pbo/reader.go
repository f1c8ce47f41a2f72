// Package pbo implements the PBO Reader (§4.C): parsing an archive's
// header area, enumerating its entries, and streaming entry payloads.
// The binary layout (§6.A) is read field-by-field with encoding/binary,
// the same low-level approach the archive-format reference in this
// corpus uses for its own header and table records — reflection-based
// decoding has no place on a hot per-entry path.
package pbo

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// epochSeconds interprets a raw DataTime field as a Unix timestamp. The
// wire format stores it as a 32-bit count of seconds since the epoch,
// the same way most game-archive formats in this corpus encode entry
// times.
func epochSeconds(v uint32) time.Time {
	return time.Unix(int64(v), 0).UTC()
}

// Reader exposes one PBO archive's header area, metadata, and entry
// bodies. A Reader is single-use and not safe for concurrent use — the
// concurrency model (§5) hands one Reader per work unit.
type Reader struct {
	src   io.ReadSeeker
	props Properties

	headers    []EntryHeader // in archive order
	bodyStart  int64         // absolute offset where the body area begins
	totalSize  int64         // total byte length of the underlying archive
	trailerOff int64         // absolute offset of the stored checksum
	checksum   Checksum
	haveTrail  bool

	decompressor Decompressor
}

// Open parses the header area of src and returns a ready Reader. src must
// be positioned at byte 0; Open reads forward from there and leaves the
// stream positioned after the trailer scan.
func Open(src io.ReadSeeker, decompressor Decompressor) (*Reader, error) {
	end, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	r := &Reader{src: src, props: Properties{}, decompressor: decompressor, totalSize: end}
	if err := r.readHeaders(); err != nil {
		return nil, err
	}
	if err := r.locateTrailer(); err != nil {
		// A missing/short trailer never blocks extraction; it only
		// affects validate()'s checksum comparison (§4.C failure modes).
		r.haveTrail = false
	}
	return r, nil
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// readCString reads bytes up to and including a NUL terminator and
// returns the string without it.
func readCString(r io.Reader) (string, error) {
	var buf bytes.Buffer
	one := make([]byte, 1)
	for {
		n, err := r.Read(one)
		if n == 1 {
			if one[0] == 0 {
				return buf.String(), nil
			}
			buf.WriteByte(one[0])
		}
		if err != nil {
			if err == io.EOF {
				return "", ErrTruncated
			}
			return "", err
		}
	}
}

func normalizeEntryName(name string) string {
	return strings.ReplaceAll(name, `\`, "/")
}

func classifyMethod(tag [4]byte) (PackingMethod, bool) {
	switch tag {
	case tagZero:
		return MethodUncompressed, true
	case tagCprs:
		return MethodCompressed, true
	case tagVers:
		return MethodVersion, true
	default:
		return 0, false
	}
}

func (r *Reader) readHeaders() error {
	var offset int64 // running body offset, accumulated as entries are declared

	for {
		name, err := readCString(r.src)
		if err != nil {
			return fmt.Errorf("reading entry filename: %w", err)
		}

		var tagBytes [4]byte
		if _, err := io.ReadFull(r.src, tagBytes[:]); err != nil {
			return fmt.Errorf("reading packing method: %w", ErrTruncated)
		}
		originalSize, err1 := readU32(r.src)
		reserved, err2 := readU32(r.src)
		timestamp, err3 := readU32(r.src)
		dataSize, err4 := readU32(r.src)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return fmt.Errorf("reading entry record: %w", ErrTruncated)
		}

		method, known := classifyMethod(tagBytes)

		// Blank-terminator: empty filename and every other field zero.
		if name == "" && tagBytes == tagZero && originalSize == 0 && reserved == 0 && timestamp == 0 && dataSize == 0 {
			headerEnd, err := r.src.Seek(0, io.SeekCurrent)
			if err != nil {
				return err
			}
			r.bodyStart = headerEnd
			if headerEnd+offset > r.totalSize {
				return fmt.Errorf("declared entry sizes run %d bytes past the end of the archive: %w",
					headerEnd+offset-r.totalSize, ErrCorruptedHeader)
			}
			break
		}

		if !known {
			if tagBytes == tagEnco {
				return fmt.Errorf("entry %q: %w", name, ErrUnsupportedFormat)
			}
			return fmt.Errorf("entry %q: %w", name, ErrUnsupportedFormat)
		}

		if method == MethodVersion {
			if err := r.readVersionProperties(); err != nil {
				return err
			}
			// Version records have no body bytes.
			continue
		}

		h := EntryHeader{
			Filename:     normalizeEntryName(name),
			Method:       method,
			OriginalSize: originalSize,
			Reserved:     reserved,
			Timestamp:    epochSeconds(timestamp),
			DataSize:     dataSize,
			offset:       offset,
		}
		r.headers = append(r.headers, h)
		offset += int64(dataSize)
	}

	return nil
}

func (r *Reader) readVersionProperties() error {
	for {
		key, err := readCString(r.src)
		if err != nil {
			return fmt.Errorf("reading property key: %w", err)
		}
		if key == "" {
			// Double-NUL sentinel: key empty terminates the property list.
			return nil
		}
		val, err := readCString(r.src)
		if err != nil {
			return fmt.Errorf("reading property value for %q: %w", key, err)
		}
		r.props[key] = val
	}
}

// locateTrailer seeks to the end of the input and reads the final 21
// bytes: one NUL pad byte followed by the 20-byte checksum (§3.3, §6.A).
func (r *Reader) locateTrailer() error {
	end, err := r.src.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	if end < 21 {
		return ErrTruncated
	}
	if _, err := r.src.Seek(end-21, io.SeekStart); err != nil {
		return err
	}
	var pad [1]byte
	if _, err := io.ReadFull(r.src, pad[:]); err != nil {
		return err
	}
	if pad[0] != 0 {
		return ErrTruncated
	}
	var sum Checksum
	if _, err := io.ReadFull(r.src, sum[:]); err != nil {
		return err
	}
	r.trailerOff = end - 20
	r.checksum = sum
	r.haveTrail = true
	return nil
}

// List returns the Archive Entry Headers in the archive's own order
// (§4.C). Version records are consumed into Properties and never appear
// here.
func (r *Reader) List() []EntryHeader {
	out := make([]EntryHeader, len(r.headers))
	copy(out, r.headers)
	return out
}

// ListSorted returns the same entries lexicographically sorted by
// filename, used by validate() to detect unsorted archives (§4.C).
func (r *Reader) ListSorted() []EntryHeader {
	out := r.List()
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

// IsSorted reports whether the archive's own entry order already equals
// sorted order.
func (r *Reader) IsSorted() bool {
	for i := 1; i < len(r.headers); i++ {
		if r.headers[i-1].Filename > r.headers[i].Filename {
			return false
		}
	}
	return true
}

// Properties returns the string map accumulated from version-record
// entries (§3.3).
func (r *Reader) Properties() Properties {
	out := make(Properties, len(r.props))
	for k, v := range r.props {
		out[k] = v
	}
	return out
}

// Checksum returns the stored trailing checksum. The second return value
// is false when the trailer could not be located (truncated archive).
func (r *Reader) Checksum() (Checksum, bool) {
	return r.checksum, r.haveTrail
}

// ComputeChecksum recomputes the checksum over the archive's header and
// body area (everything before the single NUL pad byte that precedes the
// trailer), for comparison against Checksum() by validate() (§4.C, §4.L).
func (r *Reader) ComputeChecksum() (Checksum, error) {
	if !r.haveTrail {
		return Checksum{}, ErrTruncated
	}
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return Checksum{}, err
	}
	h := sha1.New()
	if _, err := io.CopyN(h, r.src, r.trailerOff-1); err != nil {
		return Checksum{}, err
	}
	var sum Checksum
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// OpenEntry streams originalSize bytes for the named entry, transparently
// decompressing Cprs entries via the configured Decompressor. Returns
// ErrEntryNotFound if no such entry exists.
func (r *Reader) OpenEntry(filename string) (io.Reader, error) {
	name := normalizeEntryName(filename)
	for _, h := range r.headers {
		if h.Filename != name {
			continue
		}
		return r.openHeader(h)
	}
	return nil, ErrEntryNotFound
}

func (r *Reader) openHeader(h EntryHeader) (io.Reader, error) {
	if _, err := r.src.Seek(r.bodyStart+h.offset, io.SeekStart); err != nil {
		return nil, err
	}
	raw := make([]byte, h.DataSize)
	if _, err := io.ReadFull(r.src, raw); err != nil {
		return nil, fmt.Errorf("entry %q: %w", h.Filename, ErrCorruptedHeader)
	}

	switch h.Method {
	case MethodUncompressed:
		return bytes.NewReader(raw), nil
	case MethodCompressed:
		if r.decompressor == nil {
			return nil, fmt.Errorf("entry %q: no decompressor configured for compressed entry", h.Filename)
		}
		out, err := r.decompressor.Decompress(raw, h.OriginalSize)
		if err != nil {
			return nil, fmt.Errorf("entry %q: decompressing: %w", h.Filename, err)
		}
		return bytes.NewReader(out), nil
	default:
		return nil, fmt.Errorf("entry %q: %w", h.Filename, ErrUnsupportedFormat)
	}
}

// ValidationWarning is one non-fatal finding from Validate: an unsorted
// archive or a checksum that could not be confirmed (§4.C, §4.L). Neither
// condition ever fails extraction.
type ValidationWarning struct {
	Code    string // "UnsortedFiles" or "ChecksumMismatch" or "ChecksumUnavailable"
	Message string
}

// Validate runs the non-fatal archive checks §4.C promises: header order
// and checksum agreement. Corruption that would make extraction itself
// fail is reported by Open/OpenEntry, never here.
func (r *Reader) Validate() []ValidationWarning {
	var warnings []ValidationWarning

	if !r.IsSorted() {
		warnings = append(warnings, ValidationWarning{
			Code:    "UnsortedFiles",
			Message: "archive entries are not in lexicographic order",
		})
	}

	stored, haveStored := r.Checksum()
	if !haveStored {
		warnings = append(warnings, ValidationWarning{
			Code:    "ChecksumUnavailable",
			Message: "archive trailer could not be located",
		})
		return warnings
	}

	computed, err := r.ComputeChecksum()
	switch {
	case err != nil:
		// §9 Open Question: a compute failure that isn't corruption is a
		// warning, not an error — the reader has no way to distinguish
		// "bad checksum" from "couldn't read the bytes to recompute one."
		warnings = append(warnings, ValidationWarning{
			Code:    "ChecksumUnavailable",
			Message: fmt.Sprintf("could not recompute checksum: %v", err),
		})
	case computed != stored:
		warnings = append(warnings, ValidationWarning{
			Code:    "ChecksumMismatch",
			Message: "stored checksum does not match recomputed content hash",
		})
	}

	return warnings
}
