package periodstore

import (
	"os"

	fastssz "github.com/ferranbt/fastssz"
	"github.com/pkg/errors"
)

// Manifest limits: entries are soft-capped, filenames bounded by the
// fixed artifact name set.
const (
	MaxManifestEntries = 10000
	MaxFilenameLen     = 64
)

// ManifestEntry names one artifact a slave must mirror.
type ManifestEntry struct {
	Period   uint64
	Filename string
	Length   uint32
}

const manifestEntryFixed = 16

func (e *ManifestEntry) sizeSSZ() int { return manifestEntryFixed + len(e.Filename) }

// EncodeManifest serializes the entry list as SSZ.
func EncodeManifest(entries []*ManifestEntry) ([]byte, error) {
	if len(entries) > MaxManifestEntries {
		return nil, fastssz.ErrListTooBig
	}
	var dst []byte
	off := len(entries) * 4
	for _, e := range entries {
		dst = fastssz.WriteOffset(dst, off)
		off += e.sizeSSZ()
	}
	for _, e := range entries {
		if len(e.Filename) > MaxFilenameLen {
			return nil, fastssz.ErrBytesLength
		}
		dst = fastssz.MarshalUint64(dst, e.Period)
		dst = fastssz.WriteOffset(dst, manifestEntryFixed)
		dst = fastssz.MarshalUint32(dst, e.Length)
		dst = append(dst, e.Filename...)
	}
	return dst, nil
}

// DecodeManifest parses and validates an SSZ manifest.
func DecodeManifest(buf []byte) ([]*ManifestEntry, error) {
	if len(buf) == 0 {
		return nil, nil
	}
	if len(buf) < 4 {
		return nil, fastssz.ErrSize
	}
	first := fastssz.ReadOffset(buf)
	if first%4 != 0 || first > uint64(len(buf)) {
		return nil, fastssz.ErrOffset
	}
	n := int(first / 4)
	if n > MaxManifestEntries {
		return nil, fastssz.ErrListTooBig
	}
	out := make([]*ManifestEntry, n)
	for i := 0; i < n; i++ {
		start := fastssz.ReadOffset(buf[i*4:])
		end := uint64(len(buf))
		if i+1 < n {
			end = fastssz.ReadOffset(buf[(i+1)*4:])
		}
		if start > end || end > uint64(len(buf)) || end-start < manifestEntryFixed {
			return nil, fastssz.ErrOffset
		}
		seg := buf[start:end]
		e := &ManifestEntry{
			Period: fastssz.UnmarshallUint64(seg[0:8]),
			Length: fastssz.UnmarshallUint32(seg[12:16]),
		}
		if nameOff := fastssz.ReadOffset(seg[8:]); nameOff != manifestEntryFixed {
			return nil, fastssz.ErrOffset
		}
		if len(seg)-manifestEntryFixed > MaxFilenameLen {
			return nil, fastssz.ErrBytesLength
		}
		e.Filename = string(seg[manifestEntryFixed:])
		out[i] = e
	}
	return out, nil
}

// BuildManifest lists every known artifact of periods >= start, in period
// and artifact order, capped at the manifest entry limit.
func (s *Store) BuildManifest(start uint64) ([]*ManifestEntry, error) {
	var out []*ManifestEntry
	for _, period := range s.index.Periods() {
		if period < start {
			continue
		}
		for _, name := range knownFiles {
			info, err := os.Stat(s.FilePath(period, name))
			if err != nil {
				continue
			}
			if info.Size() > int64(^uint32(0)) {
				return nil, errors.Errorf("%s of period %d exceeds manifest size", name, period)
			}
			out = append(out, &ManifestEntry{
				Period:   period,
				Filename: name,
				Length:   uint32(info.Size()),
			})
			if len(out) >= MaxManifestEntries {
				return out, nil
			}
		}
	}
	return out, nil
}
