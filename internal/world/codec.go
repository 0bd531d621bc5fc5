package world

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/addrindex/addrindex/internal/interner"
	"github.com/addrindex/addrindex/internal/sortedindex"
	apperrors "github.com/addrindex/addrindex/pkg/errors"
)

// Magic identifies a valid .adwx world file.
const (
	Magic         uint32 = 0x41445758
	FormatVersion uint32 = 1
	HeaderSize    int    = 24

	flagZstd uint32 = 1 << 0
)

// Encode serialises the world into a self-contained binary blob:
// a fixed header (magic, version, flags, body checksum, body length)
// followed by the structural body, zstd-compressed when compress is set.
// Decode detects compression from the header; no external flags are needed.
func Encode(w *World, compress bool) ([]byte, error) {
	body := appendBody(make([]byte, 0, 1<<20), w)
	checksum := crc32.ChecksumIEEE(body)
	bodyLen := uint64(len(body))

	var flags uint32
	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		body = enc.EncodeAll(body, make([]byte, 0, len(body)/2))
		enc.Close()
		flags |= flagZstd
	}

	out := make([]byte, HeaderSize, HeaderSize+len(body))
	binary.LittleEndian.PutUint32(out[0:4], Magic)
	binary.LittleEndian.PutUint32(out[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(out[8:12], flags)
	binary.LittleEndian.PutUint32(out[12:16], checksum)
	binary.LittleEndian.PutUint64(out[16:24], bodyLen)
	return append(out, body...), nil
}

// Decode reconstructs a World from an Encode blob. Truncated, corrupted, or
// non-matching-format input fails with ErrCorruptWorld; no partially decoded
// world is ever returned.
func Decode(data []byte) (*World, error) {
	if len(data) < HeaderSize {
		return nil, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "blob too short: %d bytes", len(data))
	}
	if m := binary.LittleEndian.Uint32(data[0:4]); m != Magic {
		return nil, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "bad magic %#x", m)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != FormatVersion {
		return nil, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "unsupported format version %d", v)
	}
	flags := binary.LittleEndian.Uint32(data[8:12])
	checksum := binary.LittleEndian.Uint32(data[12:16])
	bodyLen := binary.LittleEndian.Uint64(data[16:24])

	body := data[HeaderSize:]
	if flags&flagZstd != 0 {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		defer dec.Close()
		body, err = dec.DecodeAll(body, make([]byte, 0, bodyLen))
		if err != nil {
			return nil, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "decompressing body: %v", err)
		}
	}
	if uint64(len(body)) != bodyLen {
		return nil, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "body length %d, header says %d", len(body), bodyLen)
	}
	if c := crc32.ChecksumIEEE(body); c != checksum {
		return nil, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "checksum mismatch: %#x != %#x", c, checksum)
	}
	return parseBody(body)
}

// WriteFile encodes the world and writes it atomically: to a .tmp file
// first, renamed into place on success.
func WriteFile(path string, w *World, compress bool) error {
	data, err := Encode(w, compress)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating world directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("writing temp world file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming world file: %w", err)
	}
	return nil
}

// ReadFile reads and decodes a world file.
func ReadFile(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading world file: %w", err)
	}
	return Decode(data)
}

// Body layout, all integers varint-encoded, strings length-prefixed:
//
//	street pool, housenumber pool,
//	countries: code, cities: name, zips: code, streets: name ref,
//	housenumbers (raw tagged values).
func appendBody(buf []byte, w *World) []byte {
	buf = appendPool(buf, w.streetNames.Pool())
	buf = appendPool(buf, w.housenumbers.Pool())
	buf = binary.AppendUvarint(buf, uint64(w.countries.Len()))
	for i := 0; i < w.countries.Len(); i++ {
		buf = appendString(buf, w.countries.Key(i))
		c := w.countries.Value(i)
		buf = binary.AppendUvarint(buf, uint64(c.cities.Len()))
		for j := 0; j < c.cities.Len(); j++ {
			buf = appendString(buf, c.cities.Key(j))
			ci := c.cities.Value(j)
			buf = binary.AppendUvarint(buf, uint64(ci.zips.Len()))
			for k := 0; k < ci.zips.Len(); k++ {
				buf = appendString(buf, ci.zips.Key(k))
				z := ci.zips.Value(k)
				buf = binary.AppendUvarint(buf, uint64(len(z.streets)))
				for _, st := range z.streets {
					buf = binary.AppendUvarint(buf, uint64(st.name))
					buf = binary.AppendUvarint(buf, uint64(len(st.nums)))
					for _, hn := range st.nums {
						buf = binary.AppendUvarint(buf, uint64(hn))
					}
				}
			}
		}
	}
	return buf
}

func appendPool(buf []byte, pool []string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(pool)))
	for _, s := range pool {
		buf = appendString(buf, s)
	}
	return buf
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func parseBody(body []byte) (*World, error) {
	r := &bodyReader{data: body}

	streetPool, err := r.pool()
	if err != nil {
		return nil, err
	}
	hnPool, err := r.pool()
	if err != nil {
		return nil, err
	}
	streetNames := interner.FromPool(streetPool)
	housenumbers := interner.FromPool(hnPool)

	countryCount, err := r.count()
	if err != nil {
		return nil, err
	}
	countryKeys := make([]string, 0, countryCount)
	countryVals := make([]*Country, 0, countryCount)
	for i := 0; i < countryCount; i++ {
		code, err := r.str()
		if err != nil {
			return nil, err
		}
		c, err := r.country(len(streetPool), len(hnPool))
		if err != nil {
			return nil, err
		}
		countryKeys = append(countryKeys, code)
		countryVals = append(countryVals, c)
	}
	if r.off != len(r.data) {
		return nil, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "%d trailing bytes", len(r.data)-r.off)
	}
	return &World{
		streetNames:  streetNames,
		housenumbers: housenumbers,
		countries:    sortedindex.FromSorted(countryKeys, countryVals),
	}, nil
}

type bodyReader struct {
	data []byte
	off  int
}

func (r *bodyReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.data[r.off:])
	if n <= 0 {
		return 0, apperrors.New(apperrors.ErrCorruptWorld, 500, "truncated varint")
	}
	r.off += n
	return v, nil
}

// count reads a collection length and sanity-checks it against the bytes
// remaining, so corrupted counts cannot trigger huge allocations.
func (r *bodyReader) count() (int, error) {
	v, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(len(r.data)-r.off) {
		return 0, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "count %d exceeds remaining input", v)
	}
	return int(v), nil
}

func (r *bodyReader) str() (string, error) {
	n, err := r.count()
	if err != nil {
		return "", err
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s, nil
}

func (r *bodyReader) pool() ([]string, error) {
	n, err := r.count()
	if err != nil {
		return nil, err
	}
	pool := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := r.str()
		if err != nil {
			return nil, err
		}
		pool = append(pool, s)
	}
	return pool, nil
}

func (r *bodyReader) country(streetPoolLen, hnPoolLen int) (*Country, error) {
	cityCount, err := r.count()
	if err != nil {
		return nil, err
	}
	cityKeys := make([]string, 0, cityCount)
	cityVals := make([]*City, 0, cityCount)
	for i := 0; i < cityCount; i++ {
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		zipCount, err := r.count()
		if err != nil {
			return nil, err
		}
		zipKeys := make([]string, 0, zipCount)
		zipVals := make([]*Zip, 0, zipCount)
		for i := 0; i < zipCount; i++ {
			code, err := r.str()
			if err != nil {
				return nil, err
			}
			z, err := r.zip(streetPoolLen, hnPoolLen)
			if err != nil {
				return nil, err
			}
			zipKeys = append(zipKeys, code)
			zipVals = append(zipVals, z)
		}
		cityKeys = append(cityKeys, name)
		cityVals = append(cityVals, &City{zips: sortedindex.FromSorted(zipKeys, zipVals)})
	}
	return &Country{cities: sortedindex.FromSorted(cityKeys, cityVals)}, nil
}

func (r *bodyReader) zip(streetPoolLen, hnPoolLen int) (*Zip, error) {
	streetCount, err := r.count()
	if err != nil {
		return nil, err
	}
	z := &Zip{streets: make([]Street, 0, streetCount)}
	for i := 0; i < streetCount; i++ {
		nameRef, err := r.uvarint()
		if err != nil {
			return nil, err
		}
		if nameRef >= uint64(streetPoolLen) {
			return nil, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "street ref %d out of range", nameRef)
		}
		hnCount, err := r.count()
		if err != nil {
			return nil, err
		}
		st := Street{name: interner.Ref(nameRef), nums: make([]Housenumber, 0, hnCount)}
		for i := 0; i < hnCount; i++ {
			raw, err := r.uvarint()
			if err != nil {
				return nil, err
			}
			hn := Housenumber(raw)
			if raw > uint64(^uint32(0)) {
				return nil, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "housenumber value %d out of range", raw)
			}
			if hn&hnInline == 0 && uint64(hn) >= uint64(hnPoolLen) {
				return nil, apperrors.Newf(apperrors.ErrCorruptWorld, 500, "housenumber ref %d out of range", raw)
			}
			st.nums = append(st.nums, hn)
		}
		z.streets = append(z.streets, st)
	}
	return z, nil
}
