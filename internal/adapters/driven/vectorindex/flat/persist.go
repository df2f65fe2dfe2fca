package flat

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/ragstore/internal/core/domain"
)

const (
	fileMagic   = "RSVI"
	fileVersion = uint16(1)
)

// Save writes the index to path via a temporary file and rename.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	data, err := idx.encode()
	idx.mu.RUnlock()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".vectors-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write index file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync index file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename index file: %w", err)
	}
	return nil
}

func (idx *Index) encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(fileMagic)
	le := binary.LittleEndian

	writeU16 := func(v uint16) { _ = binary.Write(&buf, le, v) }
	writeU32 := func(v uint32) { _ = binary.Write(&buf, le, v) }
	writeString := func(s string) error {
		if len(s) > math.MaxUint16 {
			return fmt.Errorf("%w: id too long (%d bytes)", domain.ErrInvalidParameter, len(s))
		}
		writeU16(uint16(len(s)))
		buf.WriteString(s)
		return nil
	}

	writeU16(fileVersion)
	if err := writeString(string(idx.metric)); err != nil {
		return nil, err
	}
	writeU32(uint32(idx.dimensions))
	writeU32(uint32(len(idx.vectors)))

	for i, v := range idx.vectors {
		if err := writeString(idx.ids[i]); err != nil {
			return nil, err
		}
		for _, f := range v {
			writeU32(math.Float32bits(f))
		}
	}

	writeU32(crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

// Load replaces the index with the contents of path, including its
// dimensions and metric.
func (idx *Index) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrIndexNotFound, path)
		}
		return fmt.Errorf("%w: read %s: %w", domain.ErrIndexCorrupt, path, err)
	}

	decoded, err := decode(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrIndexCorrupt, path, err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.dimensions = decoded.dimensions
	idx.metric = decoded.metric
	idx.ids = decoded.ids
	idx.vectors = decoded.vectors
	idx.magnitudes = decoded.magnitudes
	return nil
}

// Open loads an index file into a new Index.
func Open(path string) (*Index, error) {
	idx := &Index{}
	if err := idx.Load(path); err != nil {
		return nil, err
	}
	return idx, nil
}

func decode(data []byte) (*Index, error) {
	if len(data) < len(fileMagic)+4 {
		return nil, errors.New("file too short")
	}
	body, trailer := data[:len(data)-4], data[len(data)-4:]
	if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(trailer) {
		return nil, errors.New("checksum mismatch")
	}

	r := bufio.NewReader(bytes.NewReader(body))
	le := binary.LittleEndian

	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != fileMagic {
		return nil, errors.New("bad magic")
	}

	var version uint16
	if err := binary.Read(r, le, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != fileVersion {
		return nil, fmt.Errorf("unsupported version %d", version)
	}

	readString := func() (string, error) {
		var n uint16
		if err := binary.Read(r, le, &n); err != nil {
			return "", err
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return "", err
		}
		return string(b), nil
	}

	metric, err := readString()
	if err != nil {
		return nil, fmt.Errorf("read metric: %w", err)
	}
	if !domain.Metric(metric).IsValid() {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}

	var dims, count uint32
	if err := binary.Read(r, le, &dims); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, le, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	if dims == 0 {
		return nil, errors.New("zero dimensions")
	}
	if dims > MaxDimensions {
		return nil, fmt.Errorf("dimensions %d exceed limit %d", dims, MaxDimensions)
	}
	if count > 0 && 4*uint64(dims) > uint64(len(body)) {
		return nil, fmt.Errorf("dimensions %d exceed file size", dims)
	}
	// Every record holds at least its id length and vector.
	if uint64(count)*(2+4*uint64(dims)) > uint64(len(body)) {
		return nil, fmt.Errorf("count %d exceeds file size", count)
	}

	idx := &Index{
		dimensions: int(dims),
		metric:     domain.Metric(metric),
		ids:        make([]string, 0, count),
		vectors:    make([][]float32, 0, count),
		magnitudes: make([]float32, 0, count),
	}
	raw := make([]byte, 4*int(dims))
	for i := uint32(0); i < count; i++ {
		id, err := readString()
		if err != nil {
			return nil, fmt.Errorf("read id %d: %w", i, err)
		}
		if _, err := io.ReadFull(r, raw); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		v := make([]float32, dims)
		for j := range v {
			v[j] = math.Float32frombits(le.Uint32(raw[4*j:]))
		}
		idx.ids = append(idx.ids, id)
		idx.vectors = append(idx.vectors, v)
		idx.magnitudes = append(idx.magnitudes, search.Float32s(v).Magnitude())
	}

	if _, err := r.ReadByte(); err != io.EOF {
		return nil, errors.New("trailing data")
	}
	return idx, nil
}
