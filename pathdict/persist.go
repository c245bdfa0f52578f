package pathdict

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"

	"github.com/Masterminds/semver/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/teranos/reductionist/errors"
)

// Magic opens every serialized dictionary
const Magic = "RDXD"

// FormatVersion is written into the header of serialized dictionaries
const FormatVersion = "1.0.0"

// SupportedVersions constrains the versions Read accepts
const SupportedVersions = "^1"

// maxStringLen bounds lengths read from untrusted input
const maxStringLen = 1 << 24

// WriteTo serializes the dictionary: magic, version, then a zstd stream of the buckets
func (d *Dictionary) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	header := append([]byte(Magic), byte(len(FormatVersion)))
	header = append(header, FormatVersion...)
	if _, err := cw.Write(header); err != nil {
		return cw.n, errors.Wrap(err, "failed to write dictionary header")
	}

	enc, err := zstd.NewWriter(cw, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return cw.n, errors.Wrap(err, "failed to create zstd encoder")
	}

	var buf []byte
	buf = binary.AppendUvarint(buf, uint64(d.count))
	buf = binary.AppendUvarint(buf, BucketSize)
	buf = binary.AppendUvarint(buf, uint64(len(d.heads)))
	for i, head := range d.heads {
		buf = binary.AppendUvarint(buf, uint64(len(head)))
		buf = append(buf, head...)
		buf = binary.AppendUvarint(buf, uint64(len(d.tails[i])))
		buf = append(buf, d.tails[i]...)
	}

	if _, err := enc.Write(buf); err != nil {
		enc.Close()
		return cw.n, errors.Wrap(err, "failed to compress dictionary")
	}
	if err := enc.Close(); err != nil {
		return cw.n, errors.Wrap(err, "failed to flush dictionary")
	}
	return cw.n, nil
}

// Read parses a dictionary written by WriteTo
func Read(r io.Reader) (*Dictionary, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, formatError(errors.Wrap(err, "failed to read dictionary header"))
	}
	if string(magic) != Magic {
		return nil, formatError(errors.Newf("bad magic %q", magic))
	}

	versionLen, err := br.ReadByte()
	if err != nil {
		return nil, formatError(errors.Wrap(err, "failed to read format version"))
	}
	rawVersion := make([]byte, versionLen)
	if _, err := io.ReadFull(br, rawVersion); err != nil {
		return nil, formatError(errors.Wrap(err, "failed to read format version"))
	}
	if err := checkVersion(string(rawVersion)); err != nil {
		return nil, err
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create zstd decoder")
	}
	defer dec.Close()

	payload, err := io.ReadAll(dec)
	if err != nil {
		return nil, formatError(errors.Wrap(err, "failed to decompress dictionary"))
	}
	return decodePayload(payload)
}

func checkVersion(raw string) error {
	version, err := semver.NewVersion(raw)
	if err != nil {
		return formatError(errors.Wrapf(err, "invalid format version %q", raw))
	}
	constraint, err := semver.NewConstraint(SupportedVersions)
	if err != nil {
		return errors.Wrapf(err, "invalid version constraint %s", SupportedVersions)
	}
	if !constraint.Check(version) {
		return errors.WithHint(
			formatError(errors.Newf("dictionary format %s is not supported (need %s)", raw, SupportedVersions)),
			"recompile the grammar with this version")
	}
	return nil
}

func decodePayload(payload []byte) (*Dictionary, error) {
	r := bytes.NewReader(payload)

	count, err := readUvarint(r, "count")
	if err != nil {
		return nil, err
	}
	bucketSize, err := readUvarint(r, "bucket size")
	if err != nil {
		return nil, err
	}
	if bucketSize != BucketSize {
		return nil, formatError(errors.Newf("bucket size %d, want %d", bucketSize, BucketSize))
	}
	buckets, err := readUvarint(r, "bucket count")
	if err != nil {
		return nil, err
	}
	if buckets != (count+BucketSize-1)/BucketSize {
		return nil, formatError(errors.Newf("%d buckets cannot hold %d strings", buckets, count))
	}

	d := &Dictionary{count: int(count)}
	for i := uint64(0); i < buckets; i++ {
		head, err := readBytes(r, "bucket head")
		if err != nil {
			return nil, err
		}
		tail, err := readBytes(r, "bucket tail")
		if err != nil {
			return nil, err
		}
		d.heads = append(d.heads, string(head))
		d.tails = append(d.tails, tail)
	}
	if r.Len() != 0 {
		return nil, formatError(errors.Newf("%d trailing bytes", r.Len()))
	}
	if err := d.verify(); err != nil {
		return nil, err
	}
	return d, nil
}

// verify walks every bucket with bounds checks so later scans cannot fail
func (d *Dictionary) verify() error {
	total := 0
	var prev string
	for b, head := range d.heads {
		if b > 0 && head <= prev {
			return formatError(errors.Newf("bucket %d out of order", b))
		}
		prev = head
		total++
		inBucket := 1

		cur := []byte(head)
		tail := d.tails[b]
		for len(tail) > 0 {
			shared, n := binary.Uvarint(tail)
			if n <= 0 || shared > uint64(len(cur)) {
				return formatError(errors.Newf("bucket %d: bad shared prefix", b))
			}
			tail = tail[n:]
			length, n := binary.Uvarint(tail)
			if n <= 0 || length > uint64(len(tail)-n) {
				return formatError(errors.Newf("bucket %d: bad suffix length", b))
			}
			tail = tail[n:]
			cur = append(cur[:shared], tail[:length]...)
			tail = tail[length:]

			if string(cur) <= prev {
				return formatError(errors.Newf("bucket %d out of order", b))
			}
			prev = string(cur)
			total++
			inBucket++
		}
		if inBucket > BucketSize || (b < len(d.heads)-1 && inBucket != BucketSize) {
			return formatError(errors.Newf("bucket %d holds %d strings", b, inBucket))
		}
	}
	if total != d.count {
		return formatError(errors.Newf("header says %d strings, buckets hold %d", d.count, total))
	}
	return nil
}

func readUvarint(r *bytes.Reader, what string) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, formatError(errors.Wrapf(err, "failed to read %s", what))
	}
	return v, nil
}

func readBytes(r *bytes.Reader, what string) ([]byte, error) {
	n, err := readUvarint(r, what+" length")
	if err != nil {
		return nil, err
	}
	if n > maxStringLen || n > uint64(r.Len()) {
		return nil, formatError(errors.Newf("%s length %d out of range", what, n))
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, formatError(errors.Wrapf(err, "failed to read %s", what))
	}
	return buf, nil
}

func formatError(err error) error {
	return errors.Mark(err, errors.ErrFormat)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
