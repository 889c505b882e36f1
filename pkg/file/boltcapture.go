package file

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

// BoltCaptureDecoder is an IOFile Decoder that persists every inbound
// chunk into a bolt bucket keyed by its monotonically increasing read
// offset, instead of delivering it through OnReaden. It is the concrete
// realization of "the decoder may capture the buffer": every Decode call
// returns captured=true.
//
// The decoder keeps reading at a fixed chunk size until the underlying
// read reports end, so installing it on a File and calling one Read is
// enough to stream an entire file into the bucket.
type BoltCaptureDecoder struct {
	db         *bolt.DB
	bucket     []byte
	chunkSize  int
	nextOffset uint64
}

// NewBoltCaptureDecoder opens (creating if needed) bucket in db for
// capturing reads at chunkSize bytes per call.
func NewBoltCaptureDecoder(db *bolt.DB, bucket string, chunkSize int) (*BoltCaptureDecoder, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultCaptureChunkSize
	}
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("file: create capture bucket %s: %w", bucket, err)
	}
	return &BoltCaptureDecoder{db: db, bucket: []byte(bucket), chunkSize: chunkSize}, nil
}

// DefaultCaptureChunkSize is used when NewBoltCaptureDecoder is given a
// non-positive chunkSize.
const DefaultCaptureChunkSize = 32 * 1024

// Decode persists buf under the next offset key and requests another
// read of chunkSize unless end has been reached.
func (d *BoltCaptureDecoder) Decode(buf []byte, end bool) (next int, captured bool) {
	if len(buf) > 0 {
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, d.nextOffset)
		_ = d.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(d.bucket)
			cp := append([]byte(nil), buf...)
			return b.Put(key, cp)
		})
		d.nextOffset += uint64(len(buf))
	}
	if end {
		return 0, true
	}
	return d.chunkSize, true
}

// Offsets returns every captured chunk's starting offset in ascending
// order, mainly for tests that reassemble a captured file.
func (d *BoltCaptureDecoder) Offsets() ([]uint64, error) {
	var offsets []uint64
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(d.bucket)
		return b.ForEach(func(k, v []byte) error {
			offsets = append(offsets, binary.BigEndian.Uint64(k))
			return nil
		})
	})
	return offsets, err
}

// Chunk returns the bytes captured at offset, or nil if none.
func (d *BoltCaptureDecoder) Chunk(offset uint64) ([]byte, error) {
	var out []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(d.bucket)
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, offset)
		v := b.Get(key)
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}
