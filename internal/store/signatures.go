package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/lazypower/culler/internal/signature"
)

// Fixed layout: three hashes, sharpness, histograms, Lab mean, edge density,
// face count. Every field is 8 bytes little-endian.
const signatureFields = 3 + 1 + signature.HistogramBins + 3 + signature.EdgeBins + 1 + 1

const signatureBlobSize = signatureFields * 8

// encodeSignature converts a Signature to a binary BLOB.
func encodeSignature(s signature.Signature) []byte {
	buf := make([]byte, 0, signatureBlobSize)
	putU := func(v uint64) { buf = binary.LittleEndian.AppendUint64(buf, v) }
	putF := func(v float64) { putU(math.Float64bits(v)) }

	putU(s.AverageHash)
	putU(s.DifferenceHash)
	putU(s.PerceptualHash)
	putF(s.Sharpness)
	for _, v := range s.LabHistogram {
		putF(v)
	}
	for _, v := range s.LabMean {
		putF(v)
	}
	for _, v := range s.EdgeHistogram {
		putF(v)
	}
	putF(s.EdgeDensity)
	putU(uint64(s.FaceCount))
	return buf
}

// decodeSignature converts a BLOB written by encodeSignature back.
func decodeSignature(buf []byte) (signature.Signature, error) {
	var s signature.Signature
	if len(buf) != signatureBlobSize {
		return s, fmt.Errorf("signature blob is %d bytes, want %d", len(buf), signatureBlobSize)
	}
	off := 0
	getU := func() uint64 {
		v := binary.LittleEndian.Uint64(buf[off:])
		off += 8
		return v
	}
	getF := func() float64 { return math.Float64frombits(getU()) }

	s.AverageHash = getU()
	s.DifferenceHash = getU()
	s.PerceptualHash = getU()
	s.Sharpness = getF()
	for i := range s.LabHistogram {
		s.LabHistogram[i] = getF()
	}
	for i := range s.LabMean {
		s.LabMean[i] = getF()
	}
	for i := range s.EdgeHistogram {
		s.EdgeHistogram[i] = getF()
	}
	s.EdgeDensity = getF()
	s.FaceCount = int(getU())
	return s, nil
}

// SaveSignature stores or replaces the cached signature of an asset.
func (db *DB) SaveSignature(id string, sig signature.Signature) error {
	now := time.Now().UnixMilli()
	blob := encodeSignature(sig)
	_, err := db.Exec(`
		INSERT INTO signatures (asset_id, blob, created_at) VALUES (?, ?, ?)
		ON CONFLICT(asset_id) DO UPDATE SET blob = ?, created_at = ?
	`, id, blob, now, blob, now)
	if err != nil {
		return fmt.Errorf("save signature: %w", err)
	}
	return nil
}

// GetSignature returns the cached signature of an asset. ok is false when
// none is stored.
func (db *DB) GetSignature(id string) (sig signature.Signature, ok bool, err error) {
	var blob []byte
	err = db.QueryRow("SELECT blob FROM signatures WHERE asset_id = ?", id).Scan(&blob)
	if err == sql.ErrNoRows {
		return sig, false, nil
	}
	if err != nil {
		return sig, false, fmt.Errorf("get signature: %w", err)
	}
	sig, err = decodeSignature(blob)
	if err != nil {
		return sig, false, fmt.Errorf("get signature %s: %w", id, err)
	}
	return sig, true, nil
}

// DeleteSignatures drops cached signatures of deleted assets.
func (db *DB) DeleteSignatures(ids []string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("delete signatures: %w", err)
	}
	for _, id := range ids {
		if _, err := tx.Exec("DELETE FROM signatures WHERE asset_id = ?", id); err != nil {
			tx.Rollback()
			return fmt.Errorf("delete signature %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete signatures: %w", err)
	}
	return nil
}

// CountSignatures returns how many signatures are cached.
func (db *DB) CountSignatures() (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM signatures").Scan(&n); err != nil {
		return 0, fmt.Errorf("count signatures: %w", err)
	}
	return n, nil
}
