package export

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	maitre "github.com/platewise/maitre"
)

// Simulated Parquet encoding: a deterministic, self-describing binary frame,
// not a real columnar layout. The contract is the magic header, a
// length-framed JSON payload, and exact round-trippability via DecodeParquet.

var parquetMagic = []byte("PAR1")

// encodeParquet frames the canonical JSON encoding of data between the
// Parquet magic markers with a big-endian length prefix.
func encodeParquet(data map[string]any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("parquet payload: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(parquetMagic)
	if err := binary.Write(&buf, binary.BigEndian, uint32(len(payload))); err != nil {
		return nil, err
	}
	buf.Write(payload)
	buf.Write(parquetMagic)
	return buf.Bytes(), nil
}

// DecodeParquet reverses encodeParquet, recovering the logical export data.
func DecodeParquet(raw []byte) (map[string]any, error) {
	if len(raw) < len(parquetMagic)*2+4 {
		return nil, &maitre.ErrValidation{Field: "parquet", Message: "truncated frame"}
	}
	if !bytes.HasPrefix(raw, parquetMagic) || !bytes.HasSuffix(raw, parquetMagic) {
		return nil, &maitre.ErrValidation{Field: "parquet", Message: "missing magic bytes"}
	}

	body := raw[len(parquetMagic) : len(raw)-len(parquetMagic)]
	size := binary.BigEndian.Uint32(body[:4])
	payload := body[4:]
	if uint32(len(payload)) != size {
		return nil, &maitre.ErrValidation{Field: "parquet", Message: "length mismatch"}
	}

	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("parquet payload: %w", err)
	}
	return data, nil
}
