package byteutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"
)

var bytesBuffer = sync.Pool{
	New: func() interface{} { return &bytes.Buffer{} },
}

func GetBytesBuf() (p *bytes.Buffer) {
	ifc := bytesBuffer.Get()
	if ifc != nil {
		p = ifc.(*bytes.Buffer)
	}
	return
}

// PutBytesBuf resets p and returns it to the pool.
func PutBytesBuf(p *bytes.Buffer) {
	p.Reset()
	bytesBuffer.Put(p)
}

// HashFloats hashes the bit patterns of every slice, each prefixed with its
// length so that ([1], [2, 3]) and ([1, 2], [3]) differ.
func HashFloats(vecs ...[]float64) [32]byte {
	buffer := GetBytesBuf()
	defer PutBytesBuf(buffer)

	var word [8]byte
	for _, vec := range vecs {
		binary.BigEndian.PutUint64(word[:], uint64(len(vec)))
		buffer.Write(word[:])
		for _, v := range vec {
			binary.BigEndian.PutUint64(word[:], math.Float64bits(v))
			buffer.Write(word[:])
		}
	}
	return sha256.Sum256(buffer.Bytes())
}
