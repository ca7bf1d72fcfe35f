package consensus

import "encoding/binary"

func readU32le(b []byte, off *int) (uint32, error) {
	if *off+4 > len(b) {
		return 0, ErrInvalidHeaderLength
	}
	v := binary.LittleEndian.Uint32(b[*off : *off+4])
	*off += 4
	return v, nil
}

func readBytes(b []byte, off *int, n int) ([]byte, error) {
	if n < 0 || *off+n > len(b) {
		return nil, ErrInvalidHeaderLength
	}
	v := b[*off : *off+n]
	*off += n
	return v, nil
}
