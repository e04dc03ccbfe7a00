package engine

import (
	"encoding/binary"
	"fmt"
)

// EncodeWAV serialises a buffer as canonical 16-bit PCM WAV bytes.
// Samples are clamped to [-1, 1] before quantisation.
func EncodeWAV(buf *Buffer) []byte {
	dataLen := len(buf.Data) * 2
	out := make([]byte, 44+dataLen)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(buf.Channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(buf.SampleRate))
	byteRate := buf.SampleRate * buf.Channels * 2
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(buf.Channels*2))
	binary.LittleEndian.PutUint16(out[34:36], 16)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))

	for i, s := range buf.Data {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[44+i*2:], uint16(v))
	}
	return out
}

// decodePCM16 reads back a file produced by EncodeWAV. It handles
// exactly the canonical layout and nothing else; loader assets go
// through DecodeWAV instead.
func decodePCM16(data []byte) (*Buffer, error) {
	if len(data) < 44 {
		return nil, fmt.Errorf("wav: truncated header")
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav: not a RIFF/WAVE file")
	}
	if format := binary.LittleEndian.Uint16(data[20:22]); format != 1 {
		return nil, fmt.Errorf("wav: unsupported format code %d", format)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		return nil, fmt.Errorf("wav: unsupported bit depth %d", bits)
	}
	channels := int(binary.LittleEndian.Uint16(data[22:24]))
	sampleRate := int(binary.LittleEndian.Uint32(data[24:28]))
	dataLen := int(binary.LittleEndian.Uint32(data[40:44]))
	if 44+dataLen > len(data) {
		return nil, fmt.Errorf("wav: data chunk exceeds file size")
	}

	buf := &Buffer{
		SampleRate: sampleRate,
		Channels:   channels,
		Data:       make([]float32, dataLen/2),
	}
	for i := range buf.Data {
		v := int16(binary.LittleEndian.Uint16(data[44+i*2:]))
		buf.Data[i] = float32(v) / 32767
	}
	return buf, nil
}
