package codec

import (
	"encoding/binary"
)

// TrailerSize is the width of the length field that ends every record
const TrailerSize = 4

// Command is one decoded record from a command stream
type Command struct {
	Timestamp    uint64 `json:"timestamp"`     // Unix microseconds, 0 before TimestampVersion
	Opcode       uint32 `json:"opcode"`        // Command type, interpreted outside this package
	OriginalSize uint32 `json:"original_size"` // Size the writer declared, may exceed len(Data)
	Data         []byte `json:"data"`          // Remaining payload bytes, owned by the Command
}

// PrefixSize returns how many bytes precede Data in a payload of the given
// format version
func PrefixSize(version uint16) int {
	if version >= TimestampVersion {
		return 16
	}
	return 8
}

// DecodeCommand parses one record payload (the bytes before its trailer).
// The payload bytes are copied so the Command does not alias the source.
func DecodeCommand(payload []byte, version uint16) (Command, error) {
	if len(payload) < PrefixSize(version) {
		return Command{}, newDecodeError(KindShortRecord,
			"record of %d bytes is shorter than the %d byte prefix", len(payload), PrefixSize(version))
	}

	var cmd Command
	pos := 0
	if version >= TimestampVersion {
		cmd.Timestamp = ReadUint64(payload, pos)
		pos += 8
	}
	cmd.Opcode = ReadUint32(payload, pos)
	pos += 4
	cmd.OriginalSize = ReadUint32(payload, pos)
	pos += 4

	cmd.Data = make([]byte, len(payload)-pos)
	copy(cmd.Data, payload[pos:])

	return cmd, nil
}

// EncodeCommand serializes cmd as a framed record: payload followed by its
// length trailer. Used to build fixtures in the writer's layout.
func EncodeCommand(cmd Command, version uint16) []byte {
	payloadSize := PrefixSize(version) + len(cmd.Data)
	buf := make([]byte, payloadSize+TrailerSize)

	pos := 0
	if version >= TimestampVersion {
		binary.LittleEndian.PutUint64(buf[pos:], cmd.Timestamp)
		pos += 8
	}
	binary.LittleEndian.PutUint32(buf[pos:], cmd.Opcode)
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], cmd.OriginalSize)
	pos += 4
	copy(buf[pos:], cmd.Data)

	binary.LittleEndian.PutUint32(buf[payloadSize:], uint32(payloadSize))
	return buf
}
