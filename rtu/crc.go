package rtu

// calculateCRC computes the CRC-16/Modbus checksum of data. On the wire the
// checksum follows the frame low byte first.
func calculateCRC(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for range 8 {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc = crc >> 1
			}
		}
	}
	return crc
}

func appendCRC(frame []byte) []byte {
	crc := calculateCRC(frame)
	return append(frame, byte(crc&0xFF), byte(crc>>8))
}
