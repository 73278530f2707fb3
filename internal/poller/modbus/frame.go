// internal/poller/modbus/frame.go
package modbus

import (
	"encoding/binary"
	"fmt"

	"github.com/tamzrod/force-daq/internal/crc"
	"github.com/tamzrod/force-daq/internal/status"
)

// FuncReadHoldingRegisters is the only function code the client issues.
const FuncReadHoldingRegisters uint8 = 0x03

const exceptionBit uint8 = 0x80

// protocolError is a sentinel carrying a status code.
type protocolError struct {
	code uint16
	msg  string
}

func (e *protocolError) Error() string { return e.msg }
func (e *protocolError) Code() uint16  { return e.code }

var (
	// ErrCRCMismatch means the trailing CRC did not match the frame.
	ErrCRCMismatch error = &protocolError{status.ErrorCodeCRC, "modbus rtu: crc mismatch"}

	// ErrShortResponse means the link timed out part way through a response.
	ErrShortResponse error = &protocolError{status.ErrorCodeShortResponse, "modbus rtu: short response"}

	// ErrUnexpectedResponse means the response header does not answer the request.
	ErrUnexpectedResponse error = &protocolError{status.ErrorCodeShortResponse, "modbus rtu: unexpected response"}
)

// ExceptionError is a Modbus exception response (function code | 0x80).
type ExceptionError struct {
	Function  uint8
	Exception uint8
}

func (e *ExceptionError) Error() string {
	return fmt.Sprintf("modbus exception: fc=%d code=%d", e.Function, e.Exception)
}

// Code returns the exception code.
func (e *ExceptionError) Code() uint16 { return uint16(e.Exception) }

// Request is one read request. Geometry only.
type Request struct {
	SlaveID  uint8
	Function uint8
	Address  uint16
	Quantity uint16
}

// Encode builds the RTU frame:
//
//	Slave(1) FC(1) Address(2) Quantity(2) CRC(2, little-endian)
func (r Request) Encode() []byte {
	pdu := make([]byte, 6, 6+crc.Size)
	pdu[0] = r.SlaveID
	pdu[1] = r.Function
	binary.BigEndian.PutUint16(pdu[2:4], r.Address)
	binary.BigEndian.PutUint16(pdu[4:6], r.Quantity)
	sum := crc.Sum(pdu)
	return append(pdu, sum[:]...)
}

// ResponseLen is the exact length of a normal response:
//
//	Slave(1) FC(1) ByteCount(1) Data(2*qty) CRC(2)
func (r Request) ResponseLen() int {
	return 3 + 2*int(r.Quantity) + crc.Size
}

// exceptionLen is Slave(1) FC|0x80(1) Code(1) CRC(2).
const exceptionLen = 3 + crc.Size

// checkResponse validates a complete normal response against the request and
// returns its register data.
func checkResponse(r Request, resp []byte) ([]byte, error) {
	if len(resp) != r.ResponseLen() {
		return nil, fmt.Errorf("%w: length %d want %d", ErrShortResponse, len(resp), r.ResponseLen())
	}
	if !crc.Verify(resp) {
		return nil, ErrCRCMismatch
	}
	if resp[0] != r.SlaveID {
		return nil, fmt.Errorf("%w: slave %d want %d", ErrUnexpectedResponse, resp[0], r.SlaveID)
	}
	if resp[1] != r.Function {
		return nil, fmt.Errorf("%w: function %d want %d", ErrUnexpectedResponse, resp[1], r.Function)
	}
	byteCount := int(resp[2])
	if byteCount != 2*int(r.Quantity) {
		return nil, fmt.Errorf("%w: byte count %d want %d", ErrUnexpectedResponse, byteCount, 2*r.Quantity)
	}
	return resp[3 : 3+byteCount], nil
}

// ---- helpers (pure geometry) ----

func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
