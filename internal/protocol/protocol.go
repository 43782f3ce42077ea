// Package protocol defines the datagram format spoken between digestry
// clients and servers: the command vocabulary, header names, response
// codes, and the request/response codecs. A message is a block of
// "Name: value" header lines terminated by a blank line.
package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Version is the protocol version sent in the PV header. Peers accept any
// version with the same integer major part.
const Version = "2.1"

// Command vocabulary. The "all" keyword in access rule files expands to
// exactly this set.
const (
	OpCheck     = "check"
	OpReport    = "report"
	OpPing      = "ping"
	OpPong      = "pong"
	OpInfo      = "info"
	OpWhitelist = "whitelist"
)

// AllOps returns the full fixed command vocabulary.
func AllOps() []string {
	return []string{OpCheck, OpReport, OpPing, OpPong, OpInfo, OpWhitelist}
}

// KnownOp reports whether op is part of the command vocabulary.
func KnownOp(op string) bool {
	switch op {
	case OpCheck, OpReport, OpPing, OpPong, OpInfo, OpWhitelist:
		return true
	}
	return false
}

// Response codes.
const (
	CodeOK                 = 200
	CodeBadRequest         = 400
	CodeUnauthorized       = 401
	CodeForbidden          = 403
	CodeInternalError      = 500
	CodeNotImplemented     = 501
	CodeUnsupportedVersion = 505
)

// Diag returns the default diagnostic text for a response code.
func Diag(code int) string {
	switch code {
	case CodeOK:
		return "OK"
	case CodeBadRequest:
		return "Bad request"
	case CodeUnauthorized:
		return "Unauthorized"
	case CodeForbidden:
		return "Forbidden"
	case CodeNotImplemented:
		return "Not implemented"
	case CodeUnsupportedVersion:
		return "Version not supported"
	default:
		return "Internal server error"
	}
}

// Header names. Parsing is case-insensitive; these are the forms written
// on the wire.
const (
	HeaderOp        = "Op"
	HeaderDigest    = "Op-Digest"
	HeaderThread    = "Thread"
	HeaderVersion   = "PV"
	HeaderUser      = "User"
	HeaderTime      = "Time"
	HeaderSig       = "Sig"
	HeaderCode      = "Code"
	HeaderDiag      = "Diag"
	HeaderCount     = "Count"
	HeaderWLCount   = "WL-Count"
	HeaderEntered   = "Entered"
	HeaderUpdated   = "Updated"
	HeaderWLEntered = "WL-Entered"
	HeaderWLUpdated = "WL-Updated"
)

// DigestLength is the length of a digest key: 40 lowercase hex characters.
const DigestLength = 40

// ValidateDigest checks that s has the fixed digest form. The store itself
// treats keys as opaque; validation happens once at the protocol boundary.
func ValidateDigest(s string) error {
	if len(s) != DigestLength {
		return fmt.Errorf("digest must be %d characters, got %d", DigestLength, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("digest contains non-hex character %q", c)
		}
	}
	return nil
}

// minThread keeps request ids out of the low range so a zero or tiny value
// always signals a parse problem rather than a real request.
const minThread = 1024

// NewThread returns a random request id in [1024, 65535].
func NewThread() uint16 {
	var b [2]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic(err)
		}
		v := binary.BigEndian.Uint16(b[:])
		if v >= minThread {
			return v
		}
	}
}

// CompatibleVersion reports whether pv shares the integer major part of
// Version. An unparseable pv is incompatible.
func CompatibleVersion(pv string) bool {
	return major(pv) != -1 && major(pv) == major(Version)
}

func major(v string) int {
	head, _, _ := strings.Cut(strings.TrimSpace(v), ".")
	n, err := strconv.Atoi(head)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
