package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"sort"
	"strconv"
)

// Request is one client datagram.
type Request struct {
	Op      string
	Digest  string
	Thread  uint16
	Version string
	// User, Time and Sig are present only on signed requests. An empty
	// User means the caller is anonymous.
	User string
	Time int64
	Sig  string
}

// Marshal serializes the request, including the Sig header when set.
func (r *Request) Marshal() []byte {
	return r.marshal(true)
}

// MarshalUnsigned serializes the request without its Sig header. The result
// is the exact payload covered by the request signature.
func (r *Request) MarshalUnsigned() []byte {
	return r.marshal(false)
}

func (r *Request) marshal(withSig bool) []byte {
	var b bytes.Buffer
	writeHeader(&b, HeaderOp, r.Op)
	if r.Digest != "" {
		writeHeader(&b, HeaderDigest, r.Digest)
	}
	writeHeader(&b, HeaderThread, strconv.FormatUint(uint64(r.Thread), 10))
	writeHeader(&b, HeaderVersion, r.Version)
	if r.User != "" {
		writeHeader(&b, HeaderUser, r.User)
		writeHeader(&b, HeaderTime, strconv.FormatInt(r.Time, 10))
		if withSig && r.Sig != "" {
			writeHeader(&b, HeaderSig, r.Sig)
		}
	}
	b.WriteByte('\n')
	return b.Bytes()
}

// ParseRequest decodes a request datagram. It validates syntax only
// (header grammar, numeric fields); semantic checks such as version
// compatibility and digest form belong to the caller.
func ParseRequest(data []byte) (*Request, error) {
	h, err := readHeader(data)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Op:      h.Get(HeaderOp),
		Digest:  h.Get(HeaderDigest),
		Version: h.Get(HeaderVersion),
		User:    h.Get(HeaderUser),
		Sig:     h.Get(HeaderSig),
	}
	if req.Op == "" {
		return nil, errors.New("missing Op header")
	}

	thread, err := parseThread(h.Get(HeaderThread))
	if err != nil {
		return nil, err
	}
	req.Thread = thread

	if ts := h.Get(HeaderTime); ts != "" {
		t, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid Time header: %w", err)
		}
		req.Time = t
	}

	return req, nil
}

// PeekThread extracts only the Thread header from a datagram whose full
// parse failed, so an error reply can still be routed. ok is false when
// the datagram has no usable thread at all; such datagrams get no reply.
func PeekThread(data []byte) (uint16, bool) {
	h, err := readHeader(data)
	if err != nil {
		return 0, false
	}
	thread, err := parseThread(h.Get(HeaderThread))
	if err != nil {
		return 0, false
	}
	return thread, true
}

// Response is one server datagram.
type Response struct {
	Thread  uint16
	Code    int
	Diag    string
	Version string
	// Body holds op-specific headers such as Count and WL-Count. Lookups
	// through Get are case-insensitive.
	Body textproto.MIMEHeader
}

// NewResponse builds a response shell for the given request thread and
// code, with the default diagnostic text.
func NewResponse(thread uint16, code int) *Response {
	return &Response{
		Thread:  thread,
		Code:    code,
		Diag:    Diag(code),
		Version: Version,
		Body:    textproto.MIMEHeader{},
	}
}

// Set adds an op-specific body header.
func (r *Response) Set(name, value string) {
	if r.Body == nil {
		r.Body = textproto.MIMEHeader{}
	}
	r.Body.Set(name, value)
}

// Get returns an op-specific body header, "" when absent.
func (r *Response) Get(name string) string {
	if r.Body == nil {
		return ""
	}
	return r.Body.Get(name)
}

// Marshal serializes the response. Body headers are written in sorted
// order so output is deterministic.
func (r *Response) Marshal() []byte {
	var b bytes.Buffer
	writeHeader(&b, HeaderThread, strconv.FormatUint(uint64(r.Thread), 10))
	writeHeader(&b, HeaderCode, strconv.Itoa(r.Code))
	writeHeader(&b, HeaderDiag, r.Diag)
	writeHeader(&b, HeaderVersion, r.Version)

	keys := make([]string, 0, len(r.Body))
	for k := range r.Body {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range r.Body[k] {
			writeHeader(&b, k, v)
		}
	}
	b.WriteByte('\n')
	return b.Bytes()
}

// ParseResponse decodes a response datagram.
func ParseResponse(data []byte) (*Response, error) {
	h, err := readHeader(data)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Diag:    h.Get(HeaderDiag),
		Version: h.Get(HeaderVersion),
		Body:    textproto.MIMEHeader{},
	}

	thread, err := parseThread(h.Get(HeaderThread))
	if err != nil {
		return nil, err
	}
	resp.Thread = thread

	code, err := strconv.Atoi(h.Get(HeaderCode))
	if err != nil {
		return nil, fmt.Errorf("invalid Code header: %w", err)
	}
	resp.Code = code

	for k, vs := range h {
		switch k {
		case HeaderThread, HeaderCode, HeaderDiag,
			textproto.CanonicalMIMEHeaderKey(HeaderVersion):
			continue
		}
		resp.Body[k] = vs
	}

	return resp, nil
}

func writeHeader(b *bytes.Buffer, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteByte('\n')
}

func readHeader(data []byte) (textproto.MIMEHeader, error) {
	r := textproto.NewReader(bufio.NewReader(bytes.NewReader(data)))
	h, err := r.ReadMIMEHeader()
	// A datagram may omit the terminating blank line; the headers read up
	// to EOF are still a complete message.
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("malformed message: %w", err)
	}
	if len(h) == 0 {
		return nil, errors.New("empty message")
	}
	return h, nil
}

func parseThread(s string) (uint16, error) {
	if s == "" {
		return 0, errors.New("missing Thread header")
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid Thread header: %w", err)
	}
	return uint16(v), nil
}
