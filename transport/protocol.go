package transport

import (
	"errors"
	"strconv"
	"strings"

	"weightcast/weights"
)

// DefaultPort is the TCP port the owner transport listens on.
const DefaultPort = 8988

var (
	// ErrBind indicates the owner transport could not bind its listening
	// socket. Fatal to the Serve call, never retried.
	ErrBind = errors.New("transport: bind failed")
	// ErrConnect indicates the client could not reach the owner endpoint.
	ErrConnect = errors.New("transport: connect failed")
	// ErrRead indicates the client connection broke before end-of-stream.
	ErrRead = errors.New("transport: read failed")
)

// Encode renders a weight vector as comma-separated ASCII decimals with no
// trailing delimiter and no terminating newline. Whole values keep a ".0"
// suffix so the reference payload is produced byte for byte; everything else
// uses the shortest form that round-trips.
func Encode(vector weights.Vector) []byte {
	if len(vector) == 0 {
		return []byte{}
	}

	var b strings.Builder
	for i, w := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(formatWeight(w))
	}
	return []byte(b.String())
}

func formatWeight(w float64) string {
	s := strconv.FormatFloat(w, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Parse decodes a comma-separated weight payload. Fields that fail to parse
// as a number become 0.0 rather than failing the whole payload; the caller
// cannot tell a sent zero from coerced garbage. An empty payload yields an
// empty vector.
func Parse(data []byte) weights.Vector {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return weights.Vector{}
	}

	fields := strings.Split(text, ",")
	vector := make(weights.Vector, len(fields))
	for i, field := range fields {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			continue
		}
		vector[i] = value
	}
	return vector
}
