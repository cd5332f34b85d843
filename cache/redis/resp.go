package redis

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func buildCommand(parts ...string) []byte {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "*%d\r\n", len(parts))
	for _, part := range parts {
		fmt.Fprintf(buf, "$%d\r\n%s\r\n", len(part), part)
	}
	return buf.Bytes()
}

func decodeRESP(r *bufio.Reader) (any, error) {
	prefix, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	line = strings.TrimSuffix(line, "\r\n")
	switch prefix {
	case '+':
		return line, nil
	case '-':
		return nil, errors.New(line)
	case ':':
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, err
		}
		return n, nil
	case '$':
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, err
		}
		if n == -1 {
			return nil, nil
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, err
		}
		if err := consumeCRLF(r); err != nil {
			return nil, err
		}
		return data, nil
	case '*':
		n, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, err
		}
		if n == -1 {
			return nil, nil
		}
		arr := make([]any, n)
		for i := 0; i < int(n); i++ {
			val, err := decodeRESP(r)
			if err != nil {
				return nil, err
			}
			arr[i] = val
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("redis: unsupported RESP prefix %q", prefix)
	}
}

func consumeCRLF(r *bufio.Reader) error {
	b1, err := r.ReadByte()
	if err != nil {
		return err
	}
	b2, err := r.ReadByte()
	if err != nil {
		return err
	}
	if b1 != '\r' || b2 != '\n' {
		return errors.New("redis: malformed RESP terminator")
	}
	return nil
}


// stringsReply converts a RESP array of bulk strings into a string slice.
func stringsReply(resp any) ([]string, error) {
	switch v := resp.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, el := range v {
			b, ok := el.([]byte)
			if !ok {
				return nil, fmt.Errorf("redis: unexpected array element %T", el)
			}
			out = append(out, string(b))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("redis: expected array reply, got %T", resp)
	}
}

func isOK(resp any) bool {
	msg, ok := resp.(string)
	return ok && strings.EqualFold(msg, "OK")
}
