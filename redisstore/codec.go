package redisstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/caselane/authcore"
)

// Binary wire formats for session and token records. Strings are
// byte-length-prefixed (max 255), timestamps are BigEndian int64 Unix
// seconds. A leading version byte leaves room for schema evolution.
const (
	sessionFormatVersion = 1
	tokenFormatVersion   = 1
)

func encodeSession(s *authcore.Session) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(sessionFormatVersion)

	for _, field := range []string{s.UserID, s.Metadata.IP, s.Metadata.UserAgent, s.Metadata.DeviceFingerprint} {
		if err := writeString(&buf, field); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt.Unix()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt.Unix()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decodeSession rebuilds a session from its blob. The ID is not part of
// the payload; the caller sets it from the key it fetched.
func decodeSession(data []byte) (*authcore.Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersion {
		return nil, errors.New("unknown session format version")
	}

	s := &authcore.Session{}
	if s.UserID, err = readString(reader); err != nil {
		return nil, err
	}
	if s.Metadata.IP, err = readString(reader); err != nil {
		return nil, err
	}
	if s.Metadata.UserAgent, err = readString(reader); err != nil {
		return nil, err
	}
	if s.Metadata.DeviceFingerprint, err = readString(reader); err != nil {
		return nil, err
	}

	createdAt, expiresAt, err := readTimestamps(reader)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = createdAt
	s.ExpiresAt = expiresAt

	return s, nil
}

func encodeToken(t *authcore.Token) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(tokenFormatVersion)
	buf.WriteByte(byte(t.Kind))

	if err := writeString(&buf, t.Subject); err != nil {
		return nil, err
	}

	if err := binary.Write(&buf, binary.BigEndian, t.CreatedAt.Unix()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, t.ExpiresAt.Unix()); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decodeToken rebuilds a token record; the hash comes from the key.
func decodeToken(data []byte) (*authcore.Token, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != tokenFormatVersion {
		return nil, errors.New("unknown token format version")
	}

	kind, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	t := &authcore.Token{Kind: authcore.TokenKind(kind)}
	if t.Subject, err = readString(reader); err != nil {
		return nil, err
	}

	createdAt, expiresAt, err := readTimestamps(reader)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = createdAt
	t.ExpiresAt = expiresAt

	return t, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return errors.New("string field too long")
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	length, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}

func readTimestamps(reader *bytes.Reader) (createdAt, expiresAt time.Time, err error) {
	var created, expires int64
	if err := binary.Read(reader, binary.BigEndian, &created); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expires); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return time.Unix(created, 0), time.Unix(expires, 0), nil
}
