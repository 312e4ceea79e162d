package chain

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// Uint64 accepts both JSON numbers and quoted decimal strings, the way
// tendermint encodes heights and gas amounts.
type Uint64 uint64

// UnmarshalJSON implements json.Unmarshaler.
func (u *Uint64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*u = 0
		return nil
	}
	s := string(data)
	if len(data) >= 2 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidNumber, err)
		}
	}
	if s == "" {
		*u = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	*u = Uint64(v)
	return nil
}

// MarshalJSON encodes the value as a quoted string.
func (u Uint64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatUint(uint64(u), 10))
}

// Int64 is the signed counterpart of Uint64, used for voting power.
type Int64 int64

// UnmarshalJSON implements json.Unmarshaler.
func (i *Int64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	s := string(data)
	if len(data) >= 2 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidNumber, err)
		}
	}
	if s == "" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	*i = Int64(v)
	return nil
}

// MarshalJSON encodes the value as a quoted string.
func (i Int64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(i), 10))
}

// B64String is a string delivered base64 encoded on the wire.
type B64String string

// UnmarshalJSON implements json.Unmarshaler.
func (b *B64String) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBase64, err)
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidBase64, s, err)
	}
	*b = B64String(decoded)
	return nil
}

// MarshalJSON encodes the value back to base64.
func (b B64String) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString([]byte(b)))
}

// OptB64String is an optional base64 string. JSON null, a missing field and the
// empty string all decode to "absent".
type OptB64String struct {
	Value string
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptB64String) UnmarshalJSON(data []byte) error {
	*o = OptB64String{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Non-string values decode as absent.
		return nil
	}
	if s == "" {
		return nil
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidBase64, s, err)
	}
	o.Value = string(decoded)
	o.Valid = true
	return nil
}

// MarshalJSON encodes the value back to base64, or null when absent.
func (o OptB64String) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(base64.StdEncoding.EncodeToString([]byte(o.Value)))
}
