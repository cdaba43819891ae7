// Package chat holds the domain types shared by the engine, the HTTP client
// and the views: conversation identities, messages and list entries.
// It imports nothing from the rest of the module.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// ID identifies a conversation. The server may send it as a JSON string or a
// JSON number; both decode to the same canonical text so "42" and 42 compare
// equal.
type ID string

// Draft is the conversation that has not been created on the server yet.
const Draft ID = ""

// draftKey is how the draft is labelled in logs and status snapshots.
const draftKey = "new"

// ParseID turns user-supplied text (CLI args) into an ID. Only surrounding
// space is trimmed; "" and "new" name the draft. Everything else is kept
// byte for byte, so "0042" and "42" stay different conversations.
func ParseID(s string) ID {
	s = strings.TrimSpace(s)
	if s == "" || s == draftKey {
		return Draft
	}
	return ID(s)
}

// IsDraft reports whether id is the not-yet-created conversation.
func (id ID) IsDraft() bool { return id == Draft }

func (id ID) String() string {
	if id == Draft {
		return draftKey
	}
	return string(id)
}

// MarshalJSON encodes the draft as null and everything else as a string.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == Draft {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = Draft
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("conversation id: %w", err)
		}
		*id = ID(s)
		return nil
	}
	canon, ok := canonicalNumber(string(data))
	if !ok {
		return fmt.Errorf("conversation id: unsupported value %s", data)
	}
	*id = ID(canon)
	return nil
}

// canonicalNumber renders a JSON number as decimal text. Integers keep
// every digit regardless of size.
func canonicalNumber(s string) (string, bool) {
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return n.String(), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return "", false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return strconv.FormatInt(int64(f), 10), true
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}
