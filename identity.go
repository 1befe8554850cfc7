package authclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// IdentityID accepts either a JSON string or a JSON number
type IdentityID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *IdentityID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = IdentityID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identity id must be a string or number: %w", err)
	}
	*id = IdentityID(n.String())
	return nil
}

func (id IdentityID) String() string {
	return string(id)
}

// Identity is the profile returned by the "who am I" endpoint
type Identity struct {
	ID             IdentityID     `json:"id,omitempty"`
	Email          string         `json:"email,omitempty"`
	DisplayName    string         `json:"displayName,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	EmailConfirmed bool           `json:"isEmailConfirmed,omitempty"`
	Roles          []string       `json:"roles,omitempty"`
	Extra          map[string]any `json:"-"`
}

var identityFields = []string{"id", "email", "displayName", "phone", "isEmailConfirmed", "roles"}

// UnmarshalJSON keeps unknown attributes in Extra.
func (i *Identity) UnmarshalJSON(data []byte) error {
	type alias Identity
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range identityFields {
		delete(raw, k)
	}
	if len(raw) > 0 {
		a.Extra = raw
	}

	*i = Identity(a)
	return nil
}

// Valid reports whether the record identifies anyone at all
func (i *Identity) Valid() bool {
	return i != nil && (i.ID != "" || i.Email != "")
}

// Clone returns a deep copy so the store never shares mutable state.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	if i.Roles != nil {
		c.Roles = append([]string(nil), i.Roles...)
	}
	if i.Extra != nil {
		c.Extra = make(map[string]any, len(i.Extra))
		for k, v := range i.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

func (i *Identity) String() string {
	if i == nil {
		return "<absent>"
	}
	return fmt.Sprintf("Identity{id=%s email=%s}", i.ID, i.Email)
}
