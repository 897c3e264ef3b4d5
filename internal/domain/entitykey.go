package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Source identifies where an entity was created.
type Source string

const (
	// SourceLocal marks entities created on this machine, addressed by UUID.
	SourceLocal Source = "local"
	// SourceZebra marks entities owned by Zebra, addressed by integer id.
	SourceZebra Source = "zebra"
)

// EntityKey is a tagged identifier: either Local(UUID) or Zebra(int).
// The zero value is invalid; use the constructors.
type EntityKey struct {
	source  Source
	localID uuid.UUID
	zebraID int
}

// NewLocalKey builds a local key from an existing UUID.
func NewLocalKey(id uuid.UUID) EntityKey {
	return EntityKey{source: SourceLocal, localID: id}
}

// NewRandomLocalKey builds a local key with a fresh random UUID.
func NewRandomLocalKey() EntityKey {
	return NewLocalKey(uuid.New())
}

// NewZebraKey builds a Zebra key. The id must be non-negative.
func NewZebraKey(id int) (EntityKey, error) {
	if id < 0 {
		return EntityKey{}, fmt.Errorf("%w: zebra id must be non-negative, got %d", ErrValidation, id)
	}
	return EntityKey{source: SourceZebra, zebraID: id}, nil
}

// Source returns the origin tag of the key.
func (k EntityKey) Source() Source { return k.source }

// IsLocal reports whether the key is locally sourced.
func (k EntityKey) IsLocal() bool { return k.source == SourceLocal }

// IsZebra reports whether the key is Zebra sourced.
func (k EntityKey) IsZebra() bool { return k.source == SourceZebra }

// IsZero reports whether the key was never initialized.
func (k EntityKey) IsZero() bool { return k.source == "" }

// UUID returns the local UUID and whether the key is local.
func (k EntityKey) UUID() (uuid.UUID, bool) {
	return k.localID, k.source == SourceLocal
}

// ZebraID returns the Zebra id and whether the key is Zebra sourced.
func (k EntityKey) ZebraID() (int, bool) {
	return k.zebraID, k.source == SourceZebra
}

// String returns the canonical string form of the id.
func (k EntityKey) String() string {
	switch k.source {
	case SourceLocal:
		return k.localID.String()
	case SourceZebra:
		return strconv.Itoa(k.zebraID)
	default:
		return ""
	}
}

// Equal reports whether both keys share source and canonical id.
func (k EntityKey) Equal(other EntityKey) bool {
	return k.source == other.source && k.String() == other.String()
}

type entityKeyJSON struct {
	Source Source          `json:"source"`
	ID     json.RawMessage `json:"id"`
}

// MarshalJSON encodes the key as {"source":..., "id":...} with a string id
// for local keys and a number id for Zebra keys.
func (k EntityKey) MarshalJSON() ([]byte, error) {
	switch k.source {
	case SourceLocal:
		return json.Marshal(entityKeyJSON{
			Source: k.source,
			ID:     json.RawMessage(strconv.Quote(k.localID.String())),
		})
	case SourceZebra:
		return json.Marshal(entityKeyJSON{
			Source: k.source,
			ID:     json.RawMessage(strconv.Itoa(k.zebraID)),
		})
	default:
		return nil, fmt.Errorf("%w: cannot encode zero entity key", ErrValidation)
	}
}

// UnmarshalJSON decodes the {"source":..., "id":...} wire form, enforcing the
// source/id-type pairing.
func (k *EntityKey) UnmarshalJSON(data []byte) error {
	var raw entityKeyJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch raw.Source {
	case SourceLocal:
		var s string
		if err := json.Unmarshal(raw.ID, &s); err != nil {
			return fmt.Errorf("%w: local entity key id must be a UUID string", ErrValidation)
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return fmt.Errorf("%w: invalid UUID %q", ErrValidation, s)
		}
		*k = NewLocalKey(id)
		return nil
	case SourceZebra:
		var n int
		if err := json.Unmarshal(raw.ID, &n); err != nil {
			return fmt.Errorf("%w: zebra entity key id must be an integer", ErrValidation)
		}
		key, err := NewZebraKey(n)
		if err != nil {
			return err
		}
		*k = key
		return nil
	default:
		return fmt.Errorf("%w: unknown entity key source %q", ErrValidation, raw.Source)
	}
}
