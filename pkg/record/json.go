package record

import (
	"encoding/json"
	"fmt"
)

// NewPayload returns an empty payload of the given variant, used when
// decoding the tagged union from storage or a snapshot.
func NewPayload(v Variant) (Payload, error) {
	switch v {
	case VariantEpisodic:
		return &Episodic{}, nil
	case VariantSemantic:
		return &Semantic{}, nil
	case VariantProcedural:
		return &Procedural{}, nil
	case VariantResource:
		return &Resource{}, nil
	case VariantVault:
		return &Vault{}, nil
	case VariantCore:
		return &Core{}, nil
	default:
		return nil, fmt.Errorf("unknown record variant %q", v)
	}
}

// recordAlias avoids UnmarshalJSON recursion while capturing the payload
// as raw bytes until the variant discriminant is known.
type recordAlias Record

type recordJSON struct {
	*recordAlias
	Payload json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes the tagged union: the variant field selects the
// concrete payload type.
func (r *Record) UnmarshalJSON(data []byte) error {
	aux := recordJSON{recordAlias: (*recordAlias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.Payload) == 0 || string(aux.Payload) == "null" {
		r.Payload = nil
		return nil
	}

	payload, err := NewPayload(r.Variant)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(aux.Payload, payload); err != nil {
		return fmt.Errorf("decoding %s payload: %w", r.Variant, err)
	}

	r.Payload = payload
	return nil
}
