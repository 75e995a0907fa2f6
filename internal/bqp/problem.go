// Package bqp models binary quadratic programs in the bqpjson interchange
// format: decoding, validation, sparse evaluation, and the dense form the
// relaxation dynamics operate on.
package bqp

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Variable domains understood by the decoder.
const (
	DomainBoolean = "boolean"
	DomainSpin    = "spin"
)

// LinearTerm is a first-order coefficient attached to a single variable.
type LinearTerm struct {
	ID    int     `json:"id"`
	Coeff float64 `json:"coeff"`
}

// QuadraticTerm is a second-order coefficient attached to an unordered
// variable pair. IDTail is strictly less than IDHead in a valid document,
// so each pair appears exactly once.
type QuadraticTerm struct {
	IDTail int     `json:"id_tail"`
	IDHead int     `json:"id_head"`
	Coeff  float64 `json:"coeff"`
}

// Problem is a bqpjson document. It is treated as immutable once decoded;
// all solver stages share one instance.
//
// The actual objective value of an assignment is Scale*(terms + Offset),
// where terms is the raw sum the evaluators compute.
type Problem struct {
	Version        string                 `json:"version,omitempty"`
	ID             int                    `json:"id"`
	VariableDomain string                 `json:"variable_domain"`
	VariableIDs    []int                  `json:"variable_ids"`
	Scale          float64                `json:"scale"`
	Offset         float64                `json:"offset"`
	LinearTerms    []LinearTerm           `json:"linear_terms"`
	QuadraticTerms []QuadraticTerm        `json:"quadratic_terms"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Decode reads a bqpjson document and validates it.
func Decode(r io.Reader) (*Problem, error) {
	var p Problem
	// Document default when the field is absent; an explicit zero is
	// rejected by Validate.
	p.Scale = 1.0

	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to decode problem: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Load reads a bqpjson problem from path, or from stdin when path is empty
// or "-".
func Load(path string) (*Problem, error) {
	if path == "" || path == "-" {
		return Decode(os.Stdin)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open problem file: %w", err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Encode writes the problem as indented bqpjson.
func (p *Problem) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode problem: %w", err)
	}
	return nil
}

// Validate checks the structural rules of the bqpjson format: a known
// variable domain, unique declared ids, every term referencing a declared
// id, ordered quadratic pairs with no duplicates, and a positive scale.
func (p *Problem) Validate() error {
	switch p.VariableDomain {
	case DomainBoolean, DomainSpin:
	default:
		return &SchemaError{Field: "variable_domain", Reason: fmt.Sprintf("unsupported domain %q", p.VariableDomain)}
	}
	if len(p.VariableIDs) == 0 {
		return &SchemaError{Field: "variable_ids", Reason: "cannot be empty"}
	}
	if p.Scale <= 0 {
		return &SchemaError{Field: "scale", Reason: fmt.Sprintf("must be positive, got %g", p.Scale)}
	}

	declared := make(map[int]bool, len(p.VariableIDs))
	for _, id := range p.VariableIDs {
		if declared[id] {
			return &SchemaError{Field: "variable_ids", Reason: fmt.Sprintf("duplicate id %d", id)}
		}
		declared[id] = true
	}

	seenLinear := make(map[int]bool, len(p.LinearTerms))
	for _, lt := range p.LinearTerms {
		if !declared[lt.ID] {
			return &SchemaError{Field: "linear_terms", Reason: fmt.Sprintf("undeclared id %d", lt.ID)}
		}
		if seenLinear[lt.ID] {
			return &SchemaError{Field: "linear_terms", Reason: fmt.Sprintf("duplicate id %d", lt.ID)}
		}
		seenLinear[lt.ID] = true
	}

	type pair struct{ tail, head int }
	seenQuad := make(map[pair]bool, len(p.QuadraticTerms))
	for _, qt := range p.QuadraticTerms {
		if !declared[qt.IDTail] {
			return &SchemaError{Field: "quadratic_terms", Reason: fmt.Sprintf("undeclared id_tail %d", qt.IDTail)}
		}
		if !declared[qt.IDHead] {
			return &SchemaError{Field: "quadratic_terms", Reason: fmt.Sprintf("undeclared id_head %d", qt.IDHead)}
		}
		if qt.IDTail >= qt.IDHead {
			return &SchemaError{Field: "quadratic_terms", Reason: fmt.Sprintf("id_tail %d must be less than id_head %d", qt.IDTail, qt.IDHead)}
		}
		key := pair{qt.IDTail, qt.IDHead}
		if seenQuad[key] {
			return &SchemaError{Field: "quadratic_terms", Reason: fmt.Sprintf("duplicate pair (%d, %d)", qt.IDTail, qt.IDHead)}
		}
		seenQuad[key] = true
	}

	return nil
}

// RequireBoolean returns a SchemaError unless the problem is in the boolean
// domain. Spin problems must be converted with SwapDomain before solving.
func (p *Problem) RequireBoolean() error {
	if p.VariableDomain != DomainBoolean {
		return &SchemaError{
			Field:  "variable_domain",
			Reason: fmt.Sprintf("solver requires %q, got %q", DomainBoolean, p.VariableDomain),
		}
	}
	return nil
}

// UniformAssignment returns a full assignment with every declared variable
// set to v.
func (p *Problem) UniformAssignment(v float64) map[int]float64 {
	assignment := make(map[int]float64, len(p.VariableIDs))
	for _, id := range p.VariableIDs {
		assignment[id] = v
	}
	return assignment
}
