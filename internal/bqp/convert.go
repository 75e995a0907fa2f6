package bqp

import (
	"fmt"
	"sort"
)

// SwapDomain returns an equivalent problem in the opposite variable domain.
// Boolean problems map w=(s+1)/2 into spin variables and spin problems map
// s=2w-1 into boolean variables; coefficients are rewritten and the constant
// produced by the substitution is folded into Offset, so the objective value
// of corresponding assignments is unchanged.
func SwapDomain(p *Problem) (*Problem, error) {
	switch p.VariableDomain {
	case DomainSpin:
		return toBoolean(p), nil
	case DomainBoolean:
		return toSpin(p), nil
	default:
		return nil, &SchemaError{Field: "variable_domain", Reason: fmt.Sprintf("unsupported domain %q", p.VariableDomain)}
	}
}

// toBoolean rewrites a spin problem with the substitution s = 2w - 1.
func toBoolean(p *Problem) *Problem {
	out := clone(p)
	out.VariableDomain = DomainBoolean

	linear := make(map[int]float64, len(p.LinearTerms))
	var constant float64

	for _, lt := range p.LinearTerms {
		linear[lt.ID] += 2 * lt.Coeff
		constant -= lt.Coeff
	}
	for i, qt := range p.QuadraticTerms {
		out.QuadraticTerms[i].Coeff = 4 * qt.Coeff
		linear[qt.IDTail] -= 2 * qt.Coeff
		linear[qt.IDHead] -= 2 * qt.Coeff
		constant += qt.Coeff
	}

	out.LinearTerms = collectLinear(linear)
	out.Offset += constant
	return out
}

// toSpin rewrites a boolean problem with the substitution w = (s + 1) / 2.
func toSpin(p *Problem) *Problem {
	out := clone(p)
	out.VariableDomain = DomainSpin

	linear := make(map[int]float64, len(p.LinearTerms))
	var constant float64

	for _, lt := range p.LinearTerms {
		linear[lt.ID] += lt.Coeff / 2
		constant += lt.Coeff / 2
	}
	for i, qt := range p.QuadraticTerms {
		out.QuadraticTerms[i].Coeff = qt.Coeff / 4
		linear[qt.IDTail] += qt.Coeff / 4
		linear[qt.IDHead] += qt.Coeff / 4
		constant += qt.Coeff / 4
	}

	out.LinearTerms = collectLinear(linear)
	out.Offset += constant
	return out
}

// collectLinear turns an accumulator map into a term list sorted by id,
// dropping coefficients that cancelled to zero.
func collectLinear(linear map[int]float64) []LinearTerm {
	terms := make([]LinearTerm, 0, len(linear))
	for id, coeff := range linear {
		if coeff == 0 {
			continue
		}
		terms = append(terms, LinearTerm{ID: id, Coeff: coeff})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].ID < terms[j].ID })
	return terms
}

// clone deep-copies a problem so conversions never alias the input's slices.
func clone(p *Problem) *Problem {
	out := *p
	out.VariableIDs = append([]int(nil), p.VariableIDs...)
	out.LinearTerms = append([]LinearTerm(nil), p.LinearTerms...)
	out.QuadraticTerms = append([]QuadraticTerm(nil), p.QuadraticTerms...)
	if p.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
