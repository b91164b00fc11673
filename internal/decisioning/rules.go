package decisioning

import (
	"fmt"
	"strconv"
	"strings"

	"decisioning-engine/internal/request"
)

// Condition operators.
const (
	OpEquals      = "equals"
	OpNotEquals   = "notEquals"
	OpContains    = "contains"
	OpStartsWith  = "startsWith"
	OpEndsWith    = "endsWith"
	OpGreaterThan = "greaterThan"
	OpLessThan    = "lessThan"
	OpExists      = "exists"
)

// audit collects which segments and rule conditions matched during one
// campaign's rule walk, regardless of the overall outcome.
type audit struct {
	matchedSegments     []int64
	unmatchedSegments   []int64
	matchedConditions   []string
	unmatchedConditions []string
}

func (a *audit) recordSegment(id int64, matched bool) {
	if matched {
		a.matchedSegments = appendUnique(a.matchedSegments, id)
	} else {
		a.unmatchedSegments = appendUnique(a.unmatchedSegments, id)
	}
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

// evaluateCondition walks a condition tree against ctx. Children are always
// fully evaluated, without boolean short-circuiting, so the audit lists are
// complete. Attribute leaves directly in a branch rule count as rule
// conditions; leaves inside a referenced audience only contribute to that
// segment's outcome.
func evaluateCondition(cond *Condition, audiences map[string]*Condition, ctx request.Context, a *audit, inAudience bool) bool {
	switch {
	case cond == nil:
		return true

	case len(cond.And) > 0:
		matched := true
		for _, child := range cond.And {
			if !evaluateCondition(child, audiences, ctx, a, inAudience) {
				matched = false
			}
		}
		return matched

	case len(cond.Or) > 0:
		matched := false
		for _, child := range cond.Or {
			if evaluateCondition(child, audiences, ctx, a, inAudience) {
				matched = true
			}
		}
		return matched

	case cond.Not != nil:
		return !evaluateCondition(cond.Not, audiences, ctx, a, inAudience)

	case cond.AudienceID != 0:
		segment, ok := audiences[strconv.FormatInt(cond.AudienceID, 10)]
		matched := ok && evaluateCondition(segment, audiences, ctx, &audit{}, true)
		a.recordSegment(cond.AudienceID, matched)
		return matched

	default:
		matched := evaluateLeaf(cond, ctx)
		if !inAudience {
			desc := fmt.Sprintf("%s %s %v", cond.Key, cond.Op, cond.Value)
			if matched {
				a.matchedConditions = append(a.matchedConditions, desc)
			} else {
				a.unmatchedConditions = append(a.unmatchedConditions, desc)
			}
		}
		return matched
	}
}

func evaluateLeaf(cond *Condition, ctx request.Context) bool {
	actual, found := ctx.Lookup(cond.Key)

	switch cond.Op {
	case OpExists:
		return found
	case OpEquals:
		return found && asString(actual) == asString(cond.Value)
	case OpNotEquals:
		return !found || asString(actual) != asString(cond.Value)
	case OpContains:
		return found && strings.Contains(asString(actual), asString(cond.Value))
	case OpStartsWith:
		return found && strings.HasPrefix(asString(actual), asString(cond.Value))
	case OpEndsWith:
		return found && strings.HasSuffix(asString(actual), asString(cond.Value))
	case OpGreaterThan:
		av, aok := asNumber(actual)
		ev, eok := asNumber(cond.Value)
		return found && aok && eok && av > ev
	case OpLessThan:
		av, aok := asNumber(actual)
		ev, eok := asNumber(cond.Value)
		return found && aok && eok && av < ev
	default:
		return false
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
