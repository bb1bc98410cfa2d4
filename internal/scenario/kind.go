package scenario

import (
	"fmt"
	"strings"
)

// Kind selects a traffic shape.
type Kind string

const (
	KindBasic           Kind = "basic"
	KindComplex         Kind = "complex"
	KindLargePayload    Kind = "large-payload"
	KindPipeline        Kind = "pipeline"
	KindBackpressure    Kind = "backpressure"
	KindConnectionChurn Kind = "connection-churn"
	KindPubSub          Kind = "pubsub"
	KindProbabilistic   Kind = "probabilistic"
	KindLuaStress       Kind = "lua-stress"
	KindWorkloadSkew    Kind = "workload-skew"
)

// Kinds lists every scenario in display order.
func Kinds() []Kind {
	return []Kind{
		KindBasic,
		KindComplex,
		KindLargePayload,
		KindPipeline,
		KindBackpressure,
		KindConnectionChurn,
		KindPubSub,
		KindProbabilistic,
		KindLuaStress,
		KindWorkloadSkew,
	}
}

func (k Kind) String() string { return string(k) }

// Valid reports whether k names a known scenario.
func (k Kind) Valid() bool {
	_, ok := strategies[k]
	return ok
}

// ParseKind resolves a scenario name. Matching ignores case and accepts
// snake_case or compact spellings ("large_payload", "largepayload").
func ParseKind(name string) (Kind, error) {
	want := normalizeName(name)
	if want == "" {
		return "", fmt.Errorf("scenario name is empty")
	}
	for _, k := range Kinds() {
		if normalizeName(string(k)) == want {
			return k, nil
		}
	}
	switch want {
	case "basicstress", "stress":
		return KindBasic, nil
	case "complexstructures":
		return KindComplex, nil
	case "churn":
		return KindConnectionChurn, nil
	case "lua":
		return KindLuaStress, nil
	case "skew":
		return KindWorkloadSkew, nil
	}
	return "", fmt.Errorf("unknown scenario %q (supported: %s)", name, kindList())
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "", "_", "", " ", "").Replace(s)
}

func kindList() string {
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}
