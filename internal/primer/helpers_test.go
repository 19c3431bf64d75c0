package primer

import (
	"testing"

	"github.com/Conceptual-Machines/grammar-school-go/gs"
)

func gsArgs(t *testing.T, in map[string]any) gs.Args {
	t.Helper()
	args := gs.Args{}
	for k, v := range in {
		switch val := v.(type) {
		case string:
			args[k] = gs.Value{Kind: gs.ValueString, Str: val}
		case float64:
			args[k] = gs.Value{Kind: gs.ValueNumber, Num: val}
		case int:
			args[k] = gs.Value{Kind: gs.ValueNumber, Num: float64(val)}
		default:
			t.Fatalf("unsupported arg type %T", v)
		}
	}
	return args
}
