package baseline

import (
	"fmt"

	wasmerrors "github.com/wippyai/wasm-baseline/errors"
)

// Named bailout reasons. spec.md §7 lists the trigger categories
// (unsupported opcode, unsupported value type, oversized globals, oversized
// operand stack, unsupported parameter locations, multi-value returns)
// without enumerating them individually; these constants give each one a
// stable, loggable identity.
const (
	ReasonUnsupportedOpcode        = "unsupported opcode"
	ReasonUnsupportedType          = "unsupported value type"
	ReasonOversizedGlobal          = "global type too wide for baseline"
	ReasonStackOverflow            = "value stack grows too large"
	ReasonUnsupportedParamLocation = "unsupported parameter location"
	ReasonMultiValueReturn         = "multi-value return"
)

// bailoutError builds the structured diagnostic recorded (but never
// returned as an error) when the compiler gives up on a function. Bailout
// is not an error — see Result.OK — this is purely for logging.
func bailoutError(reason string, detail string, args ...any) *wasmerrors.Error {
	b := wasmerrors.New(wasmerrors.PhaseCompile, wasmerrors.KindUnsupported).
		Detail("%s", reason)
	if detail != "" {
		b = b.Cause(fmt.Errorf(detail, args...))
	}
	return b.Build()
}
