// Command basecompile loads a WebAssembly module and runs the baseline
// compiler over every one of its function bodies, reporting which
// compiled cleanly and which bailed out and why. It exists to exercise
// the baseline package end to end against real module bytes, the same
// way the module's tests exercise it against WAT fixtures.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-baseline/baseline"
	"github.com/wippyai/wasm-baseline/baseline/emittest"
	"github.com/wippyai/wasm-baseline/wasm"
	"github.com/wippyai/wasm-baseline/wat"
)

func main() {
	var (
		path            = flag.String("in", "", "path to a .wasm or .wat file")
		trace           = flag.Bool("trace", false, "enable verbose baseline tracing")
		verifyRoundtrip = flag.Bool("verify-roundtrip", true, "re-encode the decoded module and re-validate it before compiling")
	)
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Usage: basecompile -in <file.wasm|file.wat> [-trace] [-verify-roundtrip=false]")
		os.Exit(1)
	}

	if *trace {
		l, _ := zap.NewDevelopment()
		baseline.SetLogger(l)
		baseline.SetDebug(true)
	}

	if err := run(*path, *verifyRoundtrip); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string, verifyRoundtrip bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if len(data) < 4 || uint32(data[0])|uint32(data[1])<<8|uint32(data[2])<<16|uint32(data[3])<<24 != wasm.Magic {
		data, err = wat.Compile(string(data))
		if err != nil {
			return fmt.Errorf("compile wat: %w", err)
		}
	}

	mod, err := wasm.ParseModuleValidate(data)
	if err != nil {
		return fmt.Errorf("decode module: %w", err)
	}

	if verifyRoundtrip {
		if err := verifyModuleRoundtrip(mod); err != nil {
			return fmt.Errorf("roundtrip verification: %w", err)
		}
	}

	env := baseline.NewStaticModuleEnv(mod)
	cfg := baseline.DefaultConfig()

	fmt.Printf("functions: %d\n", len(mod.Code))
	numImported := mod.NumImportedFuncs()
	for i, body := range mod.Code {
		ft := mod.GetFuncType(uint32(numImported + i))
		if ft == nil {
			fmt.Printf("  func[%d]: skipped, no type\n", i)
			continue
		}

		rec := emittest.New()
		result := baseline.NewCompiler(cfg, *ft, body, env, rec).Compile()

		if result.OK {
			fmt.Printf("  func[%d]: ok, %d emitted ops\n", i, len(rec.Trace))
		} else {
			fmt.Printf("  func[%d]: bailout: %s\n", i, result.BailoutReason)
		}
	}
	return nil
}

// verifyModuleRoundtrip re-encodes mod and re-decodes the result, catching
// a decoder/encoder mismatch before it reaches the compiler as silently
// malformed function bodies. It checks structural shape rather than a raw
// byte comparison, since re-encoding a module that used the legacy
// Types-only fallback does not reproduce the original section layout.
func verifyModuleRoundtrip(mod *wasm.Module) error {
	data := mod.Encode()
	roundtripped, err := wasm.ParseModuleValidate(data)
	if err != nil {
		return fmt.Errorf("re-encoded module failed to validate: %w", err)
	}
	if len(roundtripped.Code) != len(mod.Code) {
		return fmt.Errorf("function count changed across roundtrip: %d -> %d", len(mod.Code), len(roundtripped.Code))
	}
	if roundtripped.NumImportedFuncs() != mod.NumImportedFuncs() {
		return fmt.Errorf("imported function count changed across roundtrip: %d -> %d", mod.NumImportedFuncs(), roundtripped.NumImportedFuncs())
	}
	return nil
}
