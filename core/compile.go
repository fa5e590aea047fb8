package core

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
)

// CompileWAT compiles a .wat fixture to .wasm bytes via the wat2wasm
// offline toolchain, adapted from the teacher's core/contracts.go
// CompileWASM (which used the same subprocess to produce a deterministic
// build artifact for a deployed contract). Tests use it to turn a literal
// .wat handler fixture into bytes for NewSandboxInstance; it returns
// exec.ErrNotFound when wat2wasm is not installed, so tests can skip rather
// than fail in environments without the native toolchain.
func CompileWAT(srcPath, outDir string) ([]byte, error) {
	switch filepath.Ext(srcPath) {
	case ".wasm":
		return os.ReadFile(srcPath)
	case ".wat":
		if _, err := exec.LookPath("wat2wasm"); err != nil {
			return nil, exec.ErrNotFound
		}
		out := filepath.Join(outDir, filepath.Base(srcPath)+".wasm")
		cmd := exec.Command("wat2wasm", "-o", out, srcPath)
		if err := cmd.Run(); err != nil {
			return nil, err
		}
		return os.ReadFile(out)
	default:
		return nil, errors.New("compile: unsupported source, expected .wat or .wasm")
	}
}
