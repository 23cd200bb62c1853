// Command spvgen compiles a WGSL compute kernel to a SPIR-V artifact.
//
//	go run ./cmd/spvgen -in shader/roundtrip.wgsl -out shader/roundtrip.spv
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/roundtrip/shader"
)

func main() {
	var (
		in  = flag.String("in", "roundtrip.wgsl", "WGSL source file")
		out = flag.String("out", "", "SPIR-V output file (default: input with .spv extension)")
	)
	flag.Parse()

	if *out == "" {
		*out = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".spv"
	}

	src, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("Failed to read shader: %v", err)
	}

	name := strings.TrimSuffix(filepath.Base(*in), filepath.Ext(*in))
	prog, err := shader.Compile(name, string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error compiling shader:\n%v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, shader.Bytes(prog.SPIRV), 0o644); err != nil { //nolint:gosec // build artifact
		log.Fatalf("Failed to write artifact: %v", err)
	}

	log.Printf("Compiled %s to %s (%d words)\n", *in, *out, len(prog.SPIRV))
}
