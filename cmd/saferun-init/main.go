// Command saferun-init is the sandbox trampoline stub. The executor spawns
// it with an enforcement payload in the environment; the stub installs the
// payload and execs the target, so the target never runs a single
// instruction unconfined.
//
// Point an executor at this binary with WithStubPath. Hosts that prefer
// re-executing themselves call saferun.ChildInit at the top of main instead.
package main

import (
	"fmt"
	"os"

	"github.com/synxlabs/saferun/sandbox"
)

func main() {
	sandbox.ChildInit()

	// ChildInit execs the target and does not return. Reaching here means
	// no payload was present, which is a wiring error.
	fmt.Fprintln(os.Stderr, "saferun-init: no sandbox payload in environment")
	os.Exit(2)
}
