// Command muse is the client-side porcelain for the Muse Hub VCS core:
// init, clone, push, pull, fetch, and remote management against a
// maestro server over its HTTP push/pull/fetch/clone protocol.
package main

import "github.com/cgcardona/maestro/cmd/muse/internal/musecli"

func main() {
	musecli.Execute()
}
