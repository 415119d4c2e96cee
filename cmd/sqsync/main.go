// Command sqsync queues write requests while offline and replays them once
// the network is reachable again.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/RudyLabor/squadplanner-sub013/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
