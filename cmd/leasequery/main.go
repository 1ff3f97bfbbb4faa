// Command leasequery ingests lease contracts and answers questions about them.
package main

import (
	"context"
	"os"

	"github.com/custodia-labs/leasequery/internal/adapters/driving/cli"
	"github.com/custodia-labs/leasequery/internal/app"
)

func main() {
	cli.SetBootstrap(app.Bootstrap)
	if err := cli.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
