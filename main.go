package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Arun-Raghav-S/chatagent-sub000/cmd/root"
)

func main() {
	if err := root.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
