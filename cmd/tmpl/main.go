package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	uierrs "github.com/cppforlife/go-cli-ui/errors"

	"github.com/yetanotherchris/text-template/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := cli.NewDefaultTmplCmd()

	err := command.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tmpl: Error: %s\n", uierrs.NewMultiLineError(errors.New(cli.DescribeError(err))))
		stop()
		os.Exit(1)
	}
}
