package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"shirley/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", ipc.DefaultSocketPath, "Control socket path")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: shirley-ctl [--socket path] status|mute|unmute|clear-memory|stop\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	if cli.NArg() != 1 {
		cli.Usage()
		os.Exit(2)
	}

	reply, err := ipc.SendCommand(*socket, cli.Arg(0))
	if err != nil {
		fmt.Println("shirley-daemon not running:", err)
		os.Exit(1)
	}
	if reply.Message != "" {
		fmt.Println(reply.Message)
	}
	if !reply.OK {
		os.Exit(1)
	}
}
