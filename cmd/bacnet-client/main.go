// Command bacnet-client reads and commands the objects of a remote
// bacnet-device over the wire protocol.
//
// Usage:
//
//	bacnet-client [flags] <command> [args]
//
// Flags:
//
//	-address string    Device address (default "localhost:47808")
//	-timeout duration  Response timeout (default 5s)
//	-protocol-log string  Capture protocol frames to a file
//
// Commands:
//
//	list                               List objects
//	read <path>                        Read a property, or a whole object
//	write <path> <value> [priority]    Write a property (default priority 16)
//	relinquish <object> <priority>     Release a present-value command
//	create <type> [instance|-] [name]  Create an object
//	delete <object>                    Delete an object
//	watch <object> [seconds]           Print COV notifications
//	who-has <name>                     Find an object by name
//	comm <state> [minutes]             Device communication control
//
// Examples:
//
//	bacnet-client read analog-value:1/priority-array
//	bacnet-client write av:1/pv 21.5 8
//	bacnet-client -address 10.0.0.5:47808 watch av:1 60
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bacnet-stack/bacnet-go/pkg/inspect"
	"github.com/bacnet-stack/bacnet-go/pkg/log"
	"github.com/bacnet-stack/bacnet-go/pkg/transport"
)

var (
	address     = flag.String("address", fmt.Sprintf("localhost:%d", transport.DefaultPort), "Device address")
	timeout     = flag.Duration("timeout", inspect.DefaultTimeout, "Response timeout")
	protocolLog = flag.String("protocol-log", "", "Capture protocol frames to a file")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bacnet-client [flags] <command> [args]\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := transport.Dial(ctx, *address, transport.DefaultMaxMessageSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer conn.Close()

	if *protocolLog != "" {
		fileLogger, err := log.NewFileLogger(*protocolLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer fileLogger.Close()
		conn.SetLogger(fileLogger, conn.LocalAddr().String())
	}

	client := NewClient(inspect.NewRemote(conn, *timeout), os.Stdout)
	if err := client.Execute(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Usage: %s\n", strings.TrimPrefix(err.Error(), errUsage.Error()+": "))
		} else {
			fmt.Fprintln(os.Stderr, inspect.FormatError(err))
		}
		return 1
	}
	return 0
}
