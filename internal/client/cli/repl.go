package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc/status"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

type execIface interface {
	List(ctx context.Context, args []string) error
	Promote(ctx context.Context, args []string) error
	Fail(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	URL(ctx context.Context, args []string) error
	Reclaim(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  list [new|processed|error] [limit]
  promote <entry_id> <material_certificate|wps|wpqr> key=value...
  fail <entry_id> <message>
  delete <entry_id>
  url <file_id> [seconds]
  reclaim <file_id>
  exit`

// runREPL reads one command per line and dispatches it to a. Command errors
// are printed and the loop goes on; it ends on EOF or exit/quit.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("triage %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "l", "list":
			err = a.List(ctx, args)
		case "promote":
			err = a.Promote(ctx, args)
		case "fail":
			err = a.Fail(ctx, args)
		case "delete":
			err = a.Delete(ctx, args)
		case "url":
			err = a.URL(ctx, args)
		case "reclaim":
			err = a.Reclaim(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("error:", describe(err))
		}
	}
}

// describe strips the gRPC status wrapper so operators see the server's
// message and code only.
func describe(err error) string {
	if st, ok := status.FromError(err); ok {
		return fmt.Sprintf("%s (%s)", st.Message(), st.Code())
	}
	return err.Error()
}
