package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

var errUsage = errors.New("usage")

func usage(line string) error {
	return fmt.Errorf("%w: %s", errUsage, line)
}

func (a *App) List(ctx context.Context, args []string) error {
	req := map[string]any{}
	if len(args) > 0 {
		req["status"] = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return usage("list [status] [limit]")
		}
		req["limit"] = n
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	out, err := a.client.ListInbox(ctx, in)
	if err != nil {
		return err
	}

	entries := out.GetFields()["entries"].GetListValue().GetValues()
	if len(entries) == 0 {
		printlnFn("No entries.")
		return nil
	}
	for _, v := range entries {
		e := v.GetStructValue().GetFields()
		line := fmt.Sprintf("%s  %-20s %-9s file=%s  %s",
			e["id"].GetStringValue(),
			e["target"].GetStringValue(),
			e["status"].GetStringValue(),
			e["file_id"].GetStringValue(),
			e["source_path"].GetStringValue())
		if msg := e["error_message"].GetStringValue(); msg != "" {
			line += "  error: " + msg
		}
		printlnFn(line)
	}
	return nil
}

// Promote sends promote <entry_id> <target> key=value... where keys are the
// record fields (heat_number, material, code, revision, ...).
func (a *App) Promote(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("promote <entry_id> <target> key=value...")
	}
	req := map[string]any{"entry_id": args[0], "target": args[1]}
	for _, kv := range args[2:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return usage("fields must be key=value, got " + kv)
		}
		req[k] = v
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	out, err := a.client.PromoteInboxEntry(ctx, in)
	if err != nil {
		return err
	}

	m := out.GetFields()
	printlnFn(fmt.Sprintf("Created %s %s (file %s)",
		m["entity_type"].GetStringValue(), m["entity_id"].GetStringValue(), m["file_id"].GetStringValue()))
	return nil
}

func (a *App) Fail(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("fail <entry_id> <message>")
	}
	in, err := structpb.NewStruct(map[string]any{"entry_id": args[0], "message": strings.Join(args[1:], " ")})
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	if _, err := a.client.MarkInboxError(ctx, in); err != nil {
		return err
	}
	printlnFn("Marked", args[0], "as error")
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("delete <entry_id>")
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	if _, err := a.client.DeleteInboxEntry(ctx, wrapperspb.String(args[0])); err != nil {
		return err
	}
	printlnFn("Deleted", args[0])
	return nil
}

func (a *App) URL(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("url <file_id> [seconds]")
	}
	req := map[string]any{"file_id": args[0]}
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return usage("url <file_id> [seconds]")
		}
		req["expires_seconds"] = n
	}
	in, err := structpb.NewStruct(req)
	if err != nil {
		return err
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	out, err := a.client.SignedURL(ctx, in)
	if err != nil {
		return err
	}
	printlnFn(out.GetValue())
	return nil
}

func (a *App) Reclaim(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("reclaim <file_id>")
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()
	out, err := a.client.ReclaimFile(ctx, wrapperspb.String(args[0]))
	if err != nil {
		return err
	}
	if out.GetValue() {
		printlnFn("Reclaimed", args[0])
	} else {
		printlnFn(args[0], "is still referenced")
	}
	return nil
}
