// Command duocachectl inspects and administers a duocache disk tier
// directory from the outside: stats, forced GC, single-key get/store/remove,
// and an interactive shell for exploring a cache during development.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/calvinalkan/duocache"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags, rest, err := parseFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "duocachectl:", err)
		return 2
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "duocachectl:", err)
		return 1
	}

	cfg = applyFlags(cfg, flags)

	if cfg.Path == "" {
		fmt.Fprintln(os.Stderr, "duocachectl: no cache path configured (use --path or config.json)")
		return 2
	}

	if len(rest) == 0 {
		fmt.Fprintln(os.Stderr, "usage: duocachectl [--path DIR] <stat|gc|clear|get KEY|store KEY VALUE|remove KEY|shell>")
		return 2
	}

	cache, err := duocache.New[string, []byte](duocache.Options[string, []byte]{
		Path:              duocache.Custom(cfg.Path),
		SizeLimit:         cfg.SizeLimit,
		ExpirationTimeout: cfg.TTL,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "duocachectl: prepare:", err)
		return 1
	}
	defer cache.Close()

	ctx := context.Background()

	switch rest[0] {
	case "stat":
		return cmdStat(cache)
	case "gc":
		cache.GC()
		return 0
	case "clear":
		return waitHandle(ctx, cache.RemoveAll())
	case "get":
		return cmdGet(ctx, cache, rest[1:])
	case "store":
		return cmdStore(ctx, cache, rest[1:])
	case "remove":
		return cmdRemove(ctx, cache, rest[1:])
	case "shell":
		return runShell(cache)
	default:
		fmt.Fprintln(os.Stderr, "duocachectl: unknown command:", rest[0])
		return 2
	}
}

func cmdStat(cache *duocache.Cache[string, []byte]) int {
	stats, err := cache.Stats()
	if err != nil {
		fmt.Fprintln(os.Stderr, "duocachectl:", err)
		return 1
	}

	fmt.Printf("entries: %d\nsize: %d bytes\nallocated: %d bytes\n", stats.Count, stats.Size, stats.AllocatedSize)

	return 0
}

func cmdGet(ctx context.Context, cache *duocache.Cache[string, []byte], args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: duocachectl get KEY")
		return 2
	}

	v, ok, err := cache.Get(ctx, args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "duocachectl:", err)
		return 1
	}

	if !ok {
		fmt.Fprintln(os.Stderr, "duocachectl: not found")
		return 1
	}

	os.Stdout.Write(v)

	return 0
}

func cmdStore(ctx context.Context, cache *duocache.Cache[string, []byte], args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: duocachectl store KEY VALUE")
		return 2
	}

	return waitHandle(ctx, cache.Store(args[0], []byte(args[1])))
}

func cmdRemove(ctx context.Context, cache *duocache.Cache[string, []byte], args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: duocachectl remove KEY")
		return 2
	}

	return waitHandle(ctx, cache.Remove(args[0]))
}

func waitHandle(ctx context.Context, h interface{ Wait(context.Context) error }) int {
	if err := h.Wait(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "duocachectl:", err)
		return 1
	}

	return 0
}
