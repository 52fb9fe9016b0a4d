// Command dumpprobe inventories a legacy SQL dump before migration: which
// tables carry INSERT statements, how many statements and rows each has,
// which columns are declared, and which semantic fields the migration engine
// would resolve from them. Read-only; point it at a dump to decide whether
// the dump is worth migrating.
//
// Usage:
//
//	dumpprobe -dump legacy.sql
//	dumpprobe -dump-url https://legacy.example.com/export.sql
//	cat legacy.sql | dumpprobe -json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"dumpmigrate/internal/inspect"
	"dumpmigrate/internal/source"
	"dumpmigrate/internal/source/file"
	"dumpmigrate/internal/source/httpsrc"
)

var (
	flagDump    = flag.String("dump", "", "path to the dump file (default: read stdin)")
	flagDumpURL = flag.String("dump-url", "", "fetch the dump from this URL instead of a file")
	flagJSON    = flag.Bool("json", false, "emit the report as JSON instead of text")
)

func main() {
	flag.Parse()

	dump, err := loadDump(context.Background(), *flagDump, *flagDumpURL, os.Stdin)
	if err != nil {
		fatalf("%v", err)
	}

	rep := inspect.Scan(dump)
	if *flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fatalf("encode report: %v", err)
		}
		return
	}
	fmt.Print(rep.Render())
}

// loadDump picks the dump source: explicit file path, URL, or stdin when
// neither is given. Every path enforces the shared size cap.
func loadDump(ctx context.Context, path, url string, stdin io.Reader) (string, error) {
	switch {
	case path != "" && url != "":
		return "", fmt.Errorf("use either -dump or -dump-url, not both")
	case path != "":
		return source.ReadAll(ctx, file.NewLocal(path), 0)
	case url != "":
		client := httpsrc.NewClient(httpsrc.Config{})
		return source.ReadAll(ctx, httpsrc.NewRemote(client, url), 0)
	default:
		data, err := io.ReadAll(io.LimitReader(stdin, source.DefaultMaxBytes+1))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if int64(len(data)) > source.DefaultMaxBytes {
			return "", fmt.Errorf("stdin dump exceeds %d bytes", int64(source.DefaultMaxBytes))
		}
		return string(data), nil
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
