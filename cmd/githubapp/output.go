package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type printer struct {
	w io.Writer
}

func (p *printer) line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// print renders v as indented JSON with --out json, otherwise via text.
func (a *app) print(v any, text func(p *printer)) error {
	w := a.stdout
	if w == nil {
		w = os.Stdout
	}
	if a.outFormat == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(&printer{w: w})
	return nil
}

// writeActionsOutput masks value in the workflow log and appends it to the
// file named by GITHUB_OUTPUT. Outside of Actions it does nothing.
func writeActionsOutput(stdout io.Writer, name, value string) error {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return nil
	}
	fmt.Fprintf(stdout, "::add-mask::%s\n", value)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "%s=%s\n", name, value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
