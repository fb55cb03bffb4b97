package cmd

import (
	"encoding/json"
	"fmt"
)

type VersionCmd struct{}

// Run prints the build version; with --json it is a {"version": ...} object.
func (v *VersionCmd) Run(ctx *Context) error {
	if ctx.JSONOutput {
		return json.NewEncoder(ctx.Out).Encode(map[string]string{"version": ctx.Version})
	}
	_, err := fmt.Fprintf(ctx.Out, "faw %s\n", ctx.Version)
	return err
}
