// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcelocantos/stagecraft/internal/stage"
	"github.com/marcelocantos/stagecraft/internal/store"
)

func (a *App) editCmd() *cobra.Command {
	var (
		file   string
		index  int
		sets   []string
		add    string
		op     string
		remove bool
		moveTo int
	)
	cmd := &cobra.Command{
		Use:   "edit -f FILE --stage N [--set k=v]... | --add CMD | --remove | --move TO",
		Short: "Edit one stage of a saved pipeline",
		Long: `Loads the pipeline in FILE, applies one stage edit, saves the result and
prints the new text. Stages are numbered from 0.

  --set k=v    change field k of stage N (repeatable); boolean fields take
               true or false
  --add CMD    insert a new CMD stage at position N (default: append)
  --remove     delete stage N
  --move TO    move stage N to position TO`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return errors.New("edit: -f is required")
			}
			text, err := store.Load(file)
			if err != nil {
				return err
			}
			s := a.session()
			if err := s.SetText(text); err != nil {
				return err
			}

			changed := cmd.Flags().Changed
			switch {
			case add != "":
				at := len(s.Modules())
				if changed("stage") {
					at = index
				}
				err = s.AddStage(at, add, stage.Operator(op))
			case remove:
				err = s.RemoveStage(index)
			case changed("move"):
				err = s.MoveStage(index, moveTo)
			case len(sets) > 0:
				var patch stage.Fields
				patch, err = a.patch(s.Modules(), index, sets)
				if err == nil {
					err = s.UpdateStage(index, patch)
				}
			default:
				return errors.New("edit: nothing to do")
			}
			if err != nil {
				return err
			}

			if err := store.Save(file, s.Text()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.Text())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&file, "file", "f", "", "pipeline file")
	f.IntVar(&index, "stage", 0, "stage index")
	f.StringArrayVar(&sets, "set", nil, "field assignment k=v")
	f.StringVar(&add, "add", "", "command of a stage to insert")
	f.StringVar(&op, "op", string(stage.OpPipe), "operator joining an added stage to the next (pipe, and, or)")
	f.BoolVar(&remove, "remove", false, "remove the stage")
	f.IntVar(&moveTo, "move", 0, "new position of the stage")
	return cmd
}

// patch turns k=v assignments into fields, converting values of boolean
// fields according to the stage's schema.
func (a *App) patch(mods []stage.EnhancedModule, index int, sets []string) (stage.Fields, error) {
	if index < 0 || index >= len(mods) {
		return nil, fmt.Errorf("stage %d out of range [0,%d)", index, len(mods))
	}
	bools := booleanFields(a.reg.Resolve(mods[index].Type).Schema())

	patch := stage.Fields{}
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--set %q: want k=v", kv)
		}
		if !bools[k] {
			patch[k] = v
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("--set %s: %q is not a boolean", k, v)
		}
		patch[k] = b
	}
	return patch, nil
}

func booleanFields(schema map[string]any) map[string]bool {
	out := map[string]bool{}
	props, _ := schema["properties"].(map[string]any)
	for name, p := range props {
		if def, ok := p.(map[string]any); ok && def["type"] == "boolean" {
			out[name] = true
		}
	}
	return out
}
