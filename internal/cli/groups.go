package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"day-organiser/internal/model"
	"day-organiser/internal/service"
)

func newGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "Show the group tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var groups []*model.Group
			a.session.View(func(tx *service.Tx) { groups = append(groups, tx.Data.Groups...) })
			out := cmd.OutOrStdout()
			if len(groups) == 0 {
				fmt.Fprintln(out, "no groups")
				return nil
			}
			printGroupTree(out, service.BuildGroupTree(groups), a.session.ActiveGroup(), 0)
			return nil
		},
	}
}

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage task groups",
	}
	cmd.AddCommand(newGroupAddCmd(), newGroupEditCmd(), newGroupDeleteCmd(), newGroupUseCmd())
	return cmd
}

func addGroupFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("parent", "", "Parent group id or name")
	f.Bool("share", false, "Show tasks of subgroups in this group")
	f.Bool("hide", false, "Hide this group's tasks from its parent")
	f.String("color", "", "Display color")
	f.String("icon", "", "Display icon")
}

func newGroupAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <name...>",
		Short: "Create a group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			f := cmd.Flags()
			input := service.GroupInput{Name: strings.Join(args, " ")}
			input.ShareSubgroups, _ = f.GetBool("share")
			input.HideTasksFromParent, _ = f.GetBool("hide")
			input.Color, _ = f.GetString("color")
			input.Icon, _ = f.GetString("icon")

			var g *model.Group
			err = a.session.Mutate(cmd.Context(), func(tx *service.Tx) error {
				if ref, _ := f.GetString("parent"); ref != "" {
					parent := tx.Groups.Resolve(ref)
					if parent == nil {
						return errors.Wrapf(service.ErrGroupNotFound, "parent %q", ref)
					}
					input.ParentID = parent.ID
				}
				g = tx.Groups.AddGroup(input)
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created group %s\n", g.ID)
			return nil
		},
	}
	addGroupFlags(cmd)
	return cmd
}

func newGroupEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <group>",
		Short: "Change a group; --parent \"\" makes it a root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			f := cmd.Flags()
			var patch service.GroupPatch
			for flag, dst := range map[string]**string{
				"name":  &patch.Name,
				"color": &patch.Color,
				"icon":  &patch.Icon,
			} {
				if f.Changed(flag) {
					v, _ := f.GetString(flag)
					*dst = &v
				}
			}
			for flag, dst := range map[string]**bool{
				"share": &patch.ShareSubgroups,
				"hide":  &patch.HideTasksFromParent,
			} {
				if f.Changed(flag) {
					v, _ := f.GetBool(flag)
					*dst = &v
				}
			}

			err = a.session.Mutate(cmd.Context(), func(tx *service.Tx) error {
				g := tx.Groups.Resolve(args[0])
				if g == nil {
					return errors.Wrapf(service.ErrGroupNotFound, "group %q", args[0])
				}
				if f.Changed("parent") {
					ref, _ := f.GetString("parent")
					parentID := ""
					if ref != "" {
						parent := tx.Groups.Resolve(ref)
						if parent == nil {
							return errors.Wrapf(service.ErrGroupNotFound, "parent %q", ref)
						}
						parentID = parent.ID
					}
					patch.ParentID = &parentID
				}
				_, err := tx.Groups.UpdateGroup(g.ID, patch)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "group updated")
			return nil
		},
	}
	addGroupFlags(cmd)
	cmd.Flags().String("name", "", "New name")
	return cmd
}

func newGroupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group>",
		Short: "Delete a group; its children move up and its tasks become ungrouped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			var res service.DeleteGroupResult
			err = a.session.Mutate(cmd.Context(), func(tx *service.Tx) error {
				g := tx.Groups.Resolve(args[0])
				if g == nil {
					return errors.Wrapf(service.ErrGroupNotFound, "group %q", args[0])
				}
				var err error
				res, err = tx.Groups.DeleteGroup(g.ID)
				return err
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if res.GroupHasTasks {
				fmt.Fprintln(out, "group deleted, its tasks are now ungrouped")
				return nil
			}
			fmt.Fprintln(out, "group deleted")
			return nil
		},
	}
}

func newGroupUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <group|all>",
		Short: "Filter views by a group, or show everything with \"all\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if strings.EqualFold(args[0], "all") {
				if err := a.session.SetActiveGroup(cmd.Context(), ""); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "showing all groups")
				return nil
			}
			var g *model.Group
			a.session.View(func(tx *service.Tx) { g = tx.Groups.Resolve(args[0]) })
			if g == nil {
				return errors.Wrapf(service.ErrGroupNotFound, "group %q", args[0])
			}
			if err := a.session.SetActiveGroup(cmd.Context(), g.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "showing %s\n", g.Name)
			return nil
		},
	}
}

func printGroupTree(w io.Writer, nodes []*service.GroupNode, active string, depth int) {
	for _, n := range nodes {
		marker := "-"
		if n.Group.ID == active {
			marker = "*"
		}
		var flags []string
		if n.Group.ShareSubgroups {
			flags = append(flags, "shares subgroups")
		}
		if n.Group.HideTasksFromParent {
			flags = append(flags, "hidden from parent")
		}
		line := fmt.Sprintf("%s%s %s  %s", strings.Repeat("  ", depth), marker, n.Group.Name, n.Group.ID)
		if len(flags) > 0 {
			line += "  (" + strings.Join(flags, ", ") + ")"
		}
		fmt.Fprintln(w, line)
		printGroupTree(w, n.Children, active, depth+1)
	}
}
