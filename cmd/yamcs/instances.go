package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (c *cli) newInstancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "Read Yamcs instances",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, _, err := c.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			instances, err := yc.ListInstances(cmd.Context())
			if err != nil {
				return err
			}
			rows := [][]string{{"NAME", "STATE", "MISSION TIME"}}
			for _, inst := range instances {
				rows = append(rows, []string{inst.Name, inst.State, inst.MissionTime})
			}
			return printTable(c.out, rows)
		},
	})
	return cmd
}

func (c *cli) newProcessorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "processors",
		Short: "Read processors",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List processors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())

			processors, err := yc.ListProcessors(cmd.Context(), instance)
			if err != nil {
				return err
			}
			rows := [][]string{{"NAME", "TYPE", "OWNER", "PERSISTENT", "TIME", "STATE"}}
			for _, p := range processors {
				rows = append(rows, []string{p.Name, p.Type, p.Creator, strconv.FormatBool(p.Persistent), p.Time, p.State})
			}
			return printTable(c.out, rows)
		},
	})
	return cmd
}

func (c *cli) newLinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Manage data links",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List data links",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				yc, instance, err := c.newInstanceClient(cmd.Context())
				if err != nil {
					return err
				}
				defer yc.Close(cmd.Context())

				links, err := yc.ListDataLinks(cmd.Context(), instance)
				if err != nil {
					return err
				}
				rows := [][]string{{"NAME", "CLASS", "STATUS", "IN", "OUT"}}
				for _, l := range links {
					rows = append(rows, []string{
						l.Name,
						l.ClassName(),
						l.Status,
						fmt.Sprint(int64(l.DataInCount)),
						fmt.Sprint(int64(l.DataOutCount)),
					})
				}
				return printTable(c.out, rows)
			},
		},
		&cobra.Command{
			Use:   "describe LINK",
			Short: "Describe a link",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				yc, instance, err := c.newInstanceClient(cmd.Context())
				if err != nil {
					return err
				}
				defer yc.Close(cmd.Context())
				link, err := yc.GetDataLink(cmd.Context(), instance, args[0])
				if err != nil {
					return err
				}
				return printJSON(c.out, link)
			},
		},
		c.linkStateCmd("enable", "Enable links"),
		c.linkStateCmd("disable", "Disable links"),
	)
	return cmd
}

func (c *cli) linkStateCmd(verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " LINK...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yc, instance, err := c.newInstanceClient(cmd.Context())
			if err != nil {
				return err
			}
			defer yc.Close(cmd.Context())
			if verb == "enable" {
				return yc.EnableDataLinks(cmd.Context(), instance, args)
			}
			return yc.DisableDataLinks(cmd.Context(), instance, args)
		},
	}
}
